package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Job is a scheduled task run by the cron worker. Names double as lock keys.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Periodic is implemented by jobs that run more often than the daily default.
type Periodic interface {
	Every() time.Duration
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Registry holds jobs in registration order, unique by name.
type Registry struct {
	jobs   []Job
	byName map[string]struct{}
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: map[string]struct{}{}}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("cron job is nil")
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if r.byName == nil {
		r.byName = map[string]struct{}{}
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.byName[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// Names lists job names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}

// tickInterval is the shortest interval across jobs, so every job is checked on time.
func (r *Registry) tickInterval() time.Duration {
	tick := defaultInterval
	for _, job := range r.jobs {
		tick = min(tick, intervalOf(job))
	}
	return tick
}

func intervalOf(job Job) time.Duration {
	if periodic, ok := job.(Periodic); ok {
		if every := periodic.Every(); every > 0 {
			return every
		}
	}
	return defaultInterval
}
