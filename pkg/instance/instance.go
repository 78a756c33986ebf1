// Package instance names the running process for lock ownership and logs.
package instance

import (
	"os"

	"github.com/angelmondragon/quotemarket-backend/pkg/env"
)

const defaultID = "worker-0"

// GetID returns QUOTEMARKET_WORKER_ID (or WORKER_ID), else the pod hostname.
func GetID() string {
	if id, ok := env.Lookup("WORKER_ID"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
