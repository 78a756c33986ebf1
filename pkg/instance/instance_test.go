package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDUsesConfiguredWorker(t *testing.T) {
	t.Setenv("QUOTEMARKET_WORKER_ID", "sweeper-1")
	assert.Equal(t, "sweeper-1", GetID())
}

func TestGetIDFallsBackToHostname(t *testing.T) {
	t.Setenv("QUOTEMARKET_WORKER_ID", "")
	t.Setenv("WORKER_ID", "")
	assert.NotEmpty(t, GetID())
}
