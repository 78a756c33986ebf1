package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMarketplaceMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMarketplaceMetrics(reg)
	m.IncAccept(AcceptOutcomeWon)
	m.IncAccept(AcceptOutcomeLostRace)
	m.IncAccept(AcceptOutcomeLostRace)
	m.IncOrderTransition("shipped")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "quotemarket_accept_attempts_total", "outcome", AcceptOutcomeLostRace); err != nil {
		t.Fatalf("fetch stale: %v", err)
	} else if got != 2 {
		t.Fatalf("expected stale=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "quotemarket_order_transitions_total", "to", "shipped"); err != nil {
		t.Fatalf("fetch transition: %v", err)
	} else if got != 1 {
		t.Fatalf("expected shipped=1, got %f", got)
	}
}

func TestOutboxMetricsCountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("qm-order-events")
	m.IncDeadLettered("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "quotemarket_outbox_published_total", "topic", "qm-order-events"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "quotemarket_outbox_dead_lettered_total", "reason", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected dead lettered=1, got %f (%v)", got, err)
	}
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var m *MarketplaceMetrics
	m.IncAccept(AcceptOutcomeError)
	m.AddExpired(1, 2)
	NewMarketplaceMetrics(nil).IncQuoteSubmitted()
	NewOutboxMetrics(nil).IncFailed("topic")
}
