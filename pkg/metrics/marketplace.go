package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Accept outcomes.
const (
	AcceptOutcomeWon      = "won"
	AcceptOutcomeLostRace = "lost_race"
	AcceptOutcomeLocked   = "locked"
	AcceptOutcomeError    = "error"
)

// MarketplaceMetrics counts quote and order lifecycle activity.
type MarketplaceMetrics struct {
	acceptOutcomes   *prometheus.CounterVec
	quotesSubmitted  prometheus.Counter
	requestsExpired  prometheus.Counter
	quotesExpired    prometheus.Counter
	orderTransitions *prometheus.CounterVec
}

// NewMarketplaceMetrics registers the marketplace counters on reg. A nil
// registerer yields a no-op collector.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	m := &MarketplaceMetrics{
		acceptOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotemarket_accept_attempts_total",
			Help: "Quote accept attempts by outcome.",
		}, []string{"outcome"}),
		quotesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotemarket_quotes_submitted_total",
			Help: "Quotes submitted or replaced by providers.",
		}),
		requestsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotemarket_requests_expired_total",
			Help: "Quote requests closed by the expiry sweeper.",
		}),
		quotesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotemarket_quotes_expired_total",
			Help: "Pending quotes expired by the sweeper.",
		}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotemarket_order_transitions_total",
			Help: "Order status transitions by target status.",
		}, []string{"to"}),
	}
	reg.MustRegister(m.acceptOutcomes, m.quotesSubmitted, m.requestsExpired, m.quotesExpired, m.orderTransitions)
	return m
}

func (m *MarketplaceMetrics) IncAccept(outcome string) {
	if m == nil || m.acceptOutcomes == nil {
		return
	}
	m.acceptOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *MarketplaceMetrics) IncQuoteSubmitted() {
	if m == nil || m.quotesSubmitted == nil {
		return
	}
	m.quotesSubmitted.Inc()
}

// AddExpired records one sweep's closed requests and expired quotes.
func (m *MarketplaceMetrics) AddExpired(requests, quotes int) {
	if m == nil || m.requestsExpired == nil {
		return
	}
	m.requestsExpired.Add(float64(requests))
	m.quotesExpired.Add(float64(quotes))
}

func (m *MarketplaceMetrics) IncOrderTransition(to string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(to)).Inc()
}
