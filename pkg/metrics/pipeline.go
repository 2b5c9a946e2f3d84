package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records counters for the cart-to-order pipeline: placement
// outcomes, idempotent replays, cart cache effectiveness, and outbox
// publishing results.
type PipelineMetrics struct {
	ordersPlaced      prometheus.Counter
	placementReplays  prometheus.Counter
	placementFailures *prometheus.CounterVec
	placementDuration prometheus.Histogram
	cartCacheLookups  *prometheus.CounterVec
	outboxPublished   prometheus.Counter
	outboxFailures    prometheus.Counter
	outboxDeadLetters prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created from carts.",
	})
	placementReplays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placement_replays_total",
		Help: "Placement requests resolved from the idempotency ledger.",
	})
	placementFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placement_failures_total",
		Help: "Failed placement attempts by reason.",
	}, []string{"reason"})
	placementDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "placement_duration_seconds",
		Help:    "Duration of order placement in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	cartCacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_cache_lookups_total",
		Help: "Cart cache mirror lookups by outcome.",
	}, []string{"outcome"})
	outboxPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published successfully.",
	})
	outboxFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	})
	outboxDeadLetters := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_dead_letters_total",
		Help: "Outbox events moved to the dead letter queue.",
	})
	reg.MustRegister(
		ordersPlaced,
		placementReplays,
		placementFailures,
		placementDuration,
		cartCacheLookups,
		outboxPublished,
		outboxFailures,
		outboxDeadLetters,
	)
	return &PipelineMetrics{
		ordersPlaced:      ordersPlaced,
		placementReplays:  placementReplays,
		placementFailures: placementFailures,
		placementDuration: placementDuration,
		cartCacheLookups:  cartCacheLookups,
		outboxPublished:   outboxPublished,
		outboxFailures:    outboxFailures,
		outboxDeadLetters: outboxDeadLetters,
	}
}

// IncOrderPlaced increments the placed-order counter.
func (m *PipelineMetrics) IncOrderPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// IncPlacementReplay counts a request answered from the ledger.
func (m *PipelineMetrics) IncPlacementReplay() {
	if m == nil || m.placementReplays == nil {
		return
	}
	m.placementReplays.Inc()
}

// IncPlacementFailure counts a failed placement by reason.
func (m *PipelineMetrics) IncPlacementFailure(reason string) {
	if m == nil || m.placementFailures == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.placementFailures.WithLabelValues(reason).Inc()
}

// ObservePlacementDuration records how long a placement took.
func (m *PipelineMetrics) ObservePlacementDuration(d time.Duration) {
	if m == nil || m.placementDuration == nil {
		return
	}
	m.placementDuration.Observe(d.Seconds())
}

// IncCartCacheHit counts a cart served from the cache mirror.
func (m *PipelineMetrics) IncCartCacheHit() {
	if m == nil || m.cartCacheLookups == nil {
		return
	}
	m.cartCacheLookups.WithLabelValues("hit").Inc()
}

// IncCartCacheMiss counts a cart lookup that fell through to the repository.
func (m *PipelineMetrics) IncCartCacheMiss() {
	if m == nil || m.cartCacheLookups == nil {
		return
	}
	m.cartCacheLookups.WithLabelValues("miss").Inc()
}

// IncOutboxPublished counts a successfully published outbox event.
func (m *PipelineMetrics) IncOutboxPublished() {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.Inc()
}

// IncOutboxFailure counts a failed publish attempt.
func (m *PipelineMetrics) IncOutboxFailure() {
	if m == nil || m.outboxFailures == nil {
		return
	}
	m.outboxFailures.Inc()
}

// IncOutboxDeadLetter counts an event routed to the DLQ.
func (m *PipelineMetrics) IncOutboxDeadLetter() {
	if m == nil || m.outboxDeadLetters == nil {
		return
	}
	m.outboxDeadLetters.Inc()
}
