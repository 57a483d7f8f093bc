package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SitesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mutgos_sites_total",
			Help: "Total number of sites",
		},
	)

	EntitiesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mutgos_entities_total",
			Help: "Total number of entities by site and type",
		},
		[]string{"site", "type"},
	)

	CacheRefsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mutgos_cache_refs_total",
			Help: "Total live cache references by site",
		},
		[]string{"site"},
	)

	UpdateQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mutgos_update_queue_depth",
			Help: "Entities pending flush in the Update Manager",
		},
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mutgos_flush_duration_seconds",
			Help:    "Time taken for an Update Manager flush pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeleteCascadeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mutgos_delete_cascade_duration_seconds",
			Help:    "Time taken for a deferred cascading delete",
			Buckets: prometheus.DefBuckets,
		},
	)

	SecurityDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutgos_security_decisions_total",
			Help: "Total security evaluator decisions by flag and outcome",
		},
		[]string{"flag", "outcome"},
	)

	ClientMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutgos_client_messages_total",
			Help: "Total client-message-codec encodes and decodes by message type and direction",
		},
		[]string{"message_type", "direction"},
	)

	ChannelSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutgos_channel_sends_total",
			Help: "Total channel dispatch sends by outcome",
		},
		[]string{"outcome"},
	)

	DbOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mutgos_dbaccess_op_duration_seconds",
			Help:    "Database Access façade operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		SitesTotal,
		EntitiesTotal,
		CacheRefsTotal,
		UpdateQueueDepth,
		FlushDuration,
		DeleteCascadeDuration,
		SecurityDecisionsTotal,
		ClientMessagesTotal,
		ChannelSendsTotal,
		DbOpDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
