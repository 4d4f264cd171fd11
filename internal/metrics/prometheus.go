// Package metrics exposes watcher instrumentation as Prometheus collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ignite/seatwatch/internal/domain"
)

// Cycle outcomes.
const (
	CycleOK      = "ok"
	CycleIdle    = "idle"
	CycleError   = "error"
	CycleOutage  = "feed_unavailable"
	CycleSkipped = "lock_busy"
)

// Collector holds the watcher's metrics.
type Collector struct {
	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	stageDuration  *prometheus.HistogramVec
	chunkQueries   *prometheus.CounterVec
	chunkLatency   prometheus.Histogram
	sends          *prometheus.CounterVec
	sendLatency    prometheus.Histogram
	prunes         *prometheus.CounterVec
	subscriptions  prometheus.Gauge
	chunksSelected prometheus.Gauge
	catalogCodes   prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

// NewPrometheus creates and registers the collectors. reg defaults to
// prometheus.DefaultRegisterer and namespace to "seatwatch".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "seatwatch"
	}

	c := &Collector{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Reconciliation cycles by outcome.",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a reconciliation cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each cycle stage.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"stage"}),
		chunkQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "chunk_queries_total",
			Help:      "Catalog feed chunk queries by result.",
		}, []string{"result"}),
		chunkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "chunk_query_seconds",
			Help:      "Latency of catalog feed chunk queries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Notification sends by status, channel and result.",
		}, []string{"status", "channel", "result"}),
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "send_seconds",
			Help:      "Latency of a single notification send.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11),
		}),
		prunes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "prunes_total",
			Help:      "Recipients pruned, and prune requests that failed.",
		}, []string{"result"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribed_sections",
			Help:      "Sections with at least one recipient in the last cycle.",
		}),
		chunksSelected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_selected",
			Help:      "Catalog chunks queried in the last cycle.",
		}),
		catalogCodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_codes",
			Help:      "Section codes in the catalog snapshot.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that completed without error.",
		}),
	}

	reg.MustRegister(
		c.cycles, c.cycleDuration, c.stageDuration,
		c.chunkQueries, c.chunkLatency,
		c.sends, c.sendLatency, c.prunes,
		c.subscriptions, c.chunksSelected, c.catalogCodes, c.lastSuccess,
	)
	return c
}

// ObserveCycle records a finished cycle.
func (c *Collector) ObserveCycle(result string, d time.Duration) {
	c.cycles.WithLabelValues(result).Inc()
	c.cycleDuration.Observe(d.Seconds())
	if result == CycleOK || result == CycleIdle {
		c.lastSuccess.Set(float64(time.Now().Unix()))
	}
}

// ObserveStage records one stage's duration.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveChunk records one feed query.
func (c *Collector) ObserveChunk(err error, d time.Duration) {
	c.chunkQueries.WithLabelValues(result(err)).Inc()
	c.chunkLatency.Observe(d.Seconds())
}

// ObserveSend records one delivery attempt.
func (c *Collector) ObserveSend(status, channel string, err error, d time.Duration) {
	outcome := result(err)
	if errors.Is(err, domain.ErrNotDelivered) {
		outcome = "not_delivered"
	}
	c.sends.WithLabelValues(status, channel, outcome).Inc()
	c.sendLatency.Observe(d.Seconds())
}

// ObservePrunes records pruned recipients and failed prune requests.
func (c *Collector) ObservePrunes(pruned, failed int) {
	c.prunes.WithLabelValues("pruned").Add(float64(pruned))
	c.prunes.WithLabelValues("failed").Add(float64(failed))
}

// SetCycleShape records the size of the last cycle's working set.
func (c *Collector) SetCycleShape(subscriptions, chunks int) {
	c.subscriptions.Set(float64(subscriptions))
	c.chunksSelected.Set(float64(chunks))
}

// SetCatalogSize records the snapshot size.
func (c *Collector) SetCatalogSize(n int) { c.catalogCodes.Set(float64(n)) }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
