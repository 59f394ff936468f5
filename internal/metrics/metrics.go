package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const namespace = "logmonitor"

// Collector provides a central place for all monitor metrics
type Collector struct {
	// Scan metrics
	ScansTotal   prometheus.Counter
	ScanDuration prometheus.Histogram
	CursorOffset prometheus.Gauge

	// Classification metrics
	LinesScanned prometheus.Counter
	LinesIgnored prometheus.Counter
	LinesMatched *prometheus.CounterVec

	// Report metrics
	ReportsEmitted    prometheus.Counter
	ReportsSuppressed *prometheus.CounterVec

	// Delivery metrics
	DeliveryAttempts *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec

	registry *prometheus.Registry
}

// Suppression reasons
const (
	SuppressedDedup     = "dedup"
	SuppressedRateLimit = "rate_limit"
)

// NewCollector creates a new metrics collector on a private registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of poll cycles executed",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of a single poll cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		CursorOffset: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor_offset_bytes",
			Help:      "Current byte offset of the log cursor",
		}),
		LinesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_scanned_total",
			Help:      "Total number of log lines classified",
		}),
		LinesIgnored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_ignored_total",
			Help:      "Total number of lines suppressed by ignore patterns",
		}),
		LinesMatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_matched_total",
			Help:      "Total number of lines matching an interest pattern",
		}, []string{"category"}),
		ReportsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_emitted_total",
			Help:      "Total number of reports persisted locally",
		}),
		ReportsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_suppressed_total",
			Help:      "Total number of reports suppressed before emission",
		}, []string{"reason"}),
		DeliveryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Total number of remote delivery attempts",
		}, []string{"sink"}),
		DeliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of failed remote deliveries",
		}, []string{"sink"}),
		registry: registry,
	}
}

// Registry returns the underlying registry for the metrics endpoint
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
