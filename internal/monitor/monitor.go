package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/chatlytics/logmonitor/internal/aggregator"
	"github.com/chatlytics/logmonitor/internal/logging"
	"github.com/chatlytics/logmonitor/internal/matcher"
	"github.com/chatlytics/logmonitor/internal/metrics"
	"github.com/chatlytics/logmonitor/internal/ratelimit"
	"github.com/chatlytics/logmonitor/internal/tailer"
	"github.com/chatlytics/logmonitor/pkg/types"
)

// State is the loop state: sleeping between polls or processing a batch.
type State int32

const (
	StateIdle State = iota
	StateScanning
)

// Emitter persists and delivers an accepted report.
type Emitter interface {
	Emit(ctx context.Context, report *types.ErrorReport) types.DeliveryResult
}

// Monitor is the single-threaded polling driver. Each cycle tails the file,
// classifies every new line, aggregates matches into reports, applies the
// rate budget, and emits. No failure inside a cycle escapes to the host: a
// bad line is logged and skipped, a failed poll is retried next cycle.
type Monitor struct {
	tailer   *tailer.Tailer
	matcher  *matcher.Matcher
	agg      *aggregator.Aggregator
	limiter  *ratelimit.Limiter
	emitter  Emitter
	metrics  *metrics.Collector
	logger   *logging.Logger
	interval time.Duration
	watch    bool

	state atomic.Int32
}

// Config holds monitor configuration
type Config struct {
	Tailer     *tailer.Tailer
	Matcher    *matcher.Matcher
	Aggregator *aggregator.Aggregator
	Limiter    *ratelimit.Limiter
	Emitter    Emitter
	Metrics    *metrics.Collector
	Logger     *logging.Logger
	Interval   time.Duration
	// Watch wakes the loop early on file writes; polling stays active.
	Watch bool
}

// New creates a new Monitor
func New(cfg Config) *Monitor {
	return &Monitor{
		tailer:   cfg.Tailer,
		matcher:  cfg.Matcher,
		agg:      cfg.Aggregator,
		limiter:  cfg.Limiter,
		emitter:  cfg.Emitter,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.WithComponent("monitor"),
		interval: cfg.Interval,
		watch:    cfg.Watch,
	}
}

// State returns the current loop state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Run polls until the context is cancelled. An in-flight scan finishes its
// current line before the loop exits; the return is always nil so the host
// never sees a monitor failure.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info().
		Dur("interval", m.interval).
		Bool("watch", m.watch).
		Msg("Starting log monitor")

	var wake <-chan struct{}
	if m.watch {
		ch, err := m.tailer.Watch(ctx.Done())
		if err != nil {
			m.logger.Warn().Err(err).Msg("File watcher unavailable, polling only")
		} else {
			wake = ch
		}
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Log monitor stopped")
			return nil
		case <-ticker.C:
		case <-wake:
		}

		m.ScanOnce(ctx)
	}
}

// ScanOnce runs a single poll cycle: read new lines, classify, aggregate,
// rate-limit, emit.
func (m *Monitor) ScanOnce(ctx context.Context) {
	m.state.Store(int32(StateScanning))
	defer m.state.Store(int32(StateIdle))

	start := time.Now()

	lines, err := m.tailer.Poll()
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to read log file")
		return
	}

	for _, line := range lines {
		// Honor cancellation between lines; the batch resumes from the
		// cursor on the next start.
		select {
		case <-ctx.Done():
			return
		default:
		}
		m.processLine(ctx, line)
	}

	if m.metrics != nil {
		m.metrics.ScansTotal.Inc()
		m.metrics.ScanDuration.Observe(time.Since(start).Seconds())
		m.metrics.CursorOffset.Set(float64(m.tailer.Position().Offset))
	}
}

// processLine classifies and, when warranted, reports a single line. A panic
// while handling one line is contained here so the rest of the batch is
// unaffected.
func (m *Monitor) processLine(ctx context.Context, line string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Interface("panic", r).
				Str("line", line).
				Msg("Recovered while processing line")
		}
	}()

	if m.metrics != nil {
		m.metrics.LinesScanned.Inc()
	}

	event := m.matcher.Classify(line)
	m.agg.Observe(line)

	if event.Ignored {
		if m.metrics != nil {
			m.metrics.LinesIgnored.Inc()
		}
		return
	}
	if !event.Interesting {
		return
	}

	if m.metrics != nil {
		m.metrics.LinesMatched.WithLabelValues(string(event.Category)).Inc()
	}

	report := m.agg.Aggregate(line, event)
	if report == nil {
		if m.metrics != nil {
			m.metrics.ReportsSuppressed.WithLabelValues(metrics.SuppressedDedup).Inc()
		}
		m.logger.Debug().Str("line", line).Msg("Duplicate error suppressed")
		return
	}

	if !m.limiter.Allow() {
		if m.metrics != nil {
			m.metrics.ReportsSuppressed.WithLabelValues(metrics.SuppressedRateLimit).Inc()
		}
		m.logger.Warn().
			Str("category", string(report.Category)).
			Msg("Report budget exhausted, dropping report")
		return
	}

	m.logger.Warn().
		Str("category", string(report.Category)).
		Str("error", report.PrimaryMessage).
		Msg("Error detected")

	result := m.emitter.Emit(ctx, report)
	if result.LocalSaved && m.metrics != nil {
		m.metrics.ReportsEmitted.Inc()
	}
}
