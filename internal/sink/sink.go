package sink

import (
	"context"

	"github.com/chatlytics/logmonitor/internal/logging"
	"github.com/chatlytics/logmonitor/internal/metrics"
	"github.com/chatlytics/logmonitor/pkg/types"
)

// Sink delivers an error report to a remote destination. Delivery is a single
// best-effort attempt; a returned error is logged by the caller, never
// retried.
type Sink interface {
	// Deliver sends the report. The context bounds the attempt.
	Deliver(ctx context.Context, report *types.ErrorReport) error

	// Name returns the sink's name for logging and metrics.
	Name() string
}

// Emitter persists reports locally and fans them out to remote sinks. The
// local write and each remote delivery are independent: a remote outage never
// affects the local file, and a full reports disk never blocks delivery.
type Emitter struct {
	local   *FileSink
	remotes []Sink
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewEmitter creates a new Emitter. The local sink is required; remotes may
// be empty.
func NewEmitter(local *FileSink, remotes []Sink, logger *logging.Logger) *Emitter {
	return &Emitter{
		local:   local,
		remotes: remotes,
		logger:  logger.WithComponent("emitter"),
	}
}

// SetMetrics enables per-sink delivery accounting.
func (e *Emitter) SetMetrics(c *metrics.Collector) {
	e.metrics = c
}

// Emit writes the report locally and attempts each remote delivery.
func (e *Emitter) Emit(ctx context.Context, report *types.ErrorReport) types.DeliveryResult {
	var result types.DeliveryResult

	path, err := e.local.Write(report)
	if err != nil {
		// Reports dir unavailable: the report is dropped locally, but remote
		// delivery still gets its attempt.
		e.logger.Error().Err(err).
			Str("category", string(report.Category)).
			Msg("Failed to save report locally")
	} else {
		result.LocalSaved = true
		result.LocalPath = path
		e.logger.Info().Str("path", path).Msg("Report saved")
	}

	if len(e.remotes) == 0 {
		return result
	}

	result.RemoteAttempted = true
	result.RemoteDelivered = true
	for _, remote := range e.remotes {
		if e.metrics != nil {
			e.metrics.DeliveryAttempts.WithLabelValues(remote.Name()).Inc()
		}
		if err := remote.Deliver(ctx, report); err != nil {
			result.RemoteDelivered = false
			if e.metrics != nil {
				e.metrics.DeliveryFailures.WithLabelValues(remote.Name()).Inc()
			}
			e.logger.Warn().Err(err).
				Str("sink", remote.Name()).
				Str("category", string(report.Category)).
				Msg("Remote delivery failed")
			continue
		}
		e.logger.Info().
			Str("sink", remote.Name()).
			Str("category", string(report.Category)).
			Msg("Report delivered")
	}

	return result
}
