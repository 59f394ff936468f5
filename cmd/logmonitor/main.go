package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chatlytics/logmonitor/internal/aggregator"
	"github.com/chatlytics/logmonitor/internal/checkpoint"
	"github.com/chatlytics/logmonitor/internal/config"
	"github.com/chatlytics/logmonitor/internal/health"
	"github.com/chatlytics/logmonitor/internal/logging"
	"github.com/chatlytics/logmonitor/internal/matcher"
	"github.com/chatlytics/logmonitor/internal/metrics"
	"github.com/chatlytics/logmonitor/internal/monitor"
	"github.com/chatlytics/logmonitor/internal/ratelimit"
	"github.com/chatlytics/logmonitor/internal/retention"
	"github.com/chatlytics/logmonitor/internal/server"
	"github.com/chatlytics/logmonitor/internal/sink"
	"github.com/chatlytics/logmonitor/internal/tailer"
	"github.com/chatlytics/logmonitor/pkg/types"
)

var (
	configFile = flag.String("config", "monitor.yaml", "Path to configuration file")
	logFile    = flag.String("log-file", "", "Log file to monitor (overrides config)")
	interval   = flag.Duration("interval", 0, "Check interval (overrides config)")
	remoteURL  = flag.String("remote-url", "", "Remote report endpoint (overrides config)")
	version    = "0.1.0"
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadOrDefault(*configFile)
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		MaxBackups:  cfg.Logging.MaxBackups,
		CompressOld: cfg.Logging.CompressOld,
	})
	logging.SetGlobal(logger)

	logger.Info().
		Str("version", version).
		Str("log_file", cfg.Monitor.LogFile).
		Dur("interval", cfg.Monitor.CheckInterval).
		Msg("Starting log monitor")

	collector := metrics.NewCollector()

	// Optional cursor persistence across restarts.
	var ckptMgr *checkpoint.Manager
	if cfg.Checkpoint.Enabled {
		var err error
		ckptMgr, err = checkpoint.NewManager(cfg.Checkpoint.Dir, cfg.Checkpoint.Interval)
		if err != nil {
			return fmt.Errorf("failed to create checkpoint manager: %w", err)
		}
		if err := ckptMgr.Load(); err != nil {
			logger.Warn().Err(err).Msg("Failed to load checkpoints, starting fresh")
		}
		ckptMgr.Start()
		defer ckptMgr.Stop()
	}

	t := tailer.New(tailer.Config{
		Path:          cfg.Monitor.LogFile,
		FromBeginning: cfg.Monitor.FromBeginning,
		Checkpoint:    ckptMgr,
		Logger:        logger,
	})

	m, err := matcher.New(toRules(cfg.Patterns.Ignore), toRules(cfg.Patterns.Interest))
	if err != nil {
		return fmt.Errorf("failed to compile patterns: %w", err)
	}

	agg := aggregator.New(aggregator.Config{
		ContextLines: cfg.Aggregator.ContextLines,
		DedupWindow:  cfg.Aggregator.DedupWindow,
		SourceFile:   cfg.Monitor.LogFile,
	})

	limiter := ratelimit.New(cfg.RateLimit.MaxReports, cfg.RateLimit.Window)

	local, err := sink.NewFileSink(cfg.Reports.Dir)
	if err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	var remotes []sink.Sink
	if cfg.Reports.RemoteURL != "" {
		remotes = append(remotes, sink.NewWebhookSink(sink.WebhookConfig{
			URL:     cfg.Reports.RemoteURL,
			Timeout: cfg.Reports.RemoteTimeout,
			Project: cfg.Reports.Project,
			Files:   cfg.Reports.Files,
		}))
	} else {
		logger.Warn().Msg("No remote endpoint configured, reports are saved locally only")
	}
	if tg := cfg.Notifications.Telegram; tg != nil && tg.Enabled {
		remotes = append(remotes, sink.NewTelegramSink(sink.TelegramConfig{
			Token:  tg.Token,
			ChatID: tg.ChatID,
		}))
	}

	emitter := sink.NewEmitter(local, remotes, logger)
	emitter.SetMetrics(collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Retention sweep for old report files.
	sweeper := retention.New(retention.Config{
		Dir:    cfg.Reports.Dir,
		MaxAge: time.Duration(cfg.Reports.RetentionDays) * 24 * time.Hour,
		Logger: logger,
	})
	go sweeper.Run(ctx)

	if cfg.Server.Enabled {
		checker := health.NewChecker(0)
		checker.Register("log_file", logFileCheck(cfg.Monitor.LogFile))
		checker.Register("reports_dir", reportsDirCheck(cfg.Reports.Dir))

		ops := server.New(server.Config{
			Address:  cfg.Server.Address,
			Registry: collector.Registry(),
			Checker:  checker,
			Logger:   logger,
		})
		ops.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ops.Stop(shutdownCtx)
		}()
	}

	mon := monitor.New(monitor.Config{
		Tailer:     t,
		Matcher:    m,
		Aggregator: agg,
		Limiter:    limiter,
		Emitter:    emitter,
		Metrics:    collector,
		Logger:     logger,
		Interval:   cfg.Monitor.CheckInterval,
		Watch:      cfg.Monitor.Watch,
	})

	if err := mon.Run(ctx); err != nil {
		return err
	}

	if ckptMgr != nil {
		pos := t.Position()
		ckptMgr.UpdatePosition(pos.Path, pos.Offset, pos.Inode)
	}

	return nil
}

// applyFlags overrides config values with explicitly set flags.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-file":
			cfg.Monitor.LogFile = *logFile
		case "interval":
			cfg.Monitor.CheckInterval = *interval
		case "remote-url":
			cfg.Reports.RemoteURL = *remoteURL
		}
	})
}

func toRules(rules []config.PatternRule) []matcher.Rule {
	out := make([]matcher.Rule, 0, len(rules))
	for _, r := range rules {
		cat, _ := types.ParseCategory(r.Category)
		out = append(out, matcher.Rule{Pattern: r.Pattern, Category: cat})
	}
	return out
}

func logFileCheck(path string) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		f, err := os.Open(path)
		if err != nil {
			// A missing log file is a transient condition, not an outage.
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: err.Error(),
			}
		}
		f.Close()
		return health.ComponentHealth{Status: health.StatusHealthy}
	}
}

func reportsDirCheck(dir string) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		probe := filepath.Join(dir, ".health_probe")
		if err := os.WriteFile(probe, nil, 0644); err != nil {
			return health.ComponentHealth{
				Status:  health.StatusUnhealthy,
				Message: err.Error(),
			}
		}
		os.Remove(probe)
		return health.ComponentHealth{Status: health.StatusHealthy}
	}
}
