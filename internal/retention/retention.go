package retention

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chatlytics/logmonitor/internal/logging"
)

// Sweeper deletes report files older than the configured age. Only files
// carrying the report prefix are touched; anything else in the directory is
// left alone.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *logging.Logger
}

// Config holds sweeper configuration
type Config struct {
	Dir    string
	MaxAge time.Duration
	// Interval between sweeps; defaults to one hour.
	Interval time.Duration
	Logger   *logging.Logger
}

const reportPrefix = "error_report_"

// New creates a new Sweeper
func New(cfg Config) *Sweeper {
	interval := cfg.Interval
	if interval == 0 {
		interval = time.Hour
	}
	return &Sweeper{
		dir:      cfg.Dir,
		maxAge:   cfg.MaxAge,
		interval: interval,
		logger:   cfg.Logger.WithComponent("retention"),
	}
}

// Run sweeps periodically until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := s.SweepOnce()
			if err != nil {
				s.logger.Warn().Err(err).Msg("Retention sweep failed")
			} else if removed > 0 {
				s.logger.Info().Int("removed", removed).Msg("Expired reports removed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce removes expired report files and returns how many were deleted.
func (s *Sweeper) SweepOnce() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), reportPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove expired report")
			continue
		}
		removed++
	}

	return removed, nil
}
