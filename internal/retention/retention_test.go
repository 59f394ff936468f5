package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chatlytics/logmonitor/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: "error", Format: "json"})
}

func TestSweepRemovesExpiredReports(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "error_report_20200101_000000_000.txt")
	young := filepath.Join(dir, "error_report_20260831_120000_000.txt")
	unrelated := filepath.Join(dir, "notes.txt")

	for _, path := range []string{old, young, unrelated} {
		if err := os.WriteFile(path, []byte("report"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}

	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}
	if err := os.Chtimes(unrelated, stale, stale); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}

	s := New(Config{Dir: dir, MaxAge: 24 * time.Hour, Logger: testLogger()})

	removed, err := s.SweepOnce()
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired report still present")
	}
	if _, err := os.Stat(young); err != nil {
		t.Error("young report removed")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("unrelated file removed")
	}
}

func TestSweepMissingDir(t *testing.T) {
	s := New(Config{
		Dir:    filepath.Join(t.TempDir(), "absent"),
		MaxAge: time.Hour,
		Logger: testLogger(),
	})

	if _, err := s.SweepOnce(); err == nil {
		t.Error("expected error for missing directory")
	}
}
