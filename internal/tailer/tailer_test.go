package tailer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/chatlytics/logmonitor/internal/checkpoint"
	"github.com/chatlytics/logmonitor/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: "error", Format: "json"})
}

func newTestTailer(t *testing.T, path string) *Tailer {
	t.Helper()
	return New(Config{
		Path:          path,
		FromBeginning: true,
		Logger:        testLogger(),
	})
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	f.Close()
}

func TestPollAccumulatesWithoutLossOrDuplication(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	tailer := newTestTailer(t, logFile)

	appendFile(t, logFile, "line1\nline2\n")
	appendFile(t, logFile, "line3\n")

	var got []string
	for i := 0; i < 3; i++ {
		lines, err := tailer.Poll()
		if err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		got = append(got, lines...)
	}

	appendFile(t, logFile, "line4\nline5\n")
	lines, err := tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	got = append(got, lines...)

	want := []string{"line1", "line2", "line3", "line4", "line5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("concatenated polls = %v, want %v", got, want)
	}
}

func TestPollHoldsBackPartialLine(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	tailer := newTestTailer(t, logFile)

	appendFile(t, logFile, "complete\npartial")

	lines, err := tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"complete"}) {
		t.Errorf("got %v, want [complete]", lines)
	}

	// Nothing new and still no terminator: nothing to report.
	lines, err = tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %v, want no lines", lines)
	}

	// Terminator arrives; the whole held-back line is delivered once.
	appendFile(t, logFile, " line finished\n")
	lines, err = tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"partial line finished"}) {
		t.Errorf("got %v, want [partial line finished]", lines)
	}
}

func TestPollRereadsAfterTruncation(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	tailer := newTestTailer(t, logFile)

	appendFile(t, logFile, "old1\nold2\nold3\n")
	if _, err := tailer.Poll(); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	// Truncate in place, as logrotate's copytruncate would.
	if err := os.WriteFile(logFile, []byte("fresh\n"), 0644); err != nil {
		t.Fatalf("Failed to truncate file: %v", err)
	}

	lines, err := tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"fresh"}) {
		t.Errorf("got %v, want [fresh]", lines)
	}
}

func TestPollRereadsAfterRename(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	tailer := newTestTailer(t, logFile)

	appendFile(t, logFile, "before1\nbefore2\n")
	if _, err := tailer.Poll(); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	if err := os.Rename(logFile, logFile+".1"); err != nil {
		t.Fatalf("Failed to rotate file: %v", err)
	}
	appendFile(t, logFile, "after1\n")

	lines, err := tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"after1"}) {
		t.Errorf("got %v, want [after1]", lines)
	}
}

func TestPollMissingFileIsRecoverable(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "absent.log")

	tailer := newTestTailer(t, logFile)

	lines, err := tailer.Poll()
	if err != nil {
		t.Fatalf("Poll of missing file should not fail: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %v, want no lines", lines)
	}

	// File appears later and is picked up.
	appendFile(t, logFile, "appeared\n")
	lines, err = tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"appeared"}) {
		t.Errorf("got %v, want [appeared]", lines)
	}
}

func TestPollStartsAtEndByDefault(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	appendFile(t, logFile, "historical1\nhistorical2\n")

	tailer := New(Config{Path: logFile, Logger: testLogger()})

	lines, err := tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %v, want no lines from before start", lines)
	}

	appendFile(t, logFile, "new\n")
	lines, err = tailer.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"new"}) {
		t.Errorf("got %v, want [new]", lines)
	}
}

func TestPollResumesFromCheckpoint(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")
	ckptDir := filepath.Join(tmpDir, "checkpoints")

	appendFile(t, logFile, "first\nsecond\n")

	ckptMgr, err := checkpoint.NewManager(ckptDir, time.Second)
	if err != nil {
		t.Fatalf("Failed to create checkpoint manager: %v", err)
	}

	first := New(Config{
		Path:          logFile,
		FromBeginning: true,
		Checkpoint:    ckptMgr,
		Logger:        testLogger(),
	})
	if _, err := first.Poll(); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if err := ckptMgr.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A fresh manager and tailer, as after a restart.
	restored, err := checkpoint.NewManager(ckptDir, time.Second)
	if err != nil {
		t.Fatalf("Failed to create checkpoint manager: %v", err)
	}
	if err := restored.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	appendFile(t, logFile, "third\n")

	second := New(Config{
		Path:          logFile,
		FromBeginning: true,
		Checkpoint:    restored,
		Logger:        testLogger(),
	})
	lines, err := second.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"third"}) {
		t.Errorf("got %v, want [third]", lines)
	}
}

func TestPollRereadsWhenCheckpointPredatesRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")
	ckptDir := filepath.Join(tmpDir, "checkpoints")

	appendFile(t, logFile, "old1\nold2\nold3\n")

	ckptMgr, err := checkpoint.NewManager(ckptDir, time.Second)
	if err != nil {
		t.Fatalf("Failed to create checkpoint manager: %v", err)
	}

	first := New(Config{
		Path:          logFile,
		FromBeginning: true,
		Checkpoint:    ckptMgr,
		Logger:        testLogger(),
	})
	if _, err := first.Poll(); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if err := ckptMgr.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Rotation happens while the monitor is down: the new file is shorter
	// than the saved offset.
	if err := os.WriteFile(logFile, []byte("fresh\n"), 0644); err != nil {
		t.Fatalf("Failed to truncate file: %v", err)
	}

	restored, err := checkpoint.NewManager(ckptDir, time.Second)
	if err != nil {
		t.Fatalf("Failed to create checkpoint manager: %v", err)
	}
	if err := restored.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// No FromBeginning: without the checkpoint rule the cursor would land at
	// end-of-file and skip the new file's content.
	second := New(Config{
		Path:       logFile,
		Checkpoint: restored,
		Logger:     testLogger(),
	})
	lines, err := second.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"fresh"}) {
		t.Errorf("got %v, want [fresh]", lines)
	}
}

func TestWatchSignalsOnWrite(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")
	appendFile(t, logFile, "seed\n")

	tailer := newTestTailer(t, logFile)

	done := make(chan struct{})
	defer close(done)

	wake, err := tailer.Watch(done)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	appendFile(t, logFile, "trigger\n")

	select {
	case <-wake:
	case <-time.After(5 * time.Second):
		t.Fatal("expected wake signal after write")
	}
}
