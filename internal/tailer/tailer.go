package tailer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/chatlytics/logmonitor/internal/checkpoint"
	"github.com/chatlytics/logmonitor/internal/logging"
	"github.com/chatlytics/logmonitor/pkg/types"
)

// Tailer incrementally reads new lines appended to a log file. Each Poll
// returns the complete lines written since the previous Poll and advances the
// cursor past exactly the bytes consumed; a trailing line without a
// terminator is left for the next Poll. The cursor only moves forward, except
// on truncation or rotation, where it resets to the start of the new file.
type Tailer struct {
	path          string
	fromBeginning bool
	checkpointMgr *checkpoint.Manager
	logger        *logging.Logger

	offset      int64
	inode       uint64
	initialized bool
}

// Config holds tailer configuration
type Config struct {
	// Path is the log file to tail.
	Path string
	// FromBeginning starts the cursor at offset 0 instead of end-of-file.
	FromBeginning bool
	// Checkpoint, when set, persists and restores the cursor across restarts.
	Checkpoint *checkpoint.Manager
	Logger     *logging.Logger
}

// New creates a new Tailer. The file does not need to exist yet; a missing
// file is a recoverable condition reported as an empty Poll.
func New(cfg Config) *Tailer {
	return &Tailer{
		path:          cfg.Path,
		fromBeginning: cfg.FromBeginning,
		checkpointMgr: cfg.Checkpoint,
		logger:        cfg.Logger.WithComponent("tailer"),
	}
}

// Poll reads all complete lines appended since the last call.
func (t *Tailer) Poll() ([]string, error) {
	file, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.logger.Debug().Str("path", t.path).Msg("Log file not found, keeping cursor")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	size := stat.Size()
	inode := getInode(stat)

	if !t.initialized {
		t.initialize(size, inode)
	} else if (t.inode != 0 && inode != 0 && inode != t.inode) || size < t.offset {
		// The file was rotated or truncated underneath us. Everything in the
		// new file is unread.
		t.logger.Info().
			Str("path", t.path).
			Int64("offset", t.offset).
			Int64("size", size).
			Msg("Rotation detected, rereading from start")
		t.offset = 0
		t.inode = inode
	}

	if size <= t.offset {
		return nil, nil
	}

	if _, err := file.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to offset: %w", err)
	}

	buf, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	// Consume only up to the last line terminator; an unfinished trailing
	// line is revisited next poll.
	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		return nil, nil
	}

	complete := buf[:end+1]
	t.offset += int64(len(complete))

	if t.checkpointMgr != nil {
		t.checkpointMgr.UpdatePosition(t.path, t.offset, t.inode)
	}

	raw := strings.Split(string(complete[:len(complete)-1]), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}

	return lines, nil
}

// initialize places the cursor for the first successful open.
func (t *Tailer) initialize(size int64, inode uint64) {
	t.initialized = true
	t.inode = inode

	if t.checkpointMgr != nil {
		if pos, ok := t.checkpointMgr.GetPosition(t.path); ok {
			if pos.Inode == inode && pos.Offset <= size {
				t.offset = pos.Offset
				t.logger.Info().Str("path", t.path).Int64("offset", t.offset).Msg("Resuming from checkpoint")
				return
			}
			// The file was rotated or truncated while we were down. Same rule
			// as an in-process rotation: everything in the new file is unread.
			t.offset = 0
			t.logger.Info().
				Str("path", t.path).
				Int64("checkpoint_offset", pos.Offset).
				Int64("size", size).
				Msg("Checkpoint predates rotation, rereading from start")
			return
		}
	}

	if t.fromBeginning {
		t.offset = 0
		t.logger.Info().Str("path", t.path).Msg("Starting from beginning of file")
		return
	}

	t.offset = size
	t.logger.Info().Str("path", t.path).Msg("Starting from end of file")
}

// Position returns the current cursor.
func (t *Tailer) Position() types.FilePosition {
	return types.FilePosition{
		Path:   t.path,
		Offset: t.offset,
		Inode:  t.inode,
	}
}

// Watch arms a filesystem watcher on the log file's directory and returns a
// channel that receives a coalesced signal whenever the file is written or
// recreated. Interval polling remains the caller's responsibility; the
// channel only lets it scan sooner. The watcher shuts down when done is
// closed.
func (t *Tailer) Watch(done <-chan struct{}) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so the signal survives rotation of the file itself.
	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	wake := make(chan struct{}, 1)
	target := filepath.Clean(t.path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.logger.Warn().Err(err).Msg("File watcher error")
			case <-done:
				return
			}
		}
	}()

	return wake, nil
}

// getInode extracts the inode from FileInfo, or 0 where unsupported.
func getInode(fi os.FileInfo) uint64 {
	if stat, ok := fi.Sys().(*syscall.Stat_t); ok {
		return stat.Ino
	}
	return 0
}
