package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chatlytics/logmonitor/pkg/types"
)

// Manager persists scan cursors so a restarted monitor can resume where it
// left off. Persistence is opt-in: a monitor built without a Manager simply
// starts fresh every run.
type Manager struct {
	mu        sync.RWMutex
	dir       string
	positions map[string]*types.FilePosition
	interval  time.Duration
	stopCh    chan struct{}
	saveCh    chan struct{}
	stopOnce  sync.Once
}

// NewManager creates a new checkpoint manager
func NewManager(dir string, interval time.Duration) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	m := &Manager{
		dir:       dir,
		positions: make(map[string]*types.FilePosition),
		interval:  interval,
		stopCh:    make(chan struct{}),
		saveCh:    make(chan struct{}, 1),
	}

	return m, nil
}

// Start starts the periodic checkpoint saving
func (m *Manager) Start() {
	go m.saveLoop()
}

// Stop stops the checkpoint manager and performs a final save
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.Save()
}

// UpdatePosition updates the cursor for a file and schedules a save
func (m *Manager) UpdatePosition(path string, offset int64, inode uint64) {
	m.mu.Lock()
	m.positions[path] = &types.FilePosition{
		Path:   path,
		Offset: offset,
		Inode:  inode,
	}
	m.mu.Unlock()

	select {
	case m.saveCh <- struct{}{}:
	default:
	}
}

// GetPosition retrieves the cursor for a file
func (m *Manager) GetPosition(path string) (*types.FilePosition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.positions[path]
	return pos, ok
}

// Load loads checkpoints from disk
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.file())
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No checkpoint file yet
		}
		return fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var positions map[string]*types.FilePosition
	if err := json.Unmarshal(data, &positions); err != nil {
		return fmt.Errorf("failed to unmarshal checkpoint data: %w", err)
	}

	m.positions = positions
	return nil
}

// Save saves checkpoints to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.positions, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint data: %w", err)
	}

	// Write to temporary file first, then rename for atomicity
	file := m.file()
	tmpFile := file + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	if err := os.Rename(tmpFile, file); err != nil {
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}

	return nil
}

func (m *Manager) file() string {
	return filepath.Join(m.dir, "positions.json")
}

// saveLoop periodically saves checkpoints
func (m *Manager) saveLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to save checkpoint: %v\n", err)
			}
		case <-m.saveCh:
			if err := m.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to save checkpoint: %v\n", err)
			}
		case <-m.stopCh:
			return
		}
	}
}
