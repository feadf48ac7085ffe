package event

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Log persists completed outage events to a JSON file. The whole list is
// rewritten on every append so the file is always valid JSON.
type Log struct {
	mu     sync.RWMutex
	path   string
	events []Outage
}

// OpenLog loads existing events from path, tolerating a missing or corrupt
// file by starting empty.
func OpenLog(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure events directory: %w", err)
		}
	}
	l := &Log{path: path}
	l.events = loadEvents(path)
	return l, nil
}

func loadEvents(path string) []Outage {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}
	var events []Outage
	if err := json.Unmarshal(data, &events); err != nil {
		// A damaged file should not prevent recording new outages.
		return nil
	}
	return events
}

// Append records one event and persists the file. The event stays in memory
// even when the write fails, so a later append can retry the flush.
func (l *Log) Append(ev Outage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ev)
	return l.persistLocked()
}

// Events returns a copy of all recorded events in append order.
func (l *Log) Events() []Outage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.events) == 0 {
		return nil
	}
	out := make([]Outage, len(l.events))
	copy(out, l.events)
	return out
}

// Len reports the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

func (l *Log) persistLocked() error {
	bytes, err := json.MarshalIndent(l.events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", l.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp events file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace events file: %w", err)
	}
	return nil
}
