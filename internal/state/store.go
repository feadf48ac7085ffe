package state

import (
	"sync"
	"time"

	"github.com/mkmtelecom/outagemon/internal/config"
	"github.com/mkmtelecom/outagemon/internal/event"
	"github.com/mkmtelecom/outagemon/internal/probe"
)

// Result pairs a target name with its probe outcome for one tick.
type Result struct {
	Target  string
	Outcome probe.Outcome
}

// Transition describes a debounced state change committed by Apply.
type Transition struct {
	Target string
	Down   bool
	At     time.Time
	// Event is set when a recovery closed an outage interval.
	Event *event.Outage
}

// Store owns the per-target detectors and history buffers. All mutation goes
// through Apply, which commits one whole tick under a single lock, so the
// detectors and histories themselves need no synchronization.
type Store struct {
	mu         sync.RWMutex
	order      []string
	targets    map[string]*targetEntry
	thresholds Thresholds
	historyCap int
}

type targetEntry struct {
	name         string
	address      string
	group        string
	detector     *Detector
	history      *History
	observed     bool
	lastLatency  time.Duration
	totalSuccess int
	totalFailure int
}

// NewStore creates a store initialized with the provided targets. The target
// list is fixed for the store's lifetime.
func NewStore(targets []config.TargetConfig, thresholds Thresholds, historyCap int) *Store {
	s := &Store{
		targets:    make(map[string]*targetEntry, len(targets)),
		thresholds: thresholds.withDefaults(),
		historyCap: historyCap,
	}
	for _, tgt := range targets {
		if _, ok := s.targets[tgt.Name]; ok {
			continue
		}
		s.order = append(s.order, tgt.Name)
		s.targets[tgt.Name] = &targetEntry{
			name:     tgt.Name,
			address:  tgt.Address,
			group:    tgt.Group,
			detector: NewDetector(s.thresholds),
			history:  NewHistory(historyCap),
		}
	}
	return s
}

// Apply commits one tick worth of results atomically and returns the
// transitions it caused. Results for unknown targets are ignored.
func (s *Store) Apply(now time.Time, results []Result) []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	var transitions []Transition
	for _, res := range results {
		entry, ok := s.targets[res.Target]
		if !ok {
			continue
		}

		wasDown := entry.detector.InOutage()
		sample, interval := entry.detector.Observe(res.Outcome.Success, res.Outcome.Latency, now)
		entry.history.Record(sample)
		entry.observed = true

		if res.Outcome.Success {
			entry.totalSuccess++
			entry.lastLatency = sample.Latency
		} else {
			entry.totalFailure++
		}

		isDown := entry.detector.InOutage()
		switch {
		case !wasDown && isDown:
			transitions = append(transitions, Transition{Target: entry.name, Down: true, At: now})
		case interval != nil:
			ev := event.NewOutage(entry.name, interval.Start, interval.End)
			transitions = append(transitions, Transition{Target: entry.name, At: now, Event: &ev})
		}
	}
	return transitions
}

// Snapshot returns a copy of all target states in configuration order.
func (s *Store) Snapshot() []TargetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TargetStatus, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, s.targets[name].status())
	}
	return result
}

// TargetStatus returns a copy of a single target's state.
func (s *Store) TargetStatus(name string) (TargetStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.targets[name]
	if !ok {
		return TargetStatus{}, false
	}
	return entry.status(), true
}

// HistoryCapacity reports the per-target history size.
func (s *Store) HistoryCapacity() int {
	return s.historyCap
}

func (e *targetEntry) status() TargetStatus {
	fail, success := e.detector.Streaks()
	status := StatusUnknown
	if e.observed {
		if e.detector.InOutage() {
			status = StatusDown
		} else {
			status = StatusUp
		}
	}
	return TargetStatus{
		Name:          e.name,
		Address:       e.address,
		Group:         e.group,
		Status:        status,
		InOutage:      e.detector.InOutage(),
		FailStreak:    fail,
		SuccessStreak: success,
		OutageStart:   e.detector.OutageStart(),
		LastLatency:   e.lastLatency,
		TotalSuccess:  e.totalSuccess,
		TotalFailure:  e.totalFailure,
		History:       e.history.Samples(),
	}
}
