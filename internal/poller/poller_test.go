package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkmtelecom/outagemon/internal/config"
	"github.com/mkmtelecom/outagemon/internal/event"
	"github.com/mkmtelecom/outagemon/internal/log"
	"github.com/mkmtelecom/outagemon/internal/probe"
	"github.com/mkmtelecom/outagemon/internal/state"
)

type scriptedProber struct {
	mu       sync.Mutex
	outcomes map[string][]probe.Outcome
	calls    map[string]int
}

func newScriptedProber() *scriptedProber {
	return &scriptedProber{
		outcomes: make(map[string][]probe.Outcome),
		calls:    make(map[string]int),
	}
}

func (p *scriptedProber) script(addr string, outcomes ...probe.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[addr] = append(p.outcomes[addr], outcomes...)
}

func (p *scriptedProber) Probe(ctx context.Context, addr string, timeout time.Duration) probe.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[addr]++
	queue := p.outcomes[addr]
	if len(queue) == 0 {
		return probe.Outcome{Success: true, Latency: time.Millisecond}
	}
	next := queue[0]
	p.outcomes[addr] = queue[1:]
	return next
}

func (p *scriptedProber) callCount(addr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[addr]
}

type recordingSink struct {
	mu     sync.Mutex
	events []event.Outage
	err    error
}

func (s *recordingSink) Append(ev event.Outage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) all() []event.Outage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Outage, len(s.events))
	copy(out, s.events)
	return out
}

func testTargets(names ...string) []config.TargetConfig {
	targets := make([]config.TargetConfig, 0, len(names))
	for _, name := range names {
		targets = append(targets, config.TargetConfig{Name: name, Address: name})
	}
	return targets
}

func testPoller(targets []config.TargetConfig, prober probe.Prober, sink Sink) (*Poller, *state.Store) {
	store := state.NewStore(targets, state.Thresholds{Loss: 2, Recovery: 2}, 30)
	global := config.GlobalOptions{Interval: time.Second, Timeout: time.Second}
	p := New(global, targets, prober, store, sink, log.NewLogger(log.LevelError))
	return p, store
}

// stepClock returns a clock that advances one second per call, starting at a
// fixed instant so outage timestamps are deterministic.
func stepClock() func() time.Time {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var n int
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := base.Add(time.Duration(n) * time.Second)
		n++
		return t
	}
}

func TestTickProbesEveryTarget(t *testing.T) {
	prober := newScriptedProber()
	targets := testTargets("a", "b", "c")
	p, store := testPoller(targets, prober, nil)
	p.SetNow(stepClock())

	p.tick(context.Background())

	for _, tgt := range targets {
		if got := prober.callCount(tgt.Name); got != 1 {
			t.Fatalf("target %s probed %d times, want 1", tgt.Name, got)
		}
	}
	for _, st := range store.Snapshot() {
		if st.Status != state.StatusUp {
			t.Fatalf("target %s status %v after successful tick, want up", st.Name, st.Status)
		}
	}
}

func TestTickAppliesWholeTickAtOnce(t *testing.T) {
	prober := newScriptedProber()
	prober.script("a", probe.Outcome{Success: false, Err: errors.New("unreachable")})
	prober.script("b", probe.Outcome{Success: true, Latency: 5 * time.Millisecond})

	p, store := testPoller(testTargets("a", "b"), prober, nil)
	p.SetNow(stepClock())

	p.tick(context.Background())

	a, _ := store.TargetStatus("a")
	b, _ := store.TargetStatus("b")
	if a.FailStreak != 1 {
		t.Fatalf("expected one recorded failure for a, got %d", a.FailStreak)
	}
	if b.SuccessStreak != 1 {
		t.Fatalf("expected one recorded success for b, got %d", b.SuccessStreak)
	}
	if len(a.History) != len(b.History) {
		t.Fatalf("expected equal history lengths after one tick, got %d/%d", len(a.History), len(b.History))
	}
}

func TestOutageEventReachesSink(t *testing.T) {
	prober := newScriptedProber()
	prober.script("a",
		probe.Outcome{Success: false, Err: errors.New("unreachable")},
		probe.Outcome{Success: false, Err: errors.New("unreachable")},
		probe.Outcome{Success: true, Latency: time.Millisecond},
		probe.Outcome{Success: true, Latency: time.Millisecond},
	)

	sink := &recordingSink{}
	p, _ := testPoller(testTargets("a"), prober, sink)
	p.SetNow(stepClock())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		p.tick(ctx)
	}

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("expected exactly one outage event, got %d", len(events))
	}
	ev := events[0]
	if ev.Target != "a" {
		t.Fatalf("unexpected event target %q", ev.Target)
	}
	if ev.DurationS <= 0 {
		t.Fatalf("expected positive outage duration, got %v", ev.DurationS)
	}
}

func TestSinkErrorDoesNotStopLoop(t *testing.T) {
	prober := newScriptedProber()
	prober.script("a",
		probe.Outcome{Success: false, Err: errors.New("unreachable")},
		probe.Outcome{Success: false, Err: errors.New("unreachable")},
	)

	sink := &recordingSink{err: errors.New("disk full")}
	p, store := testPoller(testTargets("a"), prober, sink)
	p.SetNow(stepClock())

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		p.tick(ctx)
	}

	st, _ := store.TargetStatus("a")
	if st.Status != state.StatusUp {
		t.Fatalf("expected target recovered despite sink failure, got %v", st.Status)
	}
}

func TestCancelledTickAppliesNothing(t *testing.T) {
	prober := newScriptedProber()
	p, store := testPoller(testTargets("a"), prober, nil)
	p.SetNow(stepClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.tick(ctx)

	st, _ := store.TargetStatus("a")
	if st.Status != state.StatusUnknown {
		t.Fatalf("expected no state recorded for abandoned tick, got %v", st.Status)
	}
	if len(st.History) != 0 {
		t.Fatalf("expected empty history after abandoned tick, got %d samples", len(st.History))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	prober := newScriptedProber()
	p, _ := testPoller(testTargets("a"), prober, nil)
	p.SetNow(stepClock())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("poller did not stop after cancellation")
	}
}

func TestFailureLatencyNotRecorded(t *testing.T) {
	prober := newScriptedProber()
	prober.script("a", probe.Outcome{Success: false, Latency: 42 * time.Millisecond, Err: errors.New("unreachable")})

	p, store := testPoller(testTargets("a"), prober, nil)
	p.SetNow(stepClock())

	p.tick(context.Background())

	st, _ := store.TargetStatus("a")
	if len(st.History) != 1 {
		t.Fatalf("expected one history sample, got %d", len(st.History))
	}
	sample := st.History[0]
	if !sample.Failed {
		t.Fatalf("expected failed sample")
	}
	if sample.Latency != 0 {
		t.Fatalf("expected zero latency on failed sample, got %v", sample.Latency)
	}
}
