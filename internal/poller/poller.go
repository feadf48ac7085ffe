package poller

import (
	"context"
	"sync"
	"time"

	"github.com/mkmtelecom/outagemon/internal/config"
	"github.com/mkmtelecom/outagemon/internal/event"
	"github.com/mkmtelecom/outagemon/internal/log"
	"github.com/mkmtelecom/outagemon/internal/probe"
	"github.com/mkmtelecom/outagemon/internal/state"
)

// Sink receives completed outage events. Delivery is best effort; a failed
// append never blocks the loop.
type Sink interface {
	Append(ev event.Outage) error
}

// Poller drives the probe/apply cycle: each tick fans one probe per target
// out concurrently, joins all results, and commits them to the store in one
// sequential step.
type Poller struct {
	interval time.Duration
	timeout  time.Duration
	targets  []config.TargetConfig
	prober   probe.Prober
	store    *state.Store
	sink     Sink
	logger   *log.Logger
	now      func() time.Time
}

// New constructs a poller over a fixed target list.
func New(global config.GlobalOptions, targets []config.TargetConfig, prober probe.Prober, store *state.Store, sink Sink, logger *log.Logger) *Poller {
	interval := global.Interval
	if interval <= 0 {
		interval = time.Second
	}
	timeout := global.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	if logger == nil {
		logger = log.NewLogger(log.LevelInfo)
	}
	return &Poller{
		interval: interval,
		timeout:  timeout,
		targets:  targets,
		prober:   prober,
		store:    store,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// SetNow overrides the clock source. Intended for tests.
func (p *Poller) SetNow(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// Run ticks until the context is cancelled. The first tick starts
// immediately; each following tick starts one interval after the previous
// tick's dispatch returned.
func (p *Poller) Run(ctx context.Context) error {
	for {
		p.tick(ctx)

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tick probes every target concurrently, waits for all of them, and commits
// the joined results. A cancelled tick is abandoned whole so the store never
// sees a partial view.
func (p *Poller) tick(ctx context.Context) {
	results := make([]state.Result, len(p.targets))

	var wg sync.WaitGroup
	for i, tgt := range p.targets {
		wg.Add(1)
		go func(i int, tgt config.TargetConfig) {
			defer wg.Done()
			timeout := probe.EffectiveTimeout(tgt.Address, p.timeout)
			outcome := p.probeOne(ctx, tgt.Address, timeout)
			results[i] = state.Result{Target: tgt.Name, Outcome: outcome}
		}(i, tgt)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	now := p.now()
	for _, res := range results {
		p.logger.LogProbeResult(res.Target, res.Outcome.Success, res.Outcome.Latency, res.Outcome.Err)
	}

	transitions := p.store.Apply(now, results)
	for _, tr := range transitions {
		if tr.Down {
			status, _ := p.store.TargetStatus(tr.Target)
			p.logger.LogOutageStart(tr.Target, tr.At, status.FailStreak)
			continue
		}
		if tr.Event == nil {
			continue
		}
		p.logger.LogOutageEnd(tr.Target, tr.At, tr.Event.DurationS)
		if p.sink != nil {
			if err := p.sink.Append(*tr.Event); err != nil {
				p.logger.LogError("events", err, map[string]interface{}{"target": tr.Target})
			}
		}
	}
}

func (p *Poller) probeOne(ctx context.Context, addr string, timeout time.Duration) probe.Outcome {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome := p.prober.Probe(probeCtx, addr, timeout)
	// Probe errors of every kind fold into a plain failure.
	if !outcome.Success {
		outcome.Latency = 0
	}
	return outcome
}
