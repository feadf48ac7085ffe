package state

import "time"

// Default hysteresis thresholds. The short loss threshold and long recovery
// threshold bias toward fast outage detection and slow, confident recovery.
const (
	DefaultLossThreshold     = 3
	DefaultRecoveryThreshold = 11
)

// nominalLatency is recorded when a successful probe carries no measured
// latency. It conflates "unknown" with "very fast" in the history strip; the
// state machine itself never reads it.
const nominalLatency = time.Millisecond

// Thresholds configure the consecutive-count hysteresis applied to raw probe
// outcomes. They are shared configuration, not per-target state.
type Thresholds struct {
	Loss     int
	Recovery int
}

func (t Thresholds) withDefaults() Thresholds {
	if t.Loss <= 0 {
		t.Loss = DefaultLossThreshold
	}
	if t.Recovery <= 0 {
		t.Recovery = DefaultRecoveryThreshold
	}
	return t
}

// Interval is a closed outage span reported by the detector on recovery.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Detector debounces the per-tick outcome stream for a single target into
// up/down transitions. At most one of failStreak/successStreak is nonzero,
// and outageStart is set exactly while inOutage holds.
type Detector struct {
	thresholds    Thresholds
	failStreak    int
	successStreak int
	inOutage      bool
	outageStart   time.Time
}

// NewDetector returns a detector in the Up state.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds.withDefaults()}
}

// Observe applies one probe outcome observed at now. It returns the sample to
// record in history and, when the outcome completes an outage, the closed
// interval. An outage that never recovers never produces an interval.
func (d *Detector) Observe(success bool, latency time.Duration, now time.Time) (Sample, *Interval) {
	if !success {
		d.failStreak++
		d.successStreak = 0
		if !d.inOutage && d.failStreak >= d.thresholds.Loss {
			// Dated at the tick that completed the threshold, not at the
			// first failure of the streak.
			d.inOutage = true
			d.outageStart = now
		}
		return Sample{Failed: true}, nil
	}

	d.successStreak++
	d.failStreak = 0
	if latency <= 0 {
		latency = nominalLatency
	}
	sample := Sample{Latency: latency}

	if d.inOutage && d.successStreak >= d.thresholds.Recovery {
		interval := &Interval{Start: d.outageStart, End: now}
		d.inOutage = false
		d.outageStart = time.Time{}
		// A fresh outage later requires a fresh streak.
		d.successStreak = 0
		return sample, interval
	}
	return sample, nil
}

// InOutage reports whether the target is currently considered down.
func (d *Detector) InOutage() bool {
	return d.inOutage
}

// OutageStart returns the detection timestamp of the open outage, zero when
// the target is up.
func (d *Detector) OutageStart() time.Time {
	return d.outageStart
}

// Streaks returns the current consecutive failure and success counts.
func (d *Detector) Streaks() (fail, success int) {
	return d.failStreak, d.successStreak
}
