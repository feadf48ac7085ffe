package state

import "time"

// Status is the debounced health reported for a target.
type Status string

const (
	StatusUnknown Status = "UNKNOWN"
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
)

// TargetStatus is a read-only view of one target for rendering.
type TargetStatus struct {
	Name          string
	Address       string
	Group         string
	Status        Status
	InOutage      bool
	FailStreak    int
	SuccessStreak int
	OutageStart   time.Time
	LastLatency   time.Duration
	TotalSuccess  int
	TotalFailure  int
	History       []Sample
}
