package probe

import (
	"context"
	"net"
	"time"
)

// Outcome captures a single reachability attempt. Latency is only meaningful
// when Success is true, and may be zero even then if the probe could not
// measure it.
type Outcome struct {
	Latency time.Duration
	Success bool
	Err     error
}

// Prober performs one reachability attempt against an address.
type Prober interface {
	Probe(ctx context.Context, addr string, timeout time.Duration) Outcome
}

const minResolveTimeout = 2 * time.Second

// EffectiveTimeout widens the timeout for symbolic names so that DNS
// resolution latency does not show up as packet loss. Literal IP addresses
// keep the configured baseline.
func EffectiveTimeout(addr string, base time.Duration) time.Duration {
	if net.ParseIP(addr) != nil {
		return base
	}
	if base < minResolveTimeout {
		return minResolveTimeout
	}
	return base
}
