package probe

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Matches both English and localized ping output ("time=12.5 ms",
// "tempo=12,5ms", "time<1ms").
var latencyPattern = regexp.MustCompile(`(?i)(?:tempo|time)[=<]?\s*([\d,\.]+)\s*ms`)

// SystemProber invokes the system ping command for environments without raw
// socket access.
type SystemProber struct{}

// NewSystemProber returns a prober that shells out to ping.
func NewSystemProber() *SystemProber {
	return &SystemProber{}
}

// Probe runs the system ping command once and parses the latency from its
// output. A successful exit with unparsable output still counts as success,
// with zero latency.
func (p *SystemProber) Probe(ctx context.Context, addr string, timeout time.Duration) Outcome {
	args := pingArgs(addr, timeout)
	cmd := exec.CommandContext(ctx, "ping", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("system ping failed: %w", err)}
	}

	return Outcome{Success: true, Latency: parseLatency(out)}
}

func pingArgs(addr string, timeout time.Duration) []string {
	switch runtime.GOOS {
	case "windows":
		timeoutMs := maxInt(100, int(timeout.Milliseconds()))
		return []string{"-n", "1", "-w", strconv.Itoa(timeoutMs), "-4", addr}
	case "darwin":
		timeoutMs := maxInt(100, int(timeout.Milliseconds()))
		return []string{"-n", "-c", "1", "-W", strconv.Itoa(timeoutMs), addr}
	default:
		timeoutSec := maxInt(1, int(timeout.Seconds()+0.5))
		return []string{"-n", "-c", "1", "-W", strconv.Itoa(timeoutSec), addr}
	}
}

func parseLatency(output []byte) time.Duration {
	matches := latencyPattern.FindSubmatch(output)
	if len(matches) < 2 {
		return 0
	}
	raw := strings.ReplaceAll(string(matches[1]), ",", ".")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return time.Duration(value * float64(time.Millisecond))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
