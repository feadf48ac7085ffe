package event

import (
	"fmt"
	"strings"
	"time"
)

// timeLayout is the timestamp format used in the events file.
const timeLayout = "2006-01-02 15:04:05"

// Timestamp serializes as "2006-01-02 15:04:05" in local time.
type Timestamp time.Time

// Time returns the underlying time value.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Time(t).Format(timeLayout))), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := time.ParseInLocation(timeLayout, raw, time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	*t = Timestamp(parsed)
	return nil
}

// Outage records one completed downtime interval. Immutable once created.
type Outage struct {
	Target    string    `json:"target"`
	Start     Timestamp `json:"start"`
	End       Timestamp `json:"end"`
	DurationS float64   `json:"duration_s"`
}

// NewOutage builds an event for an interval closed at end.
func NewOutage(target string, start, end time.Time) Outage {
	return Outage{
		Target:    target,
		Start:     Timestamp(start),
		End:       Timestamp(end),
		DurationS: end.Sub(start).Seconds(),
	}
}
