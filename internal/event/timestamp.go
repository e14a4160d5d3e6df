package event

import (
	"fmt"
	"time"
)

// Timestamp is a point in time in microseconds.
// The origin is chosen by the event source; only ordering matters.
type Timestamp int64

// FromDuration converts a duration since the trace origin into a Timestamp.
func FromDuration(d time.Duration) Timestamp {
	return Timestamp(d / time.Microsecond)
}

// Duration returns t as a duration since the trace origin.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t) * time.Microsecond
}

// String renders t as seconds with microsecond precision, e.g. "1.500000s".
func (t Timestamp) String() string {
	sign := ""
	v := int64(t)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06ds", sign, v/1_000_000, v%1_000_000)
}
