package eventlog

import (
	"errors"
	"fmt"

	"github.com/roach88/eventscope/internal/event"
)

// ErrTimestampOrder is wrapped by every OrderError.
var ErrTimestampOrder = errors.New("timestamp order violation")

// ErrNilEvent is returned when appending a nil event.
var ErrNilEvent = errors.New("nil event")

// OrderError reports an append whose timestamp precedes the last committed one.
type OrderError struct {
	Last event.Timestamp
	Got  event.Timestamp
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("timestamp order violation: %d < last committed %d", e.Got, e.Last)
}

// Unwrap lets errors.Is match ErrTimestampOrder.
func (e *OrderError) Unwrap() error {
	return ErrTimestampOrder
}
