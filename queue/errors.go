package queue

import (
	"errors"
	"fmt"
)

// ErrEmpty is returned by navigation and removal operations on an empty
// queue.
var ErrEmpty = errors.New("queue is empty")

// InvalidIndexError reports an index outside the valid range of a queue
// operation.
type InvalidIndexError struct {
	Index  int
	Length int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("index %d out of range for queue of length %d", e.Index, e.Length)
}

// Is reports whether target is an InvalidIndexError, so callers can match
// with errors.Is against a zero value.
func (e *InvalidIndexError) Is(target error) bool {
	_, ok := target.(*InvalidIndexError)
	return ok
}
