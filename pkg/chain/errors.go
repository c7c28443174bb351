package chain

import (
	"context"
	"fmt"
	"time"
)

// MaxRetriesError reports that every execution slot failed with a
// thrown error.
type MaxRetriesError struct {
	Retries int
	LastErr error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("Max retries (%d) exceeded. Last error: %v", e.Retries, e.LastErr)
}

func (e *MaxRetriesError) Unwrap() error {
	return e.LastErr
}

// StageTimeoutError reports that one pipeline stage outlived its
// timeout. It unwraps to context.DeadlineExceeded.
type StageTimeoutError struct {
	Stage   string
	Timeout time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("%s stage timed out after %s", e.Stage, e.Timeout)
}

func (e *StageTimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}
