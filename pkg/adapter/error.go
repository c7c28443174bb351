package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AssistantError wraps provider errors with status metadata.
type AssistantError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *AssistantError) Error() string {
	if e == nil {
		return "assistant error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("assistant error (status=%d)", e.Status)
}

func (e *AssistantError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var assistantErr *AssistantError
	if errors.As(err, &assistantErr) {
		if assistantErr.Temporary {
			return true
		}
		if assistantErr.Status == 429 || (assistantErr.Status >= 500 && assistantErr.Status <= 599) {
			return true
		}
	}
	return false
}
