package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// Fetch failure classes.
var (
	// ErrTimeout is returned when the per-fetch deadline is exceeded.
	ErrTimeout = errors.New("timeout")

	// ErrNetwork is returned for connection, DNS and protocol errors.
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse is returned when a response cannot be used, for
	// example an undecodable body, an oversize body or a bad Location header.
	ErrMalformedResponse = errors.New("malformed response")
)

// classify maps a transport error onto the failure classes.
// A canceled parent context yields an error wrapping context.Canceled.
func classify(parent context.Context, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil && errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("fetch canceled: %w", parent.Err())
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrMalformedResponse) {
		return err
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
