// Package testutil holds helpers shared by the package tests: polling for
// asynchronous state, platform skips and unique annotation ids.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Poll checks condition every interval until it holds, timeout passes or
// ctx is done.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitFor(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	if err != nil {
		return fmt.Errorf("condition not met: %w", err)
	}
	return nil
}

// WaitFor reads get every interval until pred accepts the value, returning
// it. It fails once timeout passes or ctx is done.
func WaitFor[T any](ctx context.Context, get func() T, pred func(T) bool, timeout, interval time.Duration) (T, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		if v := get(); pred(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-deadline.C:
			var zero T
			return zero, fmt.Errorf("timed out after %v waiting for %T", timeout, zero)
		case <-tick.C:
		}
	}
}
