// Package lifecycle prepares and tears down the build environment:
// QEMU binfmt registration for cross-architecture emulation and the
// docker daemon itself, with bounded-wait readiness polling and
// teardown that runs exactly once on every exit path.
package lifecycle

import (
	"context"
	"errors"
	"time"
)

// Defaults for readiness and shutdown polling.
const (
	DefaultBudget   = 20 * time.Second
	DefaultInterval = time.Second
)

// ErrDeadline is returned when a polled condition did not hold within
// the wait budget.
var ErrDeadline = errors.New("wait budget exceeded")

// Poll invokes check every interval until it returns true. It returns
// ErrDeadline once budget elapses and the context's error if the
// context is cancelled first. The first check runs immediately.
func Poll(ctx context.Context, interval, budget time.Duration, check func() bool) error {
	deadline := time.NewTimer(budget)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		if check() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrDeadline
		case <-tick.C:
		}
	}
}
