package wait

import (
	"context"
	"time"
)

// Clock abstracts time for the engine: a monotonic now and an interruptible
// sleep. The production implementation is the system clock; tests inject a
// fake to make timing deterministic.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until the context is done, returning the
	// context's error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// systemClock is the default Clock. time.Now carries a monotonic reading, so
// elapsed-time arithmetic is immune to wall-clock adjustments.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
