package wait

import (
	"fmt"
	"time"
)

// ConfigurationError reports an invalid Spec. It is raised when the engine
// is constructed, never mid-poll.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid wait spec: " + e.Reason
}

// TimeoutError is the expected failure mode of a wait: the deadline passed
// while the condition never reached a satisfied outcome. It is a first-class
// result callers are expected to branch on, distinct from fatal failures.
type TimeoutError struct {
	// Condition is the description of what was being waited for.
	Condition string
	// Elapsed is the monotonic time spent polling.
	Elapsed time.Duration
	// Attempts is the number of condition evaluations performed.
	Attempts int
	// LastOutcome is the outcome of the final attempt, for diagnostics.
	LastOutcome Outcome
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s (%d attempts) waiting for %s; last outcome: %s",
		e.Elapsed.Round(time.Millisecond), e.Attempts, e.Condition, e.LastOutcome)
}

// Unwrap exposes the last attempt's error, if any, so callers can still
// inspect the transient failure that was being retried when time ran out.
func (e *TimeoutError) Unwrap() error { return e.LastOutcome.err }

// FatalError wraps a condition failure that was not on the ignore list. The
// wait is abandoned immediately; no further attempts are made.
type FatalError struct {
	Condition string
	Attempt   int
	err       error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("waiting for %s failed on attempt %d: %v", e.Condition, e.Attempt, e.err)
}

func (e *FatalError) Unwrap() error { return e.err }

// CancelledError reports that the surrounding context was cancelled while
// the wait was in flight. It is deliberately distinct from TimeoutError:
// "was asked to stop" is not "gave up waiting".
type CancelledError struct {
	Condition string
	Elapsed   time.Duration
	Attempts  int
	cause     error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("wait for %s cancelled after %s (%d attempts): %v",
		e.Condition, e.Elapsed.Round(time.Millisecond), e.Attempts, e.cause)
}

// Unwrap exposes the context error (context.Canceled or
// context.DeadlineExceeded) for errors.Is checks.
func (e *CancelledError) Unwrap() error { return e.cause }
