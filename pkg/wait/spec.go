package wait

import (
	"errors"
	"time"
)

// Defaults mirror the WebDriver conventions most callers already know: waits
// give up after ten seconds and probe twice a second.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = 500 * time.Millisecond
)

// Spec is the immutable configuration of a wait point: how long to keep
// polling, how often, and which failure kinds count as "not yet" rather than
// fatal. A Spec carries no state and may be shared freely across concurrent
// waits.
//
// A Timeout of zero is legal and means "evaluate exactly once": the engine
// always makes at least one attempt before declaring a timeout.
type Spec struct {
	// Timeout bounds the whole wait. Must be >= 0.
	Timeout time.Duration
	// Interval is the pause between attempts. Must be > 0.
	Interval time.Duration
	// Ignore lists error kinds (matched with errors.Is) that are treated as
	// "condition not yet satisfied" instead of aborting the wait. Anything
	// not listed here is fatal on first occurrence.
	Ignore []error
}

// DefaultSpec returns a Spec with the package defaults and no ignored
// failure kinds.
func DefaultSpec() Spec {
	return Spec{Timeout: DefaultTimeout, Interval: DefaultInterval}
}

// Validate checks the Spec invariants. It returns a *ConfigurationError
// describing the first violation, or nil.
func (s Spec) Validate() error {
	if s.Interval <= 0 {
		return &ConfigurationError{Reason: "poll interval must be positive"}
	}
	if s.Timeout < 0 {
		return &ConfigurationError{Reason: "timeout must not be negative"}
	}
	return nil
}

// ignores reports whether err matches one of the whitelisted failure kinds.
func (s Spec) ignores(err error) bool {
	for _, kind := range s.Ignore {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
