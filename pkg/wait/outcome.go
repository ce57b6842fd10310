package wait

import "fmt"

// outcomeState classifies a single condition evaluation.
type outcomeState uint8

const (
	stateNotYet outcomeState = iota
	stateSatisfied
	stateFailed
)

// Outcome is the result of evaluating a Condition once. It is one of three
// shapes: satisfied (carrying the condition's value), not yet satisfied
// (optionally carrying a short reason for diagnostics), or failed (carrying
// an error). Whether a failure is transient or fatal is decided by the
// engine against the Spec's ignore list, not by the condition itself.
type Outcome struct {
	state  outcomeState
	value  any
	reason string
	err    error
}

// Satisfied reports that the condition holds. The value is returned verbatim
// to the caller of Engine.Until.
func Satisfied(value any) Outcome {
	return Outcome{state: stateSatisfied, value: value}
}

// NotYet reports that the condition does not hold yet and polling should
// continue.
func NotYet() Outcome {
	return Outcome{state: stateNotYet}
}

// NotYetBecause is NotYet with a human-readable reason. The reason of the
// last attempt surfaces in TimeoutError messages, so a good reason here is
// the difference between "timed out" and "timed out; found 3 of 10 rows".
func NotYetBecause(format string, args ...any) Outcome {
	return Outcome{state: stateNotYet, reason: fmt.Sprintf(format, args...)}
}

// Failed reports that evaluating the condition raised an error. The engine
// treats the failure as transient (and keeps polling) when the error matches
// the Spec's ignore list, and as fatal otherwise.
func Failed(err error) Outcome {
	return Outcome{state: stateFailed, err: err}
}

// IsSatisfied reports whether the outcome carries a success value.
func (o Outcome) IsSatisfied() bool { return o.state == stateSatisfied }

// Value returns the success value, or nil for non-satisfied outcomes.
func (o Outcome) Value() any { return o.value }

// Err returns the failure error, or nil for non-failed outcomes.
func (o Outcome) Err() error { return o.err }

// String renders the outcome for diagnostics.
func (o Outcome) String() string {
	switch o.state {
	case stateSatisfied:
		return fmt.Sprintf("satisfied (%v)", o.value)
	case stateFailed:
		return fmt.Sprintf("failed: %v", o.err)
	default:
		if o.reason != "" {
			return "not yet satisfied: " + o.reason
		}
		return "not yet satisfied"
	}
}
