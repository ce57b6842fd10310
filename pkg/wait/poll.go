package wait

import (
	"context"
	"errors"
)

// PollOptions configures Poll. A wholly zero Spec falls back to the package
// defaults; a Spec with an explicit Interval keeps its Timeout as given, so
// a zero timeout still means "evaluate exactly once".
type PollOptions struct {
	Spec
	// TimeoutErr, when non-nil, is surfaced instead of the engine's own
	// *TimeoutError. This supports call sites that want their own exception
	// type on timeout without writing their own loop.
	TimeoutErr error
}

// Poll is the hand-rolled-loop variant of Until: a boolean predicate checked
// on a fixed cadence, with an optional caller-defined error on timeout. It
// is a thin adapter over the engine, not a separate code path; all the
// engine semantics (immediate first attempt, fatal failures, cancellation)
// apply unchanged.
func Poll[P any](ctx context.Context, probe P, description string, pred func(context.Context, P) (bool, error), opts PollOptions) error {
	spec := opts.Spec
	if spec.Timeout == 0 && spec.Interval == 0 {
		spec.Timeout = DefaultTimeout
	}
	if spec.Interval == 0 {
		spec.Interval = DefaultInterval
	}

	eng, err := NewEngine[P](spec)
	if err != nil {
		return err
	}

	cond := New(description, func(ctx context.Context, p P) Outcome {
		ok, err := pred(ctx, p)
		switch {
		case err != nil:
			return Failed(err)
		case !ok:
			return NotYet()
		default:
			return Satisfied(true)
		}
	})

	_, err = eng.Until(ctx, probe, cond)
	if err != nil && opts.TimeoutErr != nil {
		var te *TimeoutError
		if errors.As(err, &te) {
			return opts.TimeoutErr
		}
	}
	return err
}
