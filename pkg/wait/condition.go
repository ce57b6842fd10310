package wait

import (
	"context"
	"errors"
	"strings"
)

// Condition is the unit of work the engine polls: a single evaluation
// against a probe of type P, yielding an Outcome. Conditions must be safe to
// evaluate repeatedly; the engine calls them once per attempt.
//
// The description is used in log lines and timeout errors, so it should read
// like the thing being waited for: "page title is \"Example Domain\"".
type Condition[P any] interface {
	Evaluate(ctx context.Context, probe P) Outcome
	Description() string
}

type condFunc[P any] struct {
	desc string
	fn   func(context.Context, P) Outcome
}

func (c condFunc[P]) Evaluate(ctx context.Context, probe P) Outcome { return c.fn(ctx, probe) }
func (c condFunc[P]) Description() string                           { return c.desc }

// New wraps a plain function as a Condition with the given description.
func New[P any](description string, fn func(context.Context, P) Outcome) Condition[P] {
	return condFunc[P]{desc: description, fn: fn}
}

// And combines conditions conjunctively. The combined condition is satisfied
// only when every sub-condition is satisfied within the same attempt, in
// which case its value is the slice of sub-condition values in order.
//
// Evaluation is left to right and stops at the first sub-condition that is
// not satisfied: a not-yet outcome makes the conjunction not-yet, and a
// failed outcome propagates the sub-condition's error so the engine can
// classify it against the ignore list.
func And[P any](conds ...Condition[P]) Condition[P] {
	return andCond[P]{conds: conds}
}

type andCond[P any] struct {
	conds []Condition[P]
}

func (a andCond[P]) Evaluate(ctx context.Context, probe P) Outcome {
	values := make([]any, 0, len(a.conds))
	for _, c := range a.conds {
		out := c.Evaluate(ctx, probe)
		if !out.IsSatisfied() {
			if out.err != nil {
				return out
			}
			if out.reason != "" {
				return NotYetBecause("%s: %s", c.Description(), out.reason)
			}
			return NotYetBecause("%s not yet satisfied", c.Description())
		}
		values = append(values, out.Value())
	}
	return Satisfied(values)
}

func (a andCond[P]) Description() string {
	return "(" + joinDescriptions(a.conds, " and ") + ")"
}

// Or combines conditions disjunctively: the first satisfied sub-condition
// wins and supplies the value. If none is satisfied and at least one failed,
// the disjunction fails with the joined errors, which keeps errors.Is
// matching intact for the engine's ignore list. Otherwise it is not-yet.
func Or[P any](conds ...Condition[P]) Condition[P] {
	return orCond[P]{conds: conds}
}

type orCond[P any] struct {
	conds []Condition[P]
}

func (o orCond[P]) Evaluate(ctx context.Context, probe P) Outcome {
	var errs []error
	for _, c := range o.conds {
		out := c.Evaluate(ctx, probe)
		if out.IsSatisfied() {
			return out
		}
		if out.err != nil {
			errs = append(errs, out.err)
		}
	}
	if len(errs) > 0 {
		return Failed(errors.Join(errs...))
	}
	return NotYet()
}

func (o orCond[P]) Description() string {
	return "(" + joinDescriptions(o.conds, " or ") + ")"
}

// Not inverts a condition: satisfied becomes not-yet and vice versa. The
// inverted satisfied value is the boolean true. Failures are not inverted; a
// failing condition stays failing so fatal errors keep propagating.
func Not[P any](c Condition[P]) Condition[P] {
	return notCond[P]{cond: c}
}

type notCond[P any] struct {
	cond Condition[P]
}

func (n notCond[P]) Evaluate(ctx context.Context, probe P) Outcome {
	out := n.cond.Evaluate(ctx, probe)
	switch {
	case out.err != nil:
		return out
	case out.IsSatisfied():
		return NotYetBecause("%s still satisfied", n.cond.Description())
	default:
		return Satisfied(true)
	}
}

func (n notCond[P]) Description() string {
	return "not " + n.cond.Description()
}

func joinDescriptions[P any](conds []Condition[P], sep string) string {
	descs := make([]string, len(conds))
	for i, c := range conds {
		descs[i] = c.Description()
	}
	return strings.Join(descs, sep)
}
