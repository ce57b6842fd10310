// Package wait implements a general-purpose condition-polling engine: it
// evaluates a caller-supplied condition against an opaque probe on a fixed
// cadence until the condition is satisfied, a deadline expires, a fatal
// failure occurs, or the context is cancelled.
//
// The engine owns nothing: the probe's lifecycle belongs to the caller, the
// condition is assumed safe to evaluate repeatedly, and a Spec is pure
// configuration that may be reused across concurrent waits.
package wait

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Engine drives the polling loop for probes of type P. An Engine is
// stateless between Until calls and safe for concurrent use.
type Engine[P any] struct {
	spec    Spec
	clock   Clock
	logger  *zap.Logger
	limiter *rate.Limiter
}

// Option customises an Engine at construction.
type Option[P any] func(*Engine[P])

// WithClock substitutes the time source. Intended for tests.
func WithClock[P any](c Clock) Option[P] {
	return func(e *Engine[P]) { e.clock = c }
}

// WithLogger attaches a logger for per-attempt debug output. Defaults to a
// nop logger.
func WithLogger[P any](l *zap.Logger) Option[P] {
	return func(e *Engine[P]) { e.logger = l }
}

// WithLimiter applies a shared rate limiter across all attempts made by this
// engine. Useful when many concurrent waits poll the same backend and the
// aggregate probe pressure needs a ceiling; the per-wait interval still
// applies on top.
func WithLimiter[P any](l *rate.Limiter) Option[P] {
	return func(e *Engine[P]) { e.limiter = l }
}

// NewEngine validates the Spec and builds an Engine. Invalid specs fail fast
// here with a *ConfigurationError rather than during polling.
func NewEngine[P any](spec Spec, opts ...Option[P]) (*Engine[P], error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	e := &Engine[P]{
		spec:   spec,
		clock:  systemClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Spec returns the engine's configuration.
func (e *Engine[P]) Spec() Spec { return e.spec }

// Until evaluates the condition against the probe until it is satisfied or
// the wait ends. The first evaluation happens immediately; the deadline is
// only checked after an unsuccessful attempt, so even a zero timeout gets
// exactly one attempt. On success the value of the final evaluation is
// returned.
//
// Failure modes are distinguishable with errors.As: *TimeoutError when the
// deadline passed, *FatalError when the condition failed with an error not
// on the ignore list, and *CancelledError when ctx was cancelled mid-wait.
func (e *Engine[P]) Until(ctx context.Context, probe P, cond Condition[P]) (any, error) {
	log := e.logger.With(
		zap.String("wait_id", uuid.NewString()[:8]),
		zap.String("condition", cond.Description()),
	)

	start := e.clock.Now()
	deadline := start.Add(e.spec.Timeout)
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, e.cancelled(cond, start, attempts, err)
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, e.cancelled(cond, start, attempts, err)
			}
		}

		attempts++
		out := cond.Evaluate(ctx, probe)

		if out.IsSatisfied() {
			log.Debug("condition satisfied",
				zap.Int("attempts", attempts),
				zap.Duration("elapsed", e.clock.Now().Sub(start)))
			return out.Value(), nil
		}

		if err := out.Err(); err != nil && !e.spec.ignores(err) {
			// A condition that fails because the surrounding context died is
			// a cancellation, not a fatal probe error.
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, e.cancelled(cond, start, attempts, ctxErr)
			}
			log.Debug("condition failed fatally", zap.Int("attempt", attempts), zap.Error(err))
			return nil, &FatalError{Condition: cond.Description(), Attempt: attempts, err: err}
		}

		now := e.clock.Now()
		if !now.Before(deadline) {
			log.Debug("wait timed out",
				zap.Int("attempts", attempts),
				zap.Duration("elapsed", now.Sub(start)))
			return nil, &TimeoutError{
				Condition:   cond.Description(),
				Elapsed:     now.Sub(start),
				Attempts:    attempts,
				LastOutcome: out,
			}
		}

		log.Debug("condition not yet satisfied",
			zap.Int("attempt", attempts),
			zap.String("outcome", out.String()))

		// Clamp the final sleep so the wait does not overshoot the deadline
		// by more than one interval.
		pause := e.spec.Interval
		if remaining := deadline.Sub(now); remaining < pause {
			pause = remaining
		}
		if err := e.clock.Sleep(ctx, pause); err != nil {
			return nil, e.cancelled(cond, start, attempts, err)
		}
	}
}

// Waiter binds a probe and condition to this engine as a closure suitable
// for All and Any.
func (e *Engine[P]) Waiter(probe P, cond Condition[P]) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := e.Until(ctx, probe, cond)
		return err
	}
}

func (e *Engine[P]) cancelled(cond Condition[P], start time.Time, attempts int, cause error) error {
	return &CancelledError{
		Condition: cond.Description(),
		Elapsed:   e.clock.Now().Sub(start),
		Attempts:  attempts,
		cause:     cause,
	}
}
