package wait_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/vigil/pkg/wait"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock advances instantly on Sleep, making timing deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// probe is an arbitrary opaque handle; the engine never looks inside.
type probe struct {
	name string
}

var errNotFound = errors.New("element not found")

func mustEngine(t *testing.T, spec wait.Spec, opts ...wait.Option[*probe]) *wait.Engine[*probe] {
	t.Helper()
	eng, err := wait.NewEngine[*probe](spec, opts...)
	require.NoError(t, err)
	return eng
}

func TestUntilImmediateSuccess(t *testing.T) {
	calls := 0
	cond := wait.New("always true", func(ctx context.Context, p *probe) wait.Outcome {
		calls++
		return wait.Satisfied("hello")
	})

	eng := mustEngine(t, wait.Spec{Timeout: 10 * time.Second, Interval: 500 * time.Millisecond})

	start := time.Now()
	value, err := eng.Until(context.Background(), &probe{}, cond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "hello", value)
	assert.Equal(t, 1, calls, "a condition that is already true must be evaluated exactly once")
	assert.Less(t, elapsed, 100*time.Millisecond, "no polling delay on immediate success")
}

func TestUntilTimeoutShape(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	cond := wait.New("never true", func(ctx context.Context, p *probe) wait.Outcome {
		calls++
		return wait.NotYet()
	})

	eng := mustEngine(t,
		wait.Spec{Timeout: 1000 * time.Millisecond, Interval: 200 * time.Millisecond},
		wait.WithClock[*probe](clock),
	)

	_, err := eng.Until(context.Background(), &probe{}, cond)
	require.Error(t, err)

	var te *wait.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "never true", te.Condition)
	assert.GreaterOrEqual(t, te.Attempts, 1)
	assert.LessOrEqual(t, te.Attempts, 6)
	assert.Equal(t, calls, te.Attempts)
	assert.GreaterOrEqual(t, te.Elapsed, 1000*time.Millisecond)
	assert.LessOrEqual(t, te.Elapsed, 1200*time.Millisecond)
}

func TestUntilZeroTimeoutTriesExactlyOnce(t *testing.T) {
	calls := 0
	cond := wait.New("never true", func(ctx context.Context, p *probe) wait.Outcome {
		calls++
		return wait.NotYetBecause("still empty")
	})

	eng := mustEngine(t, wait.Spec{Timeout: 0, Interval: 100 * time.Millisecond})

	_, err := eng.Until(context.Background(), &probe{}, cond)

	var te *wait.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, te.Attempts)
	assert.Contains(t, te.Error(), "still empty")
}

func TestUntilFatalFailureShortCircuits(t *testing.T) {
	boom := errors.New("session is dead")
	calls := 0
	cond := wait.New("doomed", func(ctx context.Context, p *probe) wait.Outcome {
		calls++
		return wait.Failed(boom)
	})

	eng := mustEngine(t, wait.Spec{
		Timeout:  2 * time.Second,
		Interval: 300 * time.Millisecond,
		Ignore:   []error{errNotFound},
	})

	start := time.Now()
	_, err := eng.Until(context.Background(), &probe{}, cond)
	elapsed := time.Since(start)

	var fe *wait.FatalError
	require.ErrorAs(t, err, &fe)
	assert.True(t, errors.Is(err, boom), "fatal error must unwrap to the condition's error")
	assert.Equal(t, 1, calls, "no retries on fatal failures")
	assert.Equal(t, 1, fe.Attempt)
	assert.Less(t, elapsed, 50*time.Millisecond, "fatal failure must not wait out the deadline")
}

func TestUntilIgnoredFailuresAreRetried(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	cond := wait.New("eventually found", func(ctx context.Context, p *probe) wait.Outcome {
		calls++
		if calls < 3 {
			return wait.Failed(fmt.Errorf("lookup: %w", errNotFound))
		}
		return wait.Satisfied(calls)
	})

	eng := mustEngine(t,
		wait.Spec{Timeout: 10 * time.Second, Interval: 100 * time.Millisecond, Ignore: []error{errNotFound}},
		wait.WithClock[*probe](clock),
	)

	value, err := eng.Until(context.Background(), &probe{}, cond)
	require.NoError(t, err)
	assert.Equal(t, 3, value, "success value comes from the final invocation")
	assert.Equal(t, 3, calls)
}

func TestUntilTimeoutCarriesLastTransientError(t *testing.T) {
	clock := newFakeClock()
	cond := wait.New("never found", func(ctx context.Context, p *probe) wait.Outcome {
		return wait.Failed(errNotFound)
	})

	eng := mustEngine(t,
		wait.Spec{Timeout: time.Second, Interval: 250 * time.Millisecond, Ignore: []error{errNotFound}},
		wait.WithClock[*probe](clock),
	)

	_, err := eng.Until(context.Background(), &probe{}, cond)

	var te *wait.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.True(t, errors.Is(err, errNotFound), "the retried transient error stays inspectable")
}

func TestUntilCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cond := wait.New("never true", func(ctx context.Context, p *probe) wait.Outcome {
		return wait.NotYet()
	})

	eng := mustEngine(t, wait.Spec{Timeout: 5 * time.Second, Interval: 20 * time.Millisecond})

	timer := time.AfterFunc(40*time.Millisecond, cancel)
	defer timer.Stop()

	_, err := eng.Until(ctx, &probe{}, cond)

	var ce *wait.CancelledError
	require.ErrorAs(t, err, &ce, "cancellation must not be reported as a timeout")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.GreaterOrEqual(t, ce.Attempts, 1)

	var te *wait.TimeoutError
	assert.False(t, errors.As(err, &te))
}

func TestUntilAlreadyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	cond := wait.New("never reached", func(ctx context.Context, p *probe) wait.Outcome {
		calls++
		return wait.Satisfied(true)
	})

	eng := mustEngine(t, wait.Spec{Timeout: time.Second, Interval: 50 * time.Millisecond})
	_, err := eng.Until(ctx, &probe{}, cond)

	var ce *wait.CancelledError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, calls)
}

func TestNewEngineRejectsInvalidSpec(t *testing.T) {
	tests := []struct {
		name string
		spec wait.Spec
	}{
		{"zero interval", wait.Spec{Timeout: time.Second}},
		{"negative interval", wait.Spec{Timeout: time.Second, Interval: -time.Millisecond}},
		{"negative timeout", wait.Spec{Timeout: -time.Second, Interval: time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wait.NewEngine[*probe](tt.spec)
			var ce *wait.ConfigurationError
			require.ErrorAs(t, err, &ce)
		})
	}
}

// Scenario from the drawing board: a collection that grows from 3 to 10
// entries between the 4th and 5th poll.
func TestUntilElementCollectionScenario(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()

	calls := 0
	makeList := func(n int) []string {
		list := make([]string, n)
		for i := range list {
			list[i] = fmt.Sprintf("item-%d", i)
		}
		return list
	}
	cond := wait.New("list has 10 entries", func(ctx context.Context, p *probe) wait.Outcome {
		calls++
		list := makeList(3)
		if calls > 4 {
			list = makeList(10)
		}
		if len(list) != 10 {
			return wait.NotYetBecause("found %d entries", len(list))
		}
		return wait.Satisfied(list)
	})

	eng := mustEngine(t,
		wait.Spec{Timeout: 5 * time.Second, Interval: 500 * time.Millisecond},
		wait.WithClock[*probe](clock),
	)

	value, err := eng.Until(context.Background(), &probe{}, cond)
	require.NoError(t, err)

	list, ok := value.([]string)
	require.True(t, ok)
	if diff := cmp.Diff(makeList(10), list); diff != "" {
		t.Errorf("final collection mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, calls)
	assert.Equal(t, 2000*time.Millisecond, clock.Now().Sub(start))
}

func TestUntilFinalSleepIsClamped(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()

	cond := wait.New("never true", func(ctx context.Context, p *probe) wait.Outcome {
		return wait.NotYet()
	})

	// 250ms timeout with a 200ms interval: the second sleep would cross the
	// deadline, so it gets clamped to 50ms.
	eng := mustEngine(t,
		wait.Spec{Timeout: 250 * time.Millisecond, Interval: 200 * time.Millisecond},
		wait.WithClock[*probe](clock),
	)

	_, err := eng.Until(context.Background(), &probe{}, cond)

	var te *wait.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 250*time.Millisecond, clock.Now().Sub(start), "the wait must not overshoot the deadline")
	assert.Equal(t, 250*time.Millisecond, te.Elapsed)
	assert.Equal(t, 3, te.Attempts)
}
