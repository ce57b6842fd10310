package wait_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/vigil/pkg/wait"
)

func TestPollSucceeds(t *testing.T) {
	calls := 0
	err := wait.Poll(context.Background(), &probe{}, "counter reaches three",
		func(ctx context.Context, p *probe) (bool, error) {
			calls++
			return calls >= 3, nil
		},
		wait.PollOptions{Spec: wait.Spec{Timeout: 2 * time.Second, Interval: 5 * time.Millisecond}},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollSurfacesCallerTimeoutError(t *testing.T) {
	errGaveUp := errors.New("dynamic element never appeared")

	err := wait.Poll(context.Background(), &probe{}, "element appears",
		func(ctx context.Context, p *probe) (bool, error) { return false, nil },
		wait.PollOptions{
			Spec:       wait.Spec{Timeout: 20 * time.Millisecond, Interval: 5 * time.Millisecond},
			TimeoutErr: errGaveUp,
		},
	)
	require.ErrorIs(t, err, errGaveUp)

	var te *wait.TimeoutError
	assert.False(t, errors.As(err, &te), "the engine's timeout error must be replaced, not wrapped")
}

func TestPollKeepsEngineTimeoutWithoutOverride(t *testing.T) {
	err := wait.Poll(context.Background(), &probe{}, "element appears",
		func(ctx context.Context, p *probe) (bool, error) { return false, nil },
		wait.PollOptions{Spec: wait.Spec{Timeout: 10 * time.Millisecond, Interval: 5 * time.Millisecond}},
	)
	var te *wait.TimeoutError
	require.ErrorAs(t, err, &te)
}

func TestPollPredicateErrorIsFatal(t *testing.T) {
	boom := errors.New("probe exploded")
	calls := 0
	err := wait.Poll(context.Background(), &probe{}, "doomed",
		func(ctx context.Context, p *probe) (bool, error) {
			calls++
			return false, boom
		},
		wait.PollOptions{Spec: wait.Spec{Timeout: time.Second, Interval: 5 * time.Millisecond}},
	)
	var fe *wait.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, calls)
}

func TestPollIgnoredErrorsRetry(t *testing.T) {
	calls := 0
	err := wait.Poll(context.Background(), &probe{}, "found after misses",
		func(ctx context.Context, p *probe) (bool, error) {
			calls++
			if calls < 3 {
				return false, errNotFound
			}
			return true, nil
		},
		wait.PollOptions{Spec: wait.Spec{
			Timeout:  time.Second,
			Interval: 5 * time.Millisecond,
			Ignore:   []error{errNotFound},
		}},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
