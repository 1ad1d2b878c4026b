package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBoundedPollSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	result, err := BoundedPoll(context.Background(), time.Millisecond, 6, func(attempt int) (PollDecision[int], error) {
		calls++
		return PollDecision[int]{Result: 42, Done: true}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, result)
	require.Equal(t, 1, calls)
}

func TestBoundedPollRetriesUntilDone(t *testing.T) {
	calls := 0
	result, err := BoundedPoll(context.Background(), time.Millisecond, 6, func(attempt int) (PollDecision[int], error) {
		calls++
		if attempt < 3 {
			return PollDecision[int]{Done: false}, nil
		}
		return PollDecision[int]{Result: attempt, Done: true}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, result)
	require.Equal(t, 3, calls)
}

func TestBoundedPollExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := BoundedPoll(context.Background(), time.Millisecond, 3, func(attempt int) (PollDecision[int], error) {
		calls++
		return PollDecision[int]{Done: false}, nil
	})
	require.ErrorIs(t, err, ErrPollBudgetExhausted)
	require.Equal(t, 3, calls)
}

func TestBoundedPollPropagatesOperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := BoundedPoll(context.Background(), time.Millisecond, 6, func(attempt int) (PollDecision[int], error) {
		return PollDecision[int]{}, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestBoundedPollRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BoundedPoll(ctx, time.Millisecond, 6, func(attempt int) (PollDecision[int], error) {
		return PollDecision[int]{Done: false}, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
