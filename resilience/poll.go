package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// PollDecision is returned by a BoundedPoll operation on each attempt.
type PollDecision[T any] struct {
	Result T
	Done   bool
}

// ErrPollBudgetExhausted signals that BoundedPoll's retry budget ran
// out before the operation reported Done. Callers are not expected to
// treat this as a hard failure: the last decision's Result is still
// meaningful and the chain can continue with it.
var ErrPollBudgetExhausted = errors.New("poll: retry budget exhausted")

// BoundedPoll calls operation once, and then at a constant interval,
// until it reports Done, returns an error, the context is cancelled,
// or maxTries attempts have been made (the first call counts as
// attempt 1). It backs the URL-report handler's "scan then report"
// retry loop.
//
// The interval sequencing comes from backoff.ConstantBackOff rather
// than a hand-rolled time.Sleep loop.
func BoundedPoll[T any](ctx context.Context, interval time.Duration, maxTries int, operation func(attempt int) (PollDecision[T], error)) (T, error) {
	var zero T
	b := backoff.NewConstantBackOff(interval)

	var last T
	for attempt := 1; attempt <= maxTries; attempt++ {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		default:
		}

		decision, err := operation(attempt)
		if err != nil {
			return zero, err
		}
		last = decision.Result
		if decision.Done {
			return decision.Result, nil
		}
		if attempt == maxTries {
			break
		}

		timer := time.NewTimer(b.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, ctx.Err()
		case <-timer.C:
		}
	}
	return last, ErrPollBudgetExhausted
}
