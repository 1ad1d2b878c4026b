package quartermaster

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexVisaCounterEnforcesBudget(t *testing.T) {
	c := NewMutexVisaCounter()
	visa := Visa{ID: "v1", CallsAllowed: 2, IntervalSeconds: 1}

	ok1, err := c.Allow(context.Background(), "v1", visa)
	require.NoError(t, err)
	require.True(t, ok1)

	ok2, err := c.Allow(context.Background(), "v1", visa)
	require.NoError(t, err)
	require.True(t, ok2)

	ok3, err := c.Allow(context.Background(), "v1", visa)
	require.NoError(t, err)
	require.False(t, ok3, "third call within the window must be rejected")
}

func TestMutexVisaCounterResetsAfterWindow(t *testing.T) {
	c := NewMutexVisaCounter()
	visa := Visa{ID: "v1", CallsAllowed: 1, IntervalSeconds: 1}

	ok, err := c.Allow(context.Background(), "v1", visa)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(1100 * time.Millisecond)

	ok, err = c.Allow(context.Background(), "v1", visa)
	require.NoError(t, err)
	require.True(t, ok, "a new window should reset the budget")
}

// TestMutexVisaCounterSafety exercises invariant 6: for any window,
// concurrent callers against one Visa never exceed calls_allowed.
func TestMutexVisaCounterSafety(t *testing.T) {
	c := NewMutexVisaCounter()
	visa := Visa{ID: "v1", CallsAllowed: 10, IntervalSeconds: 5}

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.Allow(context.Background(), "v1", visa)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, allowed, 10)
}
