package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "t", FailureThreshold: 2, ResetTimeout: time.Hour, HalfOpenMaxCalls: 1})
	require.True(t, cb.CanExecute())
	cb.RecordFailure()
	require.Equal(t, StateClosed, cb.State())
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())
	require.False(t, cb.CanExecute())
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "t", FailureThreshold: 1, ResetTimeout: time.Millisecond, HalfOpenMaxCalls: 1})
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(2 * time.Millisecond)
	require.True(t, cb.CanExecute())
	require.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	require.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerDisabledWhenThresholdZero(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "t"})
	for i := 0; i < 50; i++ {
		cb.RecordFailure()
	}
	require.True(t, cb.CanExecute())
}
