package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("SUPPLYCHAIN_REDIS_URL", "")
	cfg, err := NewConfig()
	require.NoError(t, err)
	require.Equal(t, "supplychain", cfg.ServiceName)
	require.Equal(t, 8, cfg.Executor.MaxConcurrency)
}

func TestNewConfigOptionsOverrideEnv(t *testing.T) {
	t.Setenv("SUPPLYCHAIN_EXECUTOR_MAX_CONCURRENCY", "3")
	cfg, err := NewConfig(WithMaxConcurrency(16))
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Executor.MaxConcurrency)
}

func TestNewConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("SUPPLYCHAIN_EXECUTOR_MAX_CONCURRENCY", "not-a-number")
	_, err := NewConfig()
	require.Error(t, err)
}

func TestDictStringValueTreatsEmptyAsAbsent(t *testing.T) {
	d := Dict{"a": "", "b": "x", "c": 42}
	require.Equal(t, "", d.StringValue("a"))
	require.Equal(t, "x", d.StringValue("b"))
	require.Equal(t, "42", d.StringValue("c"))
	require.Equal(t, "", d.StringValue("missing"))
}

func TestDictMergeDoesNotMutateInputs(t *testing.T) {
	base := Dict{"a": 1}
	merged := base.Merge(Dict{"b": 2})
	require.Equal(t, Dict{"a": 1}, base)
	require.Equal(t, Dict{"a": 1, "b": 2}, merged)
}
