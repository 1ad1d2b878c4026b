package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/throughline-systems/supplychain/core"
)

func TestMemoryOrderStoreRoundTrip(t *testing.T) {
	store := NewMemoryOrderStore()
	order := &SupplyOrder{ID: "o1", ProcurementRef: "p1", UserRef: "u1", InputData: core.Dict{"domain": "example.com"}, CreatedAt: time.Now()}

	require.NoError(t, store.Save(context.Background(), order))

	got, err := store.Get(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, order.ProcurementRef, got.ProcurementRef)
	require.Equal(t, "example.com", got.InputData["domain"])
}

func TestMemoryOrderStoreGetMissing(t *testing.T) {
	store := NewMemoryOrderStore()
	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestMemoryOrderStoreSaveIsCopyNotAlias(t *testing.T) {
	store := NewMemoryOrderStore()
	order := &SupplyOrder{ID: "o1", InputData: core.Dict{"domain": "example.com"}}
	require.NoError(t, store.Save(context.Background(), order))

	order.FinalDocID = "mutated-after-save"

	got, err := store.Get(context.Background(), "o1")
	require.NoError(t, err)
	require.Empty(t, got.FinalDocID)
}
