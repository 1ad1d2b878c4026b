package manifest

import "github.com/throughline-systems/supplychain/core"

// Manifest is the durable record of one executed provider call. Every
// attempted provider call produces exactly one Manifest, even on
// error; Manifests are append-only and are never mutated after
// creation.
type Manifest struct {
	ID            string
	SupplyOrderRef string
	StampRef      string
	Data          core.Dict
	Position      int // the owning SupplyLink's position, for ordering
}

// New builds a Manifest bound to order supplyOrderRef for the call
// tracked by stamp stampRef.
func New(id, supplyOrderRef, stampRef string, position int, data core.Dict) *Manifest {
	return &Manifest{
		ID:             id,
		SupplyOrderRef: supplyOrderRef,
		StampRef:       stampRef,
		Position:       position,
		Data:           data,
	}
}
