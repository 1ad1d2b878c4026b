package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/supplychain"
)

// Procurement names a pairing of a SupplyChain with the downstream
// processor that consumes its final output.
type Procurement struct {
	ID         string
	Name       string
	Chain      *supplychain.SupplyChain
	Downstream DownstreamProcessor
}

// ProcurementSource looks up a Procurement by id. Executors hold only
// an id and a source, never a live *Procurement, so a job can cross a
// task-queue boundary as plain data.
type ProcurementSource interface {
	Procurement(ctx context.Context, id string) (*Procurement, error)
}

// StaticProcurementSource is a ProcurementSource backed by a fixed map,
// used by tests and small deployments that configure their
// Procurements once at startup.
type StaticProcurementSource struct {
	byID map[string]*Procurement
}

// NewStaticProcurementSource indexes procs by ID.
func NewStaticProcurementSource(procs ...*Procurement) *StaticProcurementSource {
	byID := make(map[string]*Procurement, len(procs))
	for _, p := range procs {
		byID[p.ID] = p
	}
	return &StaticProcurementSource{byID: byID}
}

func (s *StaticProcurementSource) Procurement(_ context.Context, id string) (*Procurement, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: procurement %s", core.ErrConfig, id)
	}
	return p, nil
}

// UseAlertData copies, for each key in the chain's InputFields, the
// value from alert.Data into a fresh dict derived from input,
// overwriting any key already present. It is idempotent given a fixed
// alert and chain.
func UseAlertData(chain *supplychain.SupplyChain, alert *Alert, input core.Dict) core.Dict {
	out := input.Clone()
	if out == nil {
		out = core.Dict{}
	}
	if alert == nil {
		return out
	}
	for field := range chain.InputFields() {
		if v, ok := alert.Data[field]; ok {
			out[field] = v
		}
	}
	return out
}

// Submit validates input against the Procurement's chain, persists a
// pending SupplyOrder, and hands it to the Executor for asynchronous
// processing. It returns the new order's id.
//
// A core.ErrValidation or core.ErrConfig is returned synchronously
// and no SupplyOrder is created; every later failure is only
// observable through the order's terminal state.
func (p *Procurement) Submit(ctx context.Context, orders OrderStore, exec Executor, userID string, input core.Dict) (string, error) {
	if errs := p.Chain.Errors(); len(errs) > 0 {
		return "", fmt.Errorf("%w: %v", core.ErrConfig, errs)
	}
	if err := p.Chain.ValidateInput(input); err != nil {
		return "", err
	}

	order := &SupplyOrder{
		ID:             core.NewID(),
		ProcurementRef: p.ID,
		UserRef:        userID,
		InputData:      input,
		CreatedAt:      time.Now(),
	}
	if err := orders.Save(ctx, order); err != nil {
		return "", fmt.Errorf("persisting supply order: %w", err)
	}
	if err := exec.Enqueue(ctx, order.ID, p.ID); err != nil {
		return "", fmt.Errorf("scheduling supply order: %w", err)
	}
	return order.ID, nil
}

// SubmitForAlert is Submit, but input_data is derived from alert via
// UseAlertData instead of being supplied directly.
func (p *Procurement) SubmitForAlert(ctx context.Context, orders OrderStore, exec Executor, alerts AlertProvider, userID, alertID string) (string, error) {
	alert, err := alerts.Get(ctx, alertID)
	if err != nil {
		return "", fmt.Errorf("loading alert: %w", err)
	}
	input := UseAlertData(p.Chain, alert, core.Dict{})

	if errs := p.Chain.Errors(); len(errs) > 0 {
		return "", fmt.Errorf("%w: %v", core.ErrConfig, errs)
	}
	if err := p.Chain.ValidateInput(input); err != nil {
		return "", err
	}

	order := &SupplyOrder{
		ID:             core.NewID(),
		ProcurementRef: p.ID,
		UserRef:        userID,
		AlertRef:       alertID,
		InputData:      input,
		CreatedAt:      time.Now(),
	}
	if err := orders.Save(ctx, order); err != nil {
		return "", fmt.Errorf("persisting supply order: %w", err)
	}
	if err := exec.Enqueue(ctx, order.ID, p.ID); err != nil {
		return "", fmt.Errorf("scheduling supply order: %w", err)
	}
	return order.ID, nil
}
