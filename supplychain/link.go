package supplychain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
	"github.com/throughline-systems/supplychain/manifest"
	"github.com/throughline-systems/supplychain/quartermaster"
	"github.com/throughline-systems/supplychain/requisition"
	"github.com/throughline-systems/supplychain/telemetry"
)

// TimeUnit is the unit a SupplyLink's WaitTime is expressed in.
type TimeUnit string

const (
	UnitSeconds TimeUnit = "s"
	UnitMinutes TimeUnit = "m"
	UnitHours   TimeUnit = "h"
	UnitDays    TimeUnit = "d"
)

func (u TimeUnit) seconds() int {
	switch u {
	case UnitSeconds:
		return 1
	case UnitMinutes:
		return 60
	case UnitHours:
		return 3600
	case UnitDays:
		return 86400
	default:
		return 1
	}
}

// LinkContext carries everything a SupplyLink needs to actually
// perform its call, threaded in by the Executor for one SupplyOrder.
// It is deliberately ids-and-interfaces only (no ORM objects) so it
// survives being captured across asynchronous task boundaries.
type LinkContext struct {
	SupplyOrderID string
	UserID        string
	Resolver      *quartermaster.Resolver
	Handlers      *handler.Registry
	Store         manifest.Store
}

// SupplyLink is one step of a SupplyChain: a Requisition, its ordered
// position, a wait-before-execute interval, and the Field Couplings
// that feed it.
type SupplyLink struct {
	ID          string
	ChainRef    string
	Requisition *requisition.Requisition
	Position    int
	WaitTime    int
	TimeUnit    TimeUnit
	Couplings   []FieldCoupling

	once           sync.Once
	inputFields    map[string]requisition.ParamType
	couplingByField map[string]string
}

// CountdownSeconds converts (WaitTime, TimeUnit) into seconds: s=1,
// m=60, h=3600, d=86400.
func (l *SupplyLink) CountdownSeconds() int {
	return l.WaitTime * l.TimeUnit.seconds()
}

func (l *SupplyLink) ensureCaches() {
	l.once.Do(func() {
		l.inputFields = make(map[string]requisition.ParamType, len(l.Couplings))
		l.couplingByField = make(map[string]string, len(l.Couplings))
		for _, c := range l.Couplings {
			paramType := requisition.TypeString
			if l.Requisition != nil {
				if p, ok := l.Requisition.Parameter(c.ParameterRef); ok {
					paramType = p.Type
				}
			}
			l.inputFields[c.FieldName] = paramType
			l.couplingByField[c.FieldName] = c.ParameterRef
		}
	})
}

// InputFields returns field_name -> declared type, derived from this
// Link's Field Couplings. Cached for the life of the Link: correctness
// requires the underlying Field Couplings to be immutable after the
// Link is first used.
func (l *SupplyLink) InputFields() map[string]requisition.ParamType {
	l.ensureCaches()
	return l.inputFields
}

// Coupling returns the field_name -> parameter_name rename map.
// Cached, same lifecycle note as InputFields.
func (l *SupplyLink) Coupling() map[string]string {
	l.ensureCaches()
	return l.couplingByField
}

// Errors lists every required parameter of the Requisition that lacks
// a Field Coupling. A non-empty result means the Link is structurally
// invalid and the owning Chain is unusable.
func (l *SupplyLink) Errors() []string {
	if l.Requisition == nil {
		return []string{"SupplyLink has no Requisition"}
	}
	covered := make(map[string]struct{}, len(l.Couplings))
	for _, c := range l.Couplings {
		covered[c.ParameterRef] = struct{}{}
	}
	var errs []string
	for _, p := range l.Requisition.RequiredParameters() {
		if _, ok := covered[p.Name]; !ok {
			errs = append(errs, fmt.Sprintf("required parameter %q of requisition %s has no FieldCoupling", p.Name, l.Requisition.ID))
		}
	}
	return errs
}

// ValidateInput succeeds iff, for every coupling, parameter.Validate
// holds for data[field_name]. On failure it lists every offending
// coupling.
func (l *SupplyLink) ValidateInput(data core.Dict) error {
	if l.Requisition == nil {
		return fmt.Errorf("%w: link %s has no requisition", core.ErrValidation, l.ID)
	}
	var bad []string
	for _, c := range l.Couplings {
		p, ok := l.Requisition.Parameter(c.ParameterRef)
		if !ok {
			bad = append(bad, fmt.Sprintf("FieldCoupling(%s->%s): unknown parameter", c.FieldName, c.ParameterRef))
			continue
		}
		v := data.StringValue(c.FieldName)
		if err := p.Validate(v); err != nil {
			bad = append(bad, fmt.Sprintf("FieldCoupling(%s->%s): %v", c.FieldName, c.ParameterRef, err))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %v", core.ErrValidation, bad)
	}
	return nil
}

// rename maps data's field-named keys onto the Requisition's
// parameter names.
func (l *SupplyLink) rename(data core.Dict) core.Dict {
	out := make(core.Dict, len(l.Couplings))
	for _, c := range l.Couplings {
		if v, ok := data[c.FieldName]; ok {
			out[c.ParameterRef] = v
		}
	}
	return out
}

// Process executes this Link. If data is nil, a prior link failed;
// that propagates unchanged. Otherwise it validates, renames fields
// onto parameter names, sleeps CountdownSeconds, resolves a
// Quartermaster, invokes the Requisition's handler, and always
// persists a Manifest for any attempted provider call (success or
// failure). It returns the handler's Cargo.Data, or nil if the call
// failed or nothing was produced.
//
// Per-link runtime failures (auth, rate limit, transport, cancellation)
// never escape as a Go error: they are materialized as a Manifest and
// the chain is allowed to continue with nil data, which subsequent
// links treat as "propagate null". Only a structural ValidateInput
// failure, or a failure to persist the Stamp or Manifest, is returned
// as an error, for the caller (normally the Executor) to log and abort.
func (l *SupplyLink) Process(ctx context.Context, data core.Dict, lctx LinkContext) (core.Dict, error) {
	if data == nil {
		return nil, nil
	}
	if err := l.ValidateInput(data); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartLinkSpan(ctx, l.ChainRef, l.Position, l.Requisition.ID)
	defer span.End()

	params := l.rename(data)

	if !sleepCancellable(ctx, time.Duration(l.CountdownSeconds())*time.Second) {
		l.persistTerminal(ctx, lctx, "", "cancelled", "cancelled")
		return nil, nil
	}

	qm, err := lctx.Resolver.Resolve(ctx, lctx.UserID, l.Requisition.ID, l.Requisition.VisaRequired)
	if err != nil {
		l.persistTerminal(ctx, lctx, "", classifyAuthError(err), err.Error())
		return nil, nil
	}

	stamp := manifest.NewStamp(core.NewID(), lctx.UserID, l.Requisition.ID, qm.Passport.ID)
	if err := lctx.Store.SaveStamp(ctx, stamp); err != nil {
		return nil, fmt.Errorf("saving pending stamp: %w", err)
	}

	cargo, procErr := lctx.Handlers.Process(ctx, l.Requisition.SupplierRef, string(l.Requisition.APIClass), params, qm.Passport.CredentialPayload)

	status, notes, cargoData := cargo.StatusCode, cargo.Notes, cargo.Data
	var transportErr *handler.TransportError
	switch {
	case errors.As(procErr, &transportErr):
		status = strconv.Itoa(transportErr.StatusCode)
		notes = transportErr.Reason
		cargoData = core.Dict{}
	case procErr != nil && status == "" && cargoData == nil:
		status = "error"
		notes = procErr.Error()
		cargoData = core.Dict{}
	}

	stamp.Finalize(status, notes)
	if err := lctx.Store.SaveStamp(ctx, stamp); err != nil {
		return nil, fmt.Errorf("finalizing stamp: %w", err)
	}
	man := manifest.New(core.NewID(), lctx.SupplyOrderID, stamp.ID, l.Position, cargoData)
	if err := lctx.Store.SaveManifest(ctx, man); err != nil {
		return nil, fmt.Errorf("saving manifest: %w", err)
	}

	if procErr != nil {
		return nil, nil
	}
	return cargoData, nil
}

func (l *SupplyLink) persistTerminal(ctx context.Context, lctx LinkContext, passportRef, statusCode, notes string) {
	stamp := manifest.NewStamp(core.NewID(), lctx.UserID, l.Requisition.ID, passportRef)
	stamp.Finalize(statusCode, notes)
	_ = lctx.Store.SaveStamp(ctx, stamp)
	man := manifest.New(core.NewID(), lctx.SupplyOrderID, stamp.ID, l.Position, core.Dict{})
	_ = lctx.Store.SaveManifest(ctx, man)
}

func classifyAuthError(err error) string {
	switch {
	case errors.Is(err, core.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, core.ErrAuth):
		return "auth_error"
	default:
		return "error"
	}
}

// sleepCancellable sleeps for d, returning false if ctx is cancelled
// first. A zero duration returns immediately without yielding.
func sleepCancellable(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
