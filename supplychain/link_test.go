package supplychain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
	"github.com/throughline-systems/supplychain/manifest"
	"github.com/throughline-systems/supplychain/quartermaster"
	"github.com/throughline-systems/supplychain/requisition"
)

type stubHandler struct {
	cargo handler.Cargo
	err   error
}

func (s stubHandler) Process(context.Context, core.Dict, core.Dict) (handler.Cargo, error) {
	return s.cargo, s.err
}

func domainReportRequisition() *requisition.Requisition {
	return &requisition.Requisition{
		ID:          "req-domain",
		SupplierRef: "virustotal",
		APIClass:    "domain_report",
		Parameters: []requisition.ParameterSpec{
			{RequisitionRef: "req-domain", Name: "domain", Type: requisition.TypeString, Required: true},
		},
	}
}

func publicQuartermaster(requisitionID string) *quartermaster.Quartermaster {
	return &quartermaster.Quartermaster{
		ID:        "qm-public",
		Passport:  &quartermaster.Passport{ID: "passport-1", Public: true, CredentialPayload: core.Dict{"api_key": "k"}},
		Endpoints: map[string]struct{}{requisitionID: {}},
	}
}

func newTestLinkContext(reg *handler.Registry, requisitionID string) (LinkContext, *manifest.MemoryStore) {
	store := manifest.NewMemoryStore()
	resolver := quartermaster.NewResolver(&quartermaster.StaticSource{All: []*quartermaster.Quartermaster{publicQuartermaster(requisitionID)}}, quartermaster.NewMutexVisaCounter(), nil)
	return LinkContext{
		SupplyOrderID: "order-1",
		UserID:        "user-1",
		Resolver:      resolver,
		Handlers:      reg,
		Store:         store,
	}, store
}

func TestLinkProcessPropagatesNilData(t *testing.T) {
	l := &SupplyLink{ID: "l1", Requisition: domainReportRequisition(), Couplings: []FieldCoupling{{FieldName: "domain", ParameterRef: "domain"}}}
	reg := handler.NewRegistry(nil, nil)
	lctx, _ := newTestLinkContext(reg, l.Requisition.ID)

	out, err := l.Process(context.Background(), nil, lctx)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestLinkProcessSuccessPersistsManifest(t *testing.T) {
	req := domainReportRequisition()
	l := &SupplyLink{ID: "l1", Requisition: req, Couplings: []FieldCoupling{{FieldName: "domain", ParameterRef: "domain"}}}

	reg := handler.NewRegistry(nil, nil)
	reg.Register("virustotal", "domain_report", stubHandler{cargo: handler.Cargo{StatusCode: "1", Notes: "clean", Data: core.Dict{"positives": 0}}})

	lctx, store := newTestLinkContext(reg, req.ID)

	out, err := l.Process(context.Background(), core.Dict{"domain": "example.com"}, lctx)
	require.NoError(t, err)
	require.Equal(t, core.Dict{"positives": 0}, out)

	manifests, err := store.ListManifests(context.Background(), "order-1")
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	require.Equal(t, core.Dict{"positives": 0}, manifests[0].Data)
}

func TestLinkProcessValidationFailureIsReturnedNotPersisted(t *testing.T) {
	req := domainReportRequisition()
	l := &SupplyLink{ID: "l1", Requisition: req, Couplings: []FieldCoupling{{FieldName: "domain", ParameterRef: "domain"}}}
	reg := handler.NewRegistry(nil, nil)
	lctx, store := newTestLinkContext(reg, req.ID)

	_, err := l.Process(context.Background(), core.Dict{}, lctx)
	require.ErrorIs(t, err, core.ErrValidation)

	manifests, _ := store.ListManifests(context.Background(), "order-1")
	require.Empty(t, manifests)
}

func TestLinkProcessNoQuartermasterRecordsManifestAndStops(t *testing.T) {
	req := domainReportRequisition()
	l := &SupplyLink{ID: "l1", Requisition: req, Couplings: []FieldCoupling{{FieldName: "domain", ParameterRef: "domain"}}}

	reg := handler.NewRegistry(nil, nil)
	store := manifest.NewMemoryStore()
	// no quartermaster authorizes anything
	resolver := quartermaster.NewResolver(&quartermaster.StaticSource{}, quartermaster.NewMutexVisaCounter(), nil)
	lctx := LinkContext{SupplyOrderID: "order-1", UserID: "user-1", Resolver: resolver, Handlers: reg, Store: store}

	out, err := l.Process(context.Background(), core.Dict{"domain": "example.com"}, lctx)
	require.NoError(t, err)
	require.Nil(t, out)

	manifests, _ := store.ListManifests(context.Background(), "order-1")
	require.Len(t, manifests, 1)
}

func TestLinkErrorsListsMissingCouplings(t *testing.T) {
	l := &SupplyLink{ID: "l1", Requisition: domainReportRequisition()}
	errs := l.Errors()
	require.Len(t, errs, 1)
}

func TestLinkCountdownSeconds(t *testing.T) {
	l := &SupplyLink{WaitTime: 5, TimeUnit: UnitMinutes}
	require.Equal(t, 300, l.CountdownSeconds())
}
