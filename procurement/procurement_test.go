package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
	"github.com/throughline-systems/supplychain/manifest"
	"github.com/throughline-systems/supplychain/quartermaster"
	"github.com/throughline-systems/supplychain/requisition"
	"github.com/throughline-systems/supplychain/supplychain"
)

type stubHandler struct {
	cargo handler.Cargo
	err   error
}

func (s stubHandler) Process(context.Context, core.Dict, core.Dict) (handler.Cargo, error) {
	return s.cargo, s.err
}

type memoryDownstream struct {
	docs map[string]core.Dict
}

func newMemoryDownstream() *memoryDownstream {
	return &memoryDownstream{docs: make(map[string]core.Dict)}
}

func (m *memoryDownstream) Store(_ context.Context, platform string, data core.Dict) (string, error) {
	id := core.NewID()
	doc := data.Clone()
	doc["platform"] = platform
	m.docs[id] = doc
	return id, nil
}

func (m *memoryDownstream) Find(_ context.Context, docID string) (core.Dict, error) {
	return m.docs[docID], nil
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

func publicResolver(requisitionIDs ...string) *quartermaster.Resolver {
	endpoints := make(map[string]struct{}, len(requisitionIDs))
	for _, id := range requisitionIDs {
		endpoints[id] = struct{}{}
	}
	qm := &quartermaster.Quartermaster{
		ID:        "qm-public",
		Passport:  &quartermaster.Passport{ID: "passport-public", Public: true, CredentialPayload: core.Dict{"api_key": "k"}},
		Endpoints: endpoints,
	}
	return quartermaster.NewResolver(&quartermaster.StaticSource{All: []*quartermaster.Quartermaster{qm}}, quartermaster.NewMutexVisaCounter(), nil)
}

func singleLinkProcurement() (*Procurement, *handler.Registry) {
	req := domainReportRequisition()
	link := &supplychain.SupplyLink{
		ID:          "link-1",
		Requisition: req,
		Position:    0,
		Couplings:   []supplychain.FieldCoupling{{FieldName: "domain", ParameterRef: "domain"}},
	}
	chain := &supplychain.SupplyChain{ID: "chain-1", Links: []*supplychain.SupplyLink{link}}

	reg := handler.NewRegistry(nil, nil)
	reg.Register("virustotal", "domain_report", stubHandler{
		cargo: handler.Cargo{StatusCode: "1", Data: core.Dict{"positives": 0}},
	})

	return &Procurement{ID: "proc-1", Name: "domain-lookup", Chain: chain, Downstream: newMemoryDownstream()}, reg
}

func TestUseAlertDataCopiesInputFieldsOnly(t *testing.T) {
	req := domainReportRequisition()
	link := &supplychain.SupplyLink{ID: "l1", Requisition: req, Position: 0, Couplings: []supplychain.FieldCoupling{{FieldName: "domain", ParameterRef: "domain"}}}
	chain := &supplychain.SupplyChain{ID: "c1", Links: []*supplychain.SupplyLink{link}}

	alert := &Alert{ID: "a1", Data: core.Dict{"domain": "dunbararmored.com", "unrelated": "ignored"}}

	out := UseAlertData(chain, alert, core.Dict{"domain": "stale.example"})
	require.Equal(t, "dunbararmored.com", out["domain"])
	require.NotContains(t, out, "unrelated")
}

func TestUseAlertDataIsIdempotent(t *testing.T) {
	req := domainReportRequisition()
	link := &supplychain.SupplyLink{ID: "l1", Requisition: req, Position: 0, Couplings: []supplychain.FieldCoupling{{FieldName: "domain", ParameterRef: "domain"}}}
	chain := &supplychain.SupplyChain{ID: "c1", Links: []*supplychain.SupplyLink{link}}
	alert := &Alert{ID: "a1", Data: core.Dict{"domain": "dunbararmored.com"}}

	first := UseAlertData(chain, alert, core.Dict{})
	second := UseAlertData(chain, alert, first)
	require.Equal(t, first, second)
}

func TestSubmitRejectsInvalidInputSynchronouslyWithoutPersisting(t *testing.T) {
	proc, _ := singleLinkProcurement()
	orders := NewMemoryOrderStore()
	exec := NewInlineExecutor(&Runtime{Orders: orders}, 1)
	defer exec.Close()

	_, err := proc.Submit(context.Background(), orders, exec, "user-1", core.Dict{})
	require.Error(t, err)
	require.ErrorIs(t, err, core.ErrValidation)
	require.Empty(t, orders.orders)
}

func TestSubmitPersistsOrderAndSchedulesExecution(t *testing.T) {
	proc, reg := singleLinkProcurement()
	orders := NewMemoryOrderStore()
	manifests := manifest.NewMemoryStore()
	rt := &Runtime{
		Orders:       orders,
		Manifests:    manifests,
		Resolver:     publicResolver(proc.Chain.Links[0].Requisition.ID),
		Handlers:     reg,
		Procurements: NewStaticProcurementSource(proc),
	}
	exec := NewInlineExecutor(rt, 1)
	defer exec.Close()

	orderID, err := proc.Submit(context.Background(), orders, exec, "user-1", core.Dict{"domain": "dunbararmored.com"})
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	require.Eventually(t, func() bool {
		o, err := orders.Get(context.Background(), orderID)
		return err == nil && o.FinalDocID != ""
	}, time.Second, 5*time.Millisecond)

	order, err := orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	require.Equal(t, "virustotal", order.FinalStorageRef)

	doc, err := proc.Downstream.Find(context.Background(), order.FinalDocID)
	require.NoError(t, err)
	require.Equal(t, 0, doc["positives"])
}

type staticAlerts struct {
	alert *Alert
}

func (s staticAlerts) Get(context.Context, string) (*Alert, error) {
	return s.alert, nil
}

func TestSubmitForAlertDerivesInputFromAlertData(t *testing.T) {
	proc, reg := singleLinkProcurement()
	orders := NewMemoryOrderStore()
	manifests := manifest.NewMemoryStore()
	rt := &Runtime{
		Orders:       orders,
		Manifests:    manifests,
		Resolver:     publicResolver(proc.Chain.Links[0].Requisition.ID),
		Handlers:     reg,
		Procurements: NewStaticProcurementSource(proc),
	}
	exec := NewInlineExecutor(rt, 1)
	defer exec.Close()

	alerts := staticAlerts{alert: &Alert{ID: "a1", Data: core.Dict{"domain": "dunbararmored.com"}}}

	orderID, err := proc.SubmitForAlert(context.Background(), orders, exec, alerts, "user-1", "a1")
	require.NoError(t, err)

	order, err := orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	require.Equal(t, "dunbararmored.com", order.InputData["domain"])
	require.Equal(t, "a1", order.AlertRef)
}
