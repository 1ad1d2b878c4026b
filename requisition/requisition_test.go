package requisition

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/throughline-systems/supplychain/core"
)

func domainReport() *Requisition {
	return &Requisition{
		ID:          "req-1",
		SupplierRef: "virustotal",
		APIClass:    "domain_report",
		URL:         "https://www.virustotal.com/vtapi/v2/domain/report",
		Parameters: []ParameterSpec{
			{RequisitionRef: "req-1", Name: "domain", Type: TypeString, Required: true},
		},
	}
}

func TestValidateRequiredMissing(t *testing.T) {
	r := domainReport()
	err := r.Validate(core.Dict{})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestValidateEmptyStringTreatedAsAbsent(t *testing.T) {
	r := domainReport()
	err := r.Validate(core.Dict{"domain": ""})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestValidateSucceeds(t *testing.T) {
	r := domainReport()
	require.NoError(t, r.Validate(core.Dict{"domain": "example.com"}))
}

func TestValidateOptionalMayBeAbsent(t *testing.T) {
	r := &Requisition{Parameters: []ParameterSpec{{Name: "resource", Type: TypeString, Required: false}}}
	require.NoError(t, r.Validate(core.Dict{}))
}

func TestValidateNumericTypes(t *testing.T) {
	def := "1"
	r := &Requisition{Parameters: []ParameterSpec{
		{Name: "scan", Type: TypeInt, Required: true, Default: &def},
		{Name: "ratio", Type: TypeFloat, Required: false},
		{Name: "enabled", Type: TypeBool, Required: false},
	}}
	require.NoError(t, r.Validate(core.Dict{"scan": "1", "ratio": "3.14", "enabled": "TRUE"}))
	require.Error(t, r.Validate(core.Dict{"scan": "not-an-int"}))
	require.Error(t, r.Validate(core.Dict{"scan": "1", "ratio": "nope"}))
	require.Error(t, r.Validate(core.Dict{"scan": "1", "enabled": "maybe"}))
}

func TestBuildParamsAppliesDefaults(t *testing.T) {
	def := "1"
	r := &Requisition{Parameters: []ParameterSpec{
		{Name: "scan", Type: TypeInt, Required: false, Default: &def},
		{Name: "domain", Type: TypeString, Required: true},
	}}
	params := r.BuildParams(core.Dict{"domain": "example.com"})
	require.Equal(t, "1", params["scan"])
	require.Equal(t, "example.com", params["domain"])
}

func TestChoicesConstrainValue(t *testing.T) {
	p := ParameterSpec{Name: "unit", Type: TypeString, Required: true, Choices: []Choice{{Value: "s", Label: "seconds"}}}
	require.NoError(t, p.Validate("s"))
	require.Error(t, p.Validate("m"))
}
