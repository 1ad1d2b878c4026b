// Package requisition describes a single third-party API endpoint: its
// parameter schema, URL, handler selector and rate-limit class. It is
// the innermost layer of the procurement pipeline; everything above it
// (supplychain.SupplyLink, quartermaster.Quartermaster) treats a
// Requisition as immutable once it is referenced by a Link.
package requisition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/throughline-systems/supplychain/core"
)

// ParamType is the declared type of one ParameterSpec. It governs how
// Validate parses an incoming string value.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeBool   ParamType = "bool"
)

// Choice is one (value, label) pair offered by a ParameterSpec with a
// closed set of choices.
type Choice struct {
	Value string
	Label string
}

// ParameterSpec is one named, typed parameter of a Requisition. The
// pair (requisition, name) is unique.
type ParameterSpec struct {
	RequisitionRef string
	Name           string
	Type           ParamType
	Default        *string
	Choices        []Choice
	Required       bool
}

// Validate reports whether v parses as the declared type. An empty
// string is treated as absent: valid for optional parameters, invalid
// for required ones.
func (p ParameterSpec) Validate(v string) error {
	if v == "" {
		if p.Required {
			return fmt.Errorf("%w: %s.%s is required", core.ErrValidation, p.RequisitionRef, p.Name)
		}
		return nil
	}
	switch p.Type {
	case TypeInt:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("%w: %s.%s must be an integer, got %q", core.ErrValidation, p.RequisitionRef, p.Name, v)
		}
	case TypeFloat:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("%w: %s.%s must be a number, got %q", core.ErrValidation, p.RequisitionRef, p.Name, v)
		}
	case TypeBool:
		switch strings.ToLower(v) {
		case "true", "false":
		default:
			return fmt.Errorf("%w: %s.%s must be true or false, got %q", core.ErrValidation, p.RequisitionRef, p.Name, v)
		}
	case TypeString:
		// any non-empty string is valid
	default:
		return fmt.Errorf("%w: %s.%s has unknown type %q", core.ErrValidation, p.RequisitionRef, p.Name, p.Type)
	}
	if len(p.Choices) > 0 {
		ok := false
		for _, c := range p.Choices {
			if c.Value == v {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %s.%s value %q is not among the allowed choices", core.ErrValidation, p.RequisitionRef, p.Name, v)
		}
	}
	return nil
}

// value returns v, or the spec's default, for inclusion in built
// parameters.
func (p ParameterSpec) value(v string) string {
	if v != "" {
		return v
	}
	if p.Default != nil {
		return *p.Default
	}
	return ""
}

// APIClass names one endpoint within a supplier, e.g. "url_report".
type APIClass string

// Requisition describes one API endpoint: its parameter schema, URL,
// handler selector and whether invoking it consumes visa quota.
// (SupplierRef, APIClass) is unique.
type Requisition struct {
	ID          string
	SupplierRef string
	APIClass    APIClass
	URL         string
	VisaRequired bool
	Parameters  []ParameterSpec
}

// RequiredParameters returns the subset of Parameters that are
// required, memoized nowhere here since Requisitions are small and
// long-lived configuration objects read far less often than they are
// validated against.
func (r *Requisition) RequiredParameters() []ParameterSpec {
	var out []ParameterSpec
	for _, p := range r.Parameters {
		if p.Required {
			out = append(out, p)
		}
	}
	return out
}

// Parameter looks up a ParameterSpec by name.
func (r *Requisition) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range r.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// Validate succeeds iff every required ParameterSpec has a non-empty
// value in input whose string form parses as its declared type;
// optional parameters may be absent or empty.
func (r *Requisition) Validate(input core.Dict) error {
	for _, p := range r.Parameters {
		v := input.StringValue(p.Name)
		if err := p.Validate(v); err != nil {
			return err
		}
	}
	return nil
}

// BuildParams copies each declared parameter's value (or its default)
// into a fresh dictionary keyed by ParameterSpec.Name.
func (r *Requisition) BuildParams(input core.Dict) core.Dict {
	out := make(core.Dict, len(r.Parameters))
	for _, p := range r.Parameters {
		v := p.value(input.StringValue(p.Name))
		if v == "" && !p.Required && p.Default == nil {
			continue
		}
		out[p.Name] = v
	}
	return out
}
