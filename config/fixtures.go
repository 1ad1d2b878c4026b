// Package config loads the static procurement topology — Requisitions,
// SupplyChains and Quartermasters — from YAML fixtures on disk. It
// mirrors the directory-of-YAML-files loading pattern used for
// workflow definitions elsewhere in the ecosystem: one file per
// document, best-effort loading of a directory, strict parsing of a
// single named file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/quartermaster"
	"github.com/throughline-systems/supplychain/requisition"
	"github.com/throughline-systems/supplychain/supplychain"
)

// ParameterSpecDoc is the YAML shape of a requisition.ParameterSpec.
type ParameterSpecDoc struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Default  *string  `yaml:"default,omitempty"`
	Required bool     `yaml:"required"`
	Choices  []string `yaml:"choices,omitempty"`
}

// RequisitionDoc is the YAML shape of a requisition.Requisition.
type RequisitionDoc struct {
	ID           string             `yaml:"id"`
	Supplier     string             `yaml:"supplier"`
	APIClass     string             `yaml:"api_class"`
	URL          string             `yaml:"url"`
	VisaRequired bool               `yaml:"visa_required"`
	Parameters   []ParameterSpecDoc `yaml:"parameters"`
}

// ToRequisition builds the domain type from its YAML shape.
func (d RequisitionDoc) ToRequisition() *requisition.Requisition {
	req := &requisition.Requisition{
		ID:           d.ID,
		SupplierRef:  d.Supplier,
		APIClass:     requisition.APIClass(d.APIClass),
		URL:          d.URL,
		VisaRequired: d.VisaRequired,
	}
	for _, p := range d.Parameters {
		spec := requisition.ParameterSpec{
			RequisitionRef: d.ID,
			Name:           p.Name,
			Type:           requisition.ParamType(p.Type),
			Default:        p.Default,
			Required:       p.Required,
		}
		for _, c := range p.Choices {
			spec.Choices = append(spec.Choices, requisition.Choice{Value: c, Label: c})
		}
		req.Parameters = append(req.Parameters, spec)
	}
	return req
}

// FieldCouplingDoc is the YAML shape of a supplychain.FieldCoupling.
type FieldCouplingDoc struct {
	Field     string `yaml:"field"`
	Parameter string `yaml:"parameter"`
}

// SupplyLinkDoc is the YAML shape of a supplychain.SupplyLink,
// referencing its Requisition by id rather than embedding it.
type SupplyLinkDoc struct {
	ID            string             `yaml:"id"`
	RequisitionID string             `yaml:"requisition_id"`
	Position      int                `yaml:"position"`
	WaitTime      int                `yaml:"wait_time"`
	TimeUnit      string             `yaml:"time_unit"`
	Couplings     []FieldCouplingDoc `yaml:"couplings"`
}

// SupplyChainDoc is the YAML shape of a supplychain.SupplyChain. Every
// RequisitionID its links reference must be defined in the same
// ChainSetDoc.
type SupplyChainDoc struct {
	ID    string          `yaml:"id"`
	Name  string          `yaml:"name"`
	Links []SupplyLinkDoc `yaml:"links"`
}

// ChainSetDoc is the top-level shape of a chain fixture file: a
// catalog of Requisitions, followed by the SupplyChains built from
// them.
type ChainSetDoc struct {
	Requisitions []RequisitionDoc `yaml:"requisitions"`
	Chains       []SupplyChainDoc `yaml:"chains"`
}

// LoadChainSet parses a single YAML document into fully-linked
// SupplyChains, resolving each link's requisition_id against the
// file's own requisitions catalog.
func LoadChainSet(data []byte) (map[string]*supplychain.SupplyChain, error) {
	var doc ChainSetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing chain fixture: %v", core.ErrConfig, err)
	}

	requisitions := make(map[string]*requisition.Requisition, len(doc.Requisitions))
	for _, r := range doc.Requisitions {
		requisitions[r.ID] = r.ToRequisition()
	}

	chains := make(map[string]*supplychain.SupplyChain, len(doc.Chains))
	for _, c := range doc.Chains {
		chain := &supplychain.SupplyChain{ID: c.ID, Name: c.Name}
		for _, l := range c.Links {
			req, ok := requisitions[l.RequisitionID]
			if !ok {
				return nil, fmt.Errorf("%w: chain %s link %s references unknown requisition %s", core.ErrConfig, c.ID, l.ID, l.RequisitionID)
			}
			link := &supplychain.SupplyLink{
				ID:          l.ID,
				ChainRef:    c.ID,
				Requisition: req,
				Position:    l.Position,
				WaitTime:    l.WaitTime,
				TimeUnit:    supplychain.TimeUnit(l.TimeUnit),
			}
			for _, cp := range l.Couplings {
				link.Couplings = append(link.Couplings, supplychain.FieldCoupling{
					LinkRef:      l.ID,
					FieldName:    cp.Field,
					ParameterRef: cp.Parameter,
				})
			}
			chain.Links = append(chain.Links, link)
		}
		chains[c.ID] = chain
	}
	return chains, nil
}

// LoadChainSetFile reads and parses a single chain fixture file.
func LoadChainSetFile(path string) (map[string]*supplychain.SupplyChain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrConfig, path, err)
	}
	return LoadChainSet(data)
}

// VisaDoc is the YAML shape of a quartermaster.Visa.
type VisaDoc struct {
	ID              string `yaml:"id"`
	CallsAllowed    int    `yaml:"calls_allowed"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// PassportDoc is the YAML shape of a quartermaster.Passport.
type PassportDoc struct {
	ID         string            `yaml:"id"`
	Public     bool              `yaml:"public"`
	Users      []string          `yaml:"users,omitempty"`
	Credential map[string]string `yaml:"credential"`
}

// QuartermasterDoc is the YAML shape of a quartermaster.Quartermaster.
type QuartermasterDoc struct {
	ID            string   `yaml:"id"`
	Passport      PassportDoc `yaml:"passport"`
	Visa          *VisaDoc    `yaml:"visa,omitempty"`
	RequisitionIDs []string   `yaml:"requisition_ids"`
}

// QuartermasterSetDoc is the top-level shape of a quartermaster
// fixture file.
type QuartermasterSetDoc struct {
	Quartermasters []QuartermasterDoc `yaml:"quartermasters"`
}

// LoadQuartermasterSet parses a single YAML document into
// quartermaster.Quartermasters.
func LoadQuartermasterSet(data []byte) ([]*quartermaster.Quartermaster, error) {
	var doc QuartermasterSetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing quartermaster fixture: %v", core.ErrConfig, err)
	}

	out := make([]*quartermaster.Quartermaster, 0, len(doc.Quartermasters))
	for _, q := range doc.Quartermasters {
		credential := make(core.Dict, len(q.Passport.Credential))
		for k, v := range q.Passport.Credential {
			credential[k] = v
		}
		userSet := make(map[string]struct{}, len(q.Passport.Users))
		for _, u := range q.Passport.Users {
			userSet[u] = struct{}{}
		}
		passport := &quartermaster.Passport{
			ID:                q.Passport.ID,
			Public:            q.Passport.Public,
			UserSet:           userSet,
			CredentialPayload: credential,
		}

		var visa *quartermaster.Visa
		if q.Visa != nil {
			visa = &quartermaster.Visa{
				ID:              q.Visa.ID,
				CallsAllowed:    q.Visa.CallsAllowed,
				IntervalSeconds: q.Visa.IntervalSeconds,
			}
		}

		endpoints := make(map[string]struct{}, len(q.RequisitionIDs))
		for _, id := range q.RequisitionIDs {
			endpoints[id] = struct{}{}
		}

		out = append(out, &quartermaster.Quartermaster{
			ID:        q.ID,
			Passport:  passport,
			Visa:      visa,
			Endpoints: endpoints,
		})
	}
	return out, nil
}

// LoadQuartermasterSetFile reads and parses a single quartermaster
// fixture file.
func LoadQuartermasterSetFile(path string) ([]*quartermaster.Quartermaster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrConfig, path, err)
	}
	return LoadQuartermasterSet(data)
}

// LoadChainsFromDir best-effort loads every *.yaml/*.yml file under
// dir as a chain fixture, skipping (and reporting) any file that
// fails to parse rather than aborting the whole directory. A missing
// directory is not an error: a deployment may configure no static
// fixtures at all and rely entirely on a database-backed Source.
func LoadChainsFromDir(dir string) (map[string]*supplychain.SupplyChain, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return map[string]*supplychain.SupplyChain{}, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	chains := make(map[string]*supplychain.SupplyChain)
	var errs []error
	for _, name := range names {
		parsed, err := LoadChainSetFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for id, c := range parsed {
			chains[id] = c
		}
	}
	return chains, errs
}
