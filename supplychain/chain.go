package supplychain

import (
	"context"
	"fmt"
	"sort"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/requisition"
)

// SupplyChain is an ordered, linear list of SupplyLinks. It is not a
// general workflow engine: links do not fan out and there is no
// conditional routing.
type SupplyChain struct {
	ID    string
	Name  string
	Links []*SupplyLink
}

// sortedLinks returns Links ordered by Position ascending. Two links
// sharing a position is a configuration error and is rejected by
// Errors(), not silently tie-broken here.
func (c *SupplyChain) sortedLinks() []*SupplyLink {
	out := make([]*SupplyLink, len(c.Links))
	copy(out, c.Links)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// InputFields delegates to the first link (by position).
func (c *SupplyChain) InputFields() map[string]requisition.ParamType {
	links := c.sortedLinks()
	if len(links) == 0 {
		return nil
	}
	return links[0].InputFields()
}

// Platform returns the supplier of the last link (by position).
func (c *SupplyChain) Platform() string {
	links := c.sortedLinks()
	if len(links) == 0 {
		return ""
	}
	last := links[len(links)-1]
	if last.Requisition == nil {
		return ""
	}
	return last.Requisition.SupplierRef
}

// Errors returns ["SupplyChain has no SupplyLinks"] when empty, the
// concatenation of every link's Errors() otherwise, plus a
// configuration error if two links share a position.
func (c *SupplyChain) Errors() []string {
	if len(c.Links) == 0 {
		return []string{"SupplyChain has no SupplyLinks"}
	}

	var errs []string
	seenPositions := make(map[int]struct{}, len(c.Links))
	for _, l := range c.Links {
		if _, dup := seenPositions[l.Position]; dup {
			errs = append(errs, fmt.Sprintf("%v: two SupplyLinks share position %d", core.ErrConfig, l.Position))
		}
		seenPositions[l.Position] = struct{}{}
		errs = append(errs, l.Errors()...)
	}
	return errs
}

// ValidateInput delegates to the first link (by position).
func (c *SupplyChain) ValidateInput(data core.Dict) error {
	links := c.sortedLinks()
	if len(links) == 0 {
		return fmt.Errorf("%w: chain %s has no links", core.ErrConfig, c.ID)
	}
	return links[0].ValidateInput(data)
}

// Start orders the Links by Position ascending, threads the output of
// link k as the input of link k+1, and returns the final link's
// output (or nil if any link returned nil). The chain's output
// key-set is therefore always a subset of the union of its links'
// output key-sets; Start never introduces a key of its own.
func (c *SupplyChain) Start(ctx context.Context, input core.Dict, lctx LinkContext) (core.Dict, error) {
	links := c.sortedLinks()
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: chain %s has no links", core.ErrConfig, c.ID)
	}

	data := input
	for _, link := range links {
		out, err := link.Process(ctx, data, lctx)
		if err != nil {
			return nil, err
		}
		data = out
		if data == nil {
			break
		}
	}
	return data, nil
}
