package quartermaster

import (
	"context"
	"fmt"
	"sort"

	"github.com/throughline-systems/supplychain/core"
)

// Quartermaster (the source's "Emissary") authorizes use of a
// (Passport, Visa, endpoint-set) triple. A user U may invoke
// requisition R iff some Quartermaster's passport grants U and its
// Endpoints contains R.
type Quartermaster struct {
	ID          string
	Passport    *Passport
	Visa        *Visa // nil when the requisition does not require one
	Endpoints   map[string]struct{}
	RecentCalls int // used only to break resolution ties, ascending
}

// Authorizes reports whether this Quartermaster covers requisitionID.
func (q *Quartermaster) Authorizes(requisitionID string) bool {
	_, ok := q.Endpoints[requisitionID]
	return ok
}

// Source is the read model the Resolver queries: every Quartermaster
// known to the system. A real deployment backs this with a database
// or config-loaded repository (see the config package's YAML loader);
// tests back it with a plain slice.
type Source interface {
	Quartermasters(ctx context.Context, requisitionID string) ([]*Quartermaster, error)
}

// Resolver implements the credential resolution algorithm: gather
// candidates authorized for (user, requisition), drop any whose visa
// bucket is exhausted when the requisition requires one, prefer
// private over public, then fewest recent calls, then lowest id.
type Resolver struct {
	source  Source
	counter VisaCounter
	logger  core.Logger
}

// NewResolver builds a Resolver. logger may be nil.
func NewResolver(source Source, counter VisaCounter, logger core.Logger) *Resolver {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Resolver{source: source, counter: counter, logger: logger}
}

// Resolve finds the best Quartermaster for (userID, requisitionID,
// visaRequired). It returns core.ErrAuth if no candidate authorizes
// the user, and core.ErrRateLimited if candidates exist but every
// visa-requiring one is exhausted.
func (r *Resolver) Resolve(ctx context.Context, userID, requisitionID string, visaRequired bool) (*Quartermaster, error) {
	all, err := r.source.Quartermasters(ctx, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("listing quartermasters: %w", err)
	}

	var candidates []*Quartermaster
	for _, q := range all {
		if !q.Authorizes(requisitionID) {
			continue
		}
		if !q.Passport.Grants(userID) {
			continue
		}
		candidates = append(candidates, q)
	}
	if len(candidates) == 0 {
		r.logger.WarnWithContext(ctx, "no quartermaster authorizes user for requisition", map[string]interface{}{
			"user_id": userID, "requisition_id": requisitionID,
		})
		return nil, fmt.Errorf("%w: user=%s requisition=%s", core.ErrAuth, userID, requisitionID)
	}

	if visaRequired {
		var withQuota []*Quartermaster
		sawVisa := false
		for _, q := range candidates {
			if q.Visa == nil {
				// No visa attached despite the requirement: treat as
				// unrestricted rather than rejecting outright, since
				// the invariant binds the requisition, not every
				// Quartermaster that serves it.
				withQuota = append(withQuota, q)
				continue
			}
			sawVisa = true
			ok, err := r.counter.Remaining(ctx, q.Visa.ID, *q.Visa)
			if err != nil {
				return nil, fmt.Errorf("checking visa bucket: %w", err)
			}
			if ok {
				withQuota = append(withQuota, q)
			}
		}
		if len(withQuota) == 0 && sawVisa {
			r.logger.WarnWithContext(ctx, "all visa buckets exhausted", map[string]interface{}{
				"user_id": userID, "requisition_id": requisitionID,
			})
			return nil, fmt.Errorf("%w: user=%s requisition=%s", core.ErrRateLimited, userID, requisitionID)
		}
		candidates = withQuota
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Passport.Public != b.Passport.Public {
			return !a.Passport.Public // private (non-public) first
		}
		if a.RecentCalls != b.RecentCalls {
			return a.RecentCalls < b.RecentCalls
		}
		return a.ID < b.ID
	})

	chosen := candidates[0]

	if chosen.Visa != nil {
		ok, err := r.counter.Allow(ctx, chosen.Visa.ID, *chosen.Visa)
		if err != nil {
			return nil, fmt.Errorf("consuming visa bucket: %w", err)
		}
		if !ok {
			// Lost a race against another worker between the Remaining
			// check and here; the bucket emptied in between.
			r.logger.WarnWithContext(ctx, "visa bucket exhausted after selection", map[string]interface{}{
				"user_id": userID, "requisition_id": requisitionID, "quartermaster_id": chosen.ID,
			})
			return nil, fmt.Errorf("%w: user=%s requisition=%s", core.ErrRateLimited, userID, requisitionID)
		}
	}

	r.logger.DebugWithContext(ctx, "resolved quartermaster", map[string]interface{}{
		"user_id": userID, "requisition_id": requisitionID, "quartermaster_id": chosen.ID,
	})
	return chosen, nil
}

// StaticSource is a Source backed by a fixed, in-memory list, used by
// tests and by small deployments that load their Quartermaster
// configuration once at startup (see the config package).
type StaticSource struct {
	All []*Quartermaster
}

func (s *StaticSource) Quartermasters(_ context.Context, requisitionID string) ([]*Quartermaster, error) {
	var out []*Quartermaster
	for _, q := range s.All {
		if q.Authorizes(requisitionID) {
			out = append(out, q)
		}
	}
	return out, nil
}
