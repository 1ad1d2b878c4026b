// Package manifest holds the durable, append-only record of every
// provider call: Stamp (the credential/outcome audit trail) and
// Manifest (the per-call record owned by a SupplyOrder), plus the
// store interfaces and Redis-backed implementation that persist them.
package manifest

import "time"

// Stamp records the credential and outcome of one call attempt. It is
// minted pending, handed to the handler, then finalized once the
// handler returns.
type Stamp struct {
	ID           string
	UserRef      string
	EndpointRef  string
	PassportRef  string
	StatusCode   string
	Notes        string
	IssuedAt     time.Time
	FinalizedAt  *time.Time
}

// StatusPending is the status code a Stamp carries between minting
// and finalization.
const StatusPending = "pending"

// NewStamp mints a pending Stamp for (userRef, endpointRef, passportRef).
func NewStamp(id, userRef, endpointRef, passportRef string) *Stamp {
	return &Stamp{
		ID:          id,
		UserRef:     userRef,
		EndpointRef: endpointRef,
		PassportRef: passportRef,
		StatusCode:  StatusPending,
		IssuedAt:    time.Now(),
	}
}

// Finalize records the outcome of the call this Stamp tracks.
func (s *Stamp) Finalize(statusCode, notes string) {
	s.StatusCode = statusCode
	s.Notes = notes
	now := time.Now()
	s.FinalizedAt = &now
}
