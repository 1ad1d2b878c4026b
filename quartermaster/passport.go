// Package quartermaster resolves, for a (user, requisition) pair, a
// usable credential set honoring per-credential rate limits. A
// Quartermaster (the source calls it an "Emissary") is a
// (Passport, Visa, endpoint-set) triple; Passports carry the actual
// credential payload, Visas define the rate-limit bucket.
package quartermaster

import "github.com/throughline-systems/supplychain/core"

// Passport is a credential set, granted either to everyone (Public)
// or to the members of UserSet.
type Passport struct {
	ID               string
	Public           bool
	UserSet          map[string]struct{}
	CredentialPayload core.Dict
}

// Grants reports whether user may use this passport.
func (p *Passport) Grants(userID string) bool {
	if p.Public {
		return true
	}
	if userID == "" {
		return false
	}
	_, ok := p.UserSet[userID]
	return ok
}

// APIKey is a convenience accessor for the common case of a single
// string credential stored under the "api_key" field.
func (p *Passport) APIKey() string {
	return p.CredentialPayload.StringValue("api_key")
}
