package core

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID mints an opaque identifier. Every entity in the data model
// (Requisition, SupplyChain, SupplyLink, Quartermaster, Manifest,
// Stamp, SupplyOrder) uses this rather than an auto-increment integer,
// so stores are free to be either relational or document-based.
func NewID() string {
	return uuid.NewString()
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
