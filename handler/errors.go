package handler

import (
	"errors"
	"fmt"

	"github.com/throughline-systems/supplychain/core"
)

// ErrHandlerNotFound is returned by Registry.Process when no handler
// is registered for (supplier, apiClass).
var ErrHandlerNotFound = errors.New("no request handler registered for this endpoint")

// TransportError wraps core.ErrTransport with the HTTP status and
// reason that triggered it. The handler returns an empty Cargo with
// it; supplychain.SupplyLink.Process records StatusCode as the call's
// status code and Reason as its notes.
type TransportError struct {
	StatusCode int
	Reason     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: HTTP %d %s", core.ErrTransport, e.StatusCode, e.Reason)
}

func (e *TransportError) Unwrap() error { return core.ErrTransport }
