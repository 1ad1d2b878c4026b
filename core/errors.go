package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison with errors.Is().
var (
	// ErrConfig covers a chain with no links, a link with missing
	// required couplings, or duplicate link positions.
	ErrConfig = errors.New("configuration error")
	// ErrValidation covers a failed Requisition.Validate or
	// SupplyLink.ValidateInput.
	ErrValidation = errors.New("validation error")
	// ErrAuth is raised when no Quartermaster can be resolved for a
	// (user, requisition) pair.
	ErrAuth = errors.New("no usable credential for this endpoint")
	// ErrRateLimited is raised when every candidate Quartermaster's
	// visa bucket is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrTransport covers a non-2xx HTTP response or connection
	// failure from a provider.
	ErrTransport = errors.New("transport error")
	// ErrPollingExhausted names the URL-report handler's retry budget
	// being spent without a final result. The handler does not return
	// it: it returns the last Cargo with a nil error, so the chain
	// continues with the last data seen.
	ErrPollingExhausted = errors.New("polling retries exhausted")
	// ErrCancelled covers external cancellation of a link in flight.
	ErrCancelled = errors.New("cancelled")
)

// ChainError is a structured, wrapped error carrying the operation and
// entity involved, modeled on a framework-error pattern: enough
// context to log usefully, and still comparable with errors.Is/As via
// Unwrap.
type ChainError struct {
	Op      string // e.g. "SupplyLink.process"
	Kind    string // e.g. "requisition", "quartermaster", "manifest"
	ID      string // the entity's id, if any
	Message string
	Err     error
}

func (e *ChainError) Error() string {
	switch {
	case e.Op != "" && e.Err != nil && e.ID != "":
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s error", e.Kind)
	}
}

func (e *ChainError) Unwrap() error { return e.Err }

// NewChainError builds a ChainError wrapping err.
func NewChainError(op, kind string, err error) *ChainError {
	return &ChainError{Op: op, Kind: kind, Err: err}
}

// WithID attaches the entity id and returns e for chaining.
func (e *ChainError) WithID(id string) *ChainError {
	e.ID = id
	return e
}

// IsRetryable reports whether err represents a transient condition
// worth retrying at a layer above the chain (e.g. requeuing an order).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrRateLimited)
}

// IsTerminal reports whether err should stop the chain outright
// (as opposed to PollingExhausted, which is recorded but not fatal).
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrCancelled)
}
