// Package handler is the RequestHandler registry: for each supplier it
// holds the concrete code that marshals parameters, performs the HTTP
// call, and normalizes the response into a Cargo. Provider-specific
// handlers (e.g. virustotal) live in subpackages and register
// themselves against a Registry.
package handler

import "github.com/throughline-systems/supplychain/core"

// Cargo is the transient, never-persisted normalized result of one
// provider call.
type Cargo struct {
	StatusCode string
	Data       core.Dict
	Notes      string
}
