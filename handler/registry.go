package handler

import (
	"context"
	"fmt"
	"sync"

	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/resilience"
)

// RequestHandler is implemented once per (supplier, api_class). Its
// contract: load credentials from credential, encode input
// appropriately for the provider, perform the call, and normalize the
// response into a Cargo.
type RequestHandler interface {
	Process(ctx context.Context, input core.Dict, credential core.Dict) (Cargo, error)
}

type key struct {
	supplier string
	apiClass string
}

// Registry selects a RequestHandler by (supplier.name,
// requisition.api_class), optionally guarding each endpoint behind its
// own CircuitBreaker and reporting outcomes to a shared
// MetricsCollector.
type Registry struct {
	mu       sync.RWMutex
	handlers map[key]RequestHandler
	breakers map[key]*resilience.CircuitBreaker
	metrics  resilience.MetricsCollector
	logger   core.Logger
}

// NewRegistry builds an empty Registry. logger and metrics may be nil.
func NewRegistry(logger core.Logger, metrics resilience.MetricsCollector) *Registry {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if metrics == nil {
		metrics = resilience.NoopMetrics
	}
	return &Registry{
		handlers: make(map[key]RequestHandler),
		breakers: make(map[key]*resilience.CircuitBreaker),
		metrics:  metrics,
		logger:   logger,
	}
}

// Register installs h for (supplier, apiClass).
func (r *Registry) Register(supplier, apiClass string, h RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key{supplier, apiClass}] = h
}

// WithCircuitBreaker attaches a CircuitBreaker that guards calls to
// (supplier, apiClass). Disabled (nil) by default, so Process behaves
// identically until a caller opts in.
func (r *Registry) WithCircuitBreaker(supplier, apiClass string, cb *resilience.CircuitBreaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[key{supplier, apiClass}] = cb
}

// Process dispatches to the registered handler for (supplier,
// apiClass), recording success/failure/rejection against that
// endpoint's circuit breaker and the shared MetricsCollector.
func (r *Registry) Process(ctx context.Context, supplier, apiClass string, input core.Dict, credential core.Dict) (Cargo, error) {
	k := key{supplier, apiClass}

	r.mu.RLock()
	h, ok := r.handlers[k]
	cb := r.breakers[k]
	r.mu.RUnlock()

	if !ok {
		return Cargo{}, fmt.Errorf("%w: %s/%s", ErrHandlerNotFound, supplier, apiClass)
	}

	name := supplier + "/" + apiClass
	if cb != nil && !cb.CanExecute() {
		r.metrics.RecordRejection(name)
		return Cargo{}, fmt.Errorf("circuit open for %s", name)
	}

	r.logger.DebugWithContext(ctx, "dispatching to request handler", map[string]interface{}{
		"supplier": supplier, "api_class": apiClass,
	})

	cargo, err := h.Process(ctx, input, credential)
	if err != nil {
		if cb != nil {
			cb.RecordFailure()
		}
		r.metrics.RecordFailure(name, "handler_error")
		return cargo, err
	}

	if cb != nil {
		cb.RecordSuccess()
	}
	r.metrics.RecordSuccess(name)
	return cargo, nil
}
