package procurement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/throughline-systems/supplychain/core"
	"github.com/throughline-systems/supplychain/handler"
	"github.com/throughline-systems/supplychain/manifest"
	"github.com/throughline-systems/supplychain/quartermaster"
	"github.com/throughline-systems/supplychain/supplychain"
	"github.com/throughline-systems/supplychain/telemetry"
)

// Executor schedules a SupplyOrder for asynchronous processing. It
// carries only ids across whatever boundary separates scheduling from
// execution, never a live *Procurement or *SupplyOrder, so a
// Redis-backed realization can serialize the job as plain JSON.
type Executor interface {
	Enqueue(ctx context.Context, orderID, procurementID string) error
}

// job is the unit of work threaded through an Executor. Fields are
// exported for JSON.
type job struct {
	OrderID       string `json:"order_id"`
	ProcurementID string `json:"procurement_id"`
}

// Runtime resolves a SupplyOrder and its Procurement into the
// concrete stores and registries a SupplyChain.Start needs, then runs
// the four-step process described for a SupplyOrder: start the chain,
// and if it yields a final document, hand it to the downstream
// processor and record the storage pointer; otherwise save the order
// unchanged.
type Runtime struct {
	Orders       OrderStore
	Manifests    manifest.Store
	Resolver     *quartermaster.Resolver
	Handlers     *handler.Registry
	Procurements ProcurementSource
	Logger       core.Logger
}

// Process runs one SupplyOrder to completion.
func (rt *Runtime) Process(ctx context.Context, orderID, procurementID string) error {
	ctx, span := telemetry.StartOrderSpan(ctx, orderID)
	defer span.End()

	order, err := rt.Orders.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("loading supply order: %w", err)
	}
	proc, err := rt.Procurements.Procurement(ctx, procurementID)
	if err != nil {
		return fmt.Errorf("loading procurement: %w", err)
	}

	lctx := supplychain.LinkContext{
		SupplyOrderID: orderID,
		UserID:        order.UserRef,
		Resolver:      rt.Resolver,
		Handlers:      rt.Handlers,
		Store:         rt.Manifests,
	}

	final, err := proc.Chain.Start(ctx, order.InputData, lctx)
	if err != nil {
		rt.log().ErrorWithContext(ctx, "supply chain run failed", map[string]interface{}{
			"order_id": orderID, "error": err.Error(),
		})
		return rt.Orders.Save(ctx, order)
	}

	if final == nil {
		return rt.Orders.Save(ctx, order)
	}

	wrapped := core.Dict{"platform": proc.Chain.Platform()}
	for k, v := range final {
		wrapped[k] = v
	}

	docID, err := proc.Downstream.Store(ctx, proc.Chain.Platform(), wrapped)
	if err != nil {
		return fmt.Errorf("storing final document: %w", err)
	}

	order.FinalStorageRef = proc.Chain.Platform()
	order.FinalDocID = docID
	return rt.Orders.Save(ctx, order)
}

func (rt *Runtime) log() core.Logger {
	if rt.Logger == nil {
		return core.NoOpLogger{}
	}
	return rt.Logger
}

// InlineExecutor runs jobs on a bounded pool of background goroutines
// fed by an in-process channel. It is the realization used by tests
// and single-process deployments that don't need a shared queue.
type InlineExecutor struct {
	runtime *Runtime
	jobs     chan job
	done     chan struct{}
}

// NewInlineExecutor starts workers goroutines draining a job channel
// buffered to workers*4 entries, each calling runtime.Process.
func NewInlineExecutor(runtime *Runtime, workers int) *InlineExecutor {
	if workers <= 0 {
		workers = 1
	}
	e := &InlineExecutor{
		runtime: runtime,
		jobs:    make(chan job, workers*4),
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	return e
}

func (e *InlineExecutor) worker() {
	for {
		select {
		case <-e.done:
			return
		case j, ok := <-e.jobs:
			if !ok {
				return
			}
			ctx := context.Background()
			if err := e.runtime.Process(ctx, j.OrderID, j.ProcurementID); err != nil {
				e.runtime.log().ErrorWithContext(ctx, "order processing failed", map[string]interface{}{
					"order_id": j.OrderID, "error": err.Error(),
				})
			}
		}
	}
}

// Enqueue hands a job to the worker pool. It blocks only if every
// worker and the job buffer is saturated.
func (e *InlineExecutor) Enqueue(ctx context.Context, orderID, procurementID string) error {
	select {
	case e.jobs <- job{OrderID: orderID, ProcurementID: procurementID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals workers to exit. Jobs still in the buffer may be left
// unprocessed, Enqueue is not refused afterwards, and Close does not
// wait for in-flight jobs.
func (e *InlineExecutor) Close() {
	close(e.done)
}

// QueueExecutor is the Redis-backed realization of Executor: Enqueue
// LPUSHes a job, and a QueueExecutor's worker loop BRPOPs jobs and
// runs them through a Runtime. Only ids cross the Redis boundary.
type QueueExecutor struct {
	client   *redis.Client
	queueKey string
	runtime  *Runtime
}

// NewQueueExecutor builds a QueueExecutor against queueKey.
func NewQueueExecutor(client *redis.Client, queueKey string, runtime *Runtime) *QueueExecutor {
	if queueKey == "" {
		queueKey = "supplychain:orders:queue"
	}
	return &QueueExecutor{client: client, queueKey: queueKey, runtime: runtime}
}

// Enqueue LPUSHes the job as a JSON blob.
func (q *QueueExecutor) Enqueue(ctx context.Context, orderID, procurementID string) error {
	data, err := json.Marshal(job{OrderID: orderID, ProcurementID: procurementID})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.queueKey, data).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Run blocks, BRPOPing jobs off the queue and running them through
// the Runtime, until ctx is cancelled.
func (q *QueueExecutor) Run(ctx context.Context, pollTimeout time.Duration) error {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := q.client.BRPop(ctx, pollTimeout, q.queueKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("dequeue job: %w", err)
		}
		if len(result) < 2 {
			continue
		}
		var j job
		if err := json.Unmarshal([]byte(result[1]), &j); err != nil {
			q.runtime.log().ErrorWithContext(ctx, "malformed job payload", map[string]interface{}{"error": err.Error()})
			continue
		}
		if err := q.runtime.Process(ctx, j.OrderID, j.ProcurementID); err != nil {
			q.runtime.log().ErrorWithContext(ctx, "order processing failed", map[string]interface{}{
				"order_id": j.OrderID, "error": err.Error(),
			})
		}
	}
}
