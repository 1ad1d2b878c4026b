package procurement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/throughline-systems/supplychain/core"
)

// SupplyOrder is the per-request execution context: the principal,
// the resolved input, and (once processing finishes) a pointer into
// downstream storage. Its Manifests live in the manifest store, keyed
// by this order's ID.
type SupplyOrder struct {
	ID              string
	ProcurementRef  string
	UserRef         string
	AlertRef        string
	InputData       core.Dict
	FinalStorageRef string
	FinalDocID      string
	CreatedAt       time.Time
}

// DownstreamProcessor hands a SupplyChain's final output off to
// whatever persists the normalized document. It returns the id under
// which the document was stored.
type DownstreamProcessor interface {
	Store(ctx context.Context, platform string, data core.Dict) (docID string, err error)
	Find(ctx context.Context, docID string) (core.Dict, error)
}

// OrderStore persists SupplyOrders.
type OrderStore interface {
	Save(ctx context.Context, order *SupplyOrder) error
	Get(ctx context.Context, id string) (*SupplyOrder, error)
}

// MemoryOrderStore is an in-memory OrderStore for tests and
// single-process deployments.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*SupplyOrder
}

// NewMemoryOrderStore builds an empty MemoryOrderStore.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]*SupplyOrder)}
}

func (m *MemoryOrderStore) Save(_ context.Context, order *SupplyOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *MemoryOrderStore) Get(_ context.Context, id string) (*SupplyOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("supply order %s not found", id)
	}
	cp := *o
	return &cp, nil
}

// RedisOrderStore persists SupplyOrders as JSON blobs in Redis.
type RedisOrderStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisOrderStore builds a RedisOrderStore under namespace.
func NewRedisOrderStore(client *redis.Client, namespace string) *RedisOrderStore {
	return &RedisOrderStore{client: client, namespace: namespace}
}

func (r *RedisOrderStore) key(id string) string {
	return fmt.Sprintf("%s:order:%s", r.namespace, id)
}

func (r *RedisOrderStore) Save(ctx context.Context, order *SupplyOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal supply order: %w", err)
	}
	if err := r.client.Set(ctx, r.key(order.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save supply order: %w", err)
	}
	return nil
}

func (r *RedisOrderStore) Get(ctx context.Context, id string) (*SupplyOrder, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("supply order %s not found", id)
		}
		return nil, fmt.Errorf("get supply order: %w", err)
	}
	var o SupplyOrder
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("unmarshal supply order: %w", err)
	}
	return &o, nil
}

// RedisDownstreamProcessor is the default DownstreamProcessor: it
// stores each final document as a JSON blob under a minted id, the
// same SET/GET pattern RedisOrderStore and manifest.RedisStore use for
// every other JSON-shaped record.
type RedisDownstreamProcessor struct {
	client    *redis.Client
	namespace string
}

// NewRedisDownstreamProcessor builds a RedisDownstreamProcessor under
// namespace.
func NewRedisDownstreamProcessor(client *redis.Client, namespace string) *RedisDownstreamProcessor {
	return &RedisDownstreamProcessor{client: client, namespace: namespace}
}

func (r *RedisDownstreamProcessor) key(docID string) string {
	return fmt.Sprintf("%s:document:%s", r.namespace, docID)
}

func (r *RedisDownstreamProcessor) Store(ctx context.Context, platform string, data core.Dict) (string, error) {
	docID := core.NewID()
	doc := data.Clone()
	doc["platform"] = platform
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	if err := r.client.Set(ctx, r.key(docID), raw, 0).Err(); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	return docID, nil
}

func (r *RedisDownstreamProcessor) Find(ctx context.Context, docID string) (core.Dict, error) {
	raw, err := r.client.Get(ctx, r.key(docID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("document %s not found", docID)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	var doc core.Dict
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}
