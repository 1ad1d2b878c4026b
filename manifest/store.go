package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Store persists Stamps and Manifests. Writes are independent rows
// and require no cross-order locking: a Store implementation need
// only guarantee that a single SupplyOrder's Manifests are retrievable
// in link-position order.
type Store interface {
	SaveStamp(ctx context.Context, stamp *Stamp) error
	SaveManifest(ctx context.Context, m *Manifest) error
	ListManifests(ctx context.Context, supplyOrderRef string) ([]*Manifest, error)
}

// MemoryStore is an in-memory Store for tests and single-process
// deployments that don't need durability across restarts.
type MemoryStore struct {
	mu        sync.RWMutex
	stamps    map[string]*Stamp
	manifests map[string][]*Manifest // supplyOrderRef -> manifests
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stamps:    make(map[string]*Stamp),
		manifests: make(map[string][]*Manifest),
	}
}

func (m *MemoryStore) SaveStamp(_ context.Context, stamp *Stamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *stamp
	m.stamps[stamp.ID] = &cp
	return nil
}

func (m *MemoryStore) SaveManifest(_ context.Context, man *Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *man
	m.manifests[man.SupplyOrderRef] = append(m.manifests[man.SupplyOrderRef], &cp)
	return nil
}

func (m *MemoryStore) ListManifests(_ context.Context, supplyOrderRef string) ([]*Manifest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Manifest, len(m.manifests[supplyOrderRef]))
	copy(out, m.manifests[supplyOrderRef])
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// RedisStore persists Stamps and Manifests as JSON blobs in Redis: a
// list per SupplyOrder for its manifests (append via RPUSH so
// order is preserved for free) and a plain key per Stamp, mirroring
// the append-only list pattern used for task queues elsewhere in the
// pipeline.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore builds a RedisStore under namespace (typically
// Config.Redis.Namespace).
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (r *RedisStore) stampKey(id string) string {
	return fmt.Sprintf("%s:stamp:%s", r.namespace, id)
}

func (r *RedisStore) manifestListKey(supplyOrderRef string) string {
	return fmt.Sprintf("%s:order:%s:manifests", r.namespace, supplyOrderRef)
}

func (r *RedisStore) SaveStamp(ctx context.Context, stamp *Stamp) error {
	data, err := json.Marshal(stamp)
	if err != nil {
		return fmt.Errorf("marshal stamp: %w", err)
	}
	if err := r.client.Set(ctx, r.stampKey(stamp.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save stamp: %w", err)
	}
	return nil
}

func (r *RedisStore) SaveManifest(ctx context.Context, man *Manifest) error {
	data, err := json.Marshal(man)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := r.client.RPush(ctx, r.manifestListKey(man.SupplyOrderRef), data).Err(); err != nil {
		return fmt.Errorf("append manifest: %w", err)
	}
	return nil
}

func (r *RedisStore) ListManifests(ctx context.Context, supplyOrderRef string) ([]*Manifest, error) {
	raw, err := r.client.LRange(ctx, r.manifestListKey(supplyOrderRef), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list manifests: %w", err)
	}
	out := make([]*Manifest, 0, len(raw))
	for _, item := range raw {
		var m Manifest
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("unmarshal manifest: %w", err)
		}
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}
