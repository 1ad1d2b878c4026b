package quartermaster

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Visa defines a rate-limit bucket: at most CallsAllowed invocations
// per IntervalSeconds, shared across every worker using the same
// Quartermaster.
type Visa struct {
	ID              string
	CallsAllowed    int
	IntervalSeconds int
}

func (v *Visa) interval() time.Duration {
	return time.Duration(v.IntervalSeconds) * time.Second
}

// VisaCounter tracks calls made against a Visa's bucket. Allow must be
// safe for concurrent use by multiple workers sharing one Visa: no
// worker may ever observe more than CallsAllowed successful calls
// within a single IntervalSeconds window.
type VisaCounter interface {
	// Allow increments the bucket for visaID and reports whether the
	// call is within budget. A false result means the bucket is
	// exhausted for the remainder of the current window. Call this
	// only for the Quartermaster a Resolve call actually returns: it
	// consumes quota.
	Allow(ctx context.Context, visaID string, visa Visa) (bool, error)

	// Remaining reports whether visaID's bucket currently has quota
	// left, without consuming any. Used to drop exhausted candidates
	// before a single winner is chosen and charged via Allow.
	Remaining(ctx context.Context, visaID string, visa Visa) (bool, error)
}

// MutexVisaCounter is an in-memory VisaCounter guarded by a single
// mutex, suitable for single-process deployments and tests.
type MutexVisaCounter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count      int
	windowEnds time.Time
}

// NewMutexVisaCounter builds an empty MutexVisaCounter.
func NewMutexVisaCounter() *MutexVisaCounter {
	return &MutexVisaCounter{buckets: make(map[string]*bucket)}
}

func (m *MutexVisaCounter) Allow(_ context.Context, visaID string, visa Visa) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[visaID]
	if !ok || now.After(b.windowEnds) {
		b = &bucket{count: 0, windowEnds: now.Add(visa.interval())}
		m.buckets[visaID] = b
	}
	if b.count >= visa.CallsAllowed {
		return false, nil
	}
	b.count++
	return true, nil
}

func (m *MutexVisaCounter) Remaining(_ context.Context, visaID string, visa Visa) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[visaID]
	if !ok || time.Now().After(b.windowEnds) {
		return true, nil
	}
	return b.count < visa.CallsAllowed, nil
}

// RedisVisaCounter is the production VisaCounter: it uses INCR +
// EXPIRE against a per-visa key so the bucket is correct across every
// worker process sharing the same Redis instance.
type RedisVisaCounter struct {
	client    *redis.Client
	namespace string
}

// NewRedisVisaCounter builds a RedisVisaCounter under the given
// namespace (typically Config.Redis.Namespace).
func NewRedisVisaCounter(client *redis.Client, namespace string) *RedisVisaCounter {
	return &RedisVisaCounter{client: client, namespace: namespace}
}

func (r *RedisVisaCounter) key(visaID string) string {
	return fmt.Sprintf("%s:visa:%s", r.namespace, visaID)
}

func (r *RedisVisaCounter) Allow(ctx context.Context, visaID string, visa Visa) (bool, error) {
	key := r.key(visaID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("visa counter incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, visa.interval()).Err(); err != nil {
			return false, fmt.Errorf("visa counter expire: %w", err)
		}
	}
	if count > int64(visa.CallsAllowed) {
		return false, nil
	}
	return true, nil
}

func (r *RedisVisaCounter) Remaining(ctx context.Context, visaID string, visa Visa) (bool, error) {
	key := r.key(visaID)

	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		return false, fmt.Errorf("visa counter get: %w", err)
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("visa counter parse: %w", err)
	}
	return count < int64(visa.CallsAllowed), nil
}
