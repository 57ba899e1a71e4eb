package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeCounterStore struct {
	mu       sync.Mutex
	counts   map[string]int64
	ttls     map[string]time.Duration
	values   map[string]string
	incErr   error
	getErr   error
	delCalls []string
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{
		counts: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
		values: make(map[string]string),
	}
}

func (f *fakeCounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return 0, f.incErr
	}
	f.counts[key]++
	if f.counts[key] == 1 {
		f.ttls[key] = ttl
	}
	return f.counts[key], nil
}

func (f *fakeCounterStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCounterStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	value, ok := f.values[key]
	return value, ok, nil
}

func (f *fakeCounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttls[key], nil
}

func (f *fakeCounterStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, key)
	delete(f.values, key)
	delete(f.ttls, key)
	f.delCalls = append(f.delCalls, key)
	return nil
}

func TestLimiterAllowsUpToThreshold(t *testing.T) {
	store := newFakeCounterStore()
	now := time.Date(2026, 3, 2, 10, 0, 10, 0, time.UTC)
	limiter := NewLimiter(store, "rt:rate", zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	rule := Rule{Name: "write", Limit: 3, Window: time.Minute}

	for i := 1; i <= 3; i++ {
		decision := limiter.CheckAndRecord(context.Background(), "192.0.2.1", rule)
		if !decision.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if decision.Remaining != 3-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 3-i, decision.Remaining)
		}
	}

	decision := limiter.CheckAndRecord(context.Background(), "192.0.2.1", rule)
	if decision.Allowed {
		t.Fatalf("request over threshold should be rejected")
	}
	if decision.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", decision.RetryAfter)
	}
	if expected := 50 * time.Second; decision.RetryAfter != expected {
		t.Fatalf("expected retry-after %v (remaining window), got %v", expected, decision.RetryAfter)
	}
}

func TestLimiterScopesCountersPerAddress(t *testing.T) {
	store := newFakeCounterStore()
	limiter := NewLimiter(store, "rt:rate", zaptest.NewLogger(t))

	rule := Rule{Name: "write", Limit: 1, Window: time.Minute}

	if decision := limiter.CheckAndRecord(context.Background(), "192.0.2.1", rule); !decision.Allowed {
		t.Fatalf("first address should be allowed")
	}
	if decision := limiter.CheckAndRecord(context.Background(), "192.0.2.2", rule); !decision.Allowed {
		t.Fatalf("second address must not share the first address's counter")
	}
	if decision := limiter.CheckAndRecord(context.Background(), "192.0.2.1", rule); decision.Allowed {
		t.Fatalf("first address should now be over its limit")
	}
}

func TestLimiterNewWindowResetsCount(t *testing.T) {
	store := newFakeCounterStore()
	now := time.Date(2026, 3, 2, 10, 0, 59, 0, time.UTC)
	limiter := NewLimiter(store, "rt:rate", zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	rule := Rule{Name: "write", Limit: 1, Window: time.Minute}

	if decision := limiter.CheckAndRecord(context.Background(), "192.0.2.1", rule); !decision.Allowed {
		t.Fatalf("first request should be allowed")
	}
	if decision := limiter.CheckAndRecord(context.Background(), "192.0.2.1", rule); decision.Allowed {
		t.Fatalf("second request in same window should be rejected")
	}

	// Crossing the wall-clock boundary starts a fresh counter.
	now = now.Add(2 * time.Second)
	if decision := limiter.CheckAndRecord(context.Background(), "192.0.2.1", rule); !decision.Allowed {
		t.Fatalf("request in the next window should be allowed")
	}
}

func TestLimiterAllowsOnStoreError(t *testing.T) {
	store := newFakeCounterStore()
	store.incErr = errors.New("redis down")
	limiter := NewLimiter(store, "rt:rate", zaptest.NewLogger(t))

	decision := limiter.CheckAndRecord(context.Background(), "192.0.2.1", Rule{Name: "write", Limit: 1, Window: time.Minute})
	if !decision.Allowed {
		t.Fatalf("store errors must not wedge the ingress")
	}
}

func TestLimiterSetsWindowTTL(t *testing.T) {
	store := newFakeCounterStore()
	limiter := NewLimiter(store, "rt:rate", zaptest.NewLogger(t))

	limiter.CheckAndRecord(context.Background(), "192.0.2.1", Rule{Name: "write", Limit: 5, Window: time.Minute})

	for _, ttl := range store.ttls {
		if ttl != time.Minute {
			t.Fatalf("expected window counter TTL of 1m, got %v", ttl)
		}
	}
}
