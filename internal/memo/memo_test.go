package memo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/annapurna-labs/annapurna/internal/memo"
)

// mapCache is a deterministic in-memory cache.Cache for tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]mapEntry
}

type mapEntry struct {
	data      []byte
	expiresAt time.Time
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]mapEntry)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = mapEntry{data: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	m := memo.New(newMapCache())
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "answer", nil
	}

	v, hit, err := memo.GetOrCompute(ctx, m, memo.KindResponse, "moong dal", time.Minute, compute)
	if err != nil || hit || v != "answer" {
		t.Fatalf("first call: v=%q hit=%v err=%v", v, hit, err)
	}

	v, hit, err = memo.GetOrCompute(ctx, m, memo.KindResponse, "moong dal", time.Minute, compute)
	if err != nil || !hit || v != "answer" {
		t.Fatalf("second call: v=%q hit=%v err=%v", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("expected compute called once, got %d", calls)
	}
}

func TestGetOrComputeRecomputesAfterExpiry(t *testing.T) {
	m := memo.New(newMapCache())
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	if _, _, err := memo.GetOrCompute(ctx, m, memo.KindSearch, "q", 10*time.Millisecond, compute); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	v, hit, err := memo.GetOrCompute(ctx, m, memo.KindSearch, "q", 10*time.Millisecond, compute)
	if err != nil || hit {
		t.Fatalf("expected recompute after expiry: hit=%v err=%v", hit, err)
	}
	if v != 2 || calls != 2 {
		t.Errorf("expected second compute, got v=%d calls=%d", v, calls)
	}
}

func TestGetOrComputeKindsDoNotShadow(t *testing.T) {
	m := memo.New(newMapCache())
	ctx := context.Background()

	if _, _, err := memo.GetOrCompute(ctx, m, memo.KindMatch, "dal", time.Minute, func(context.Context) (string, error) {
		return "local", nil
	}); err != nil {
		t.Fatal(err)
	}

	searchCalls := 0
	v, hit, err := memo.GetOrCompute(ctx, m, memo.KindSearch, "dal", time.Minute, func(context.Context) (string, error) {
		searchCalls++
		return "web", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if hit || searchCalls != 1 || v != "web" {
		t.Errorf("search kind must compute independently: hit=%v calls=%d v=%q", hit, searchCalls, v)
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	m := memo.New(newMapCache())
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	}

	if _, _, err := memo.GetOrCompute(ctx, m, memo.KindResponse, "q", time.Minute, compute); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, hit, err := memo.GetOrCompute(ctx, m, memo.KindResponse, "q", time.Minute, compute)
	if err != nil || hit || v != "ok" {
		t.Errorf("error must not be cached: v=%q hit=%v err=%v", v, hit, err)
	}
}

func TestKeyNormalizesQueryText(t *testing.T) {
	if memo.Key(memo.KindResponse, "  Moong Dal ") != memo.Key(memo.KindResponse, "moong dal") {
		t.Error("expected case/space-insensitive keys")
	}
	if memo.Key(memo.KindResponse, "dal") == memo.Key(memo.KindSearch, "dal") {
		t.Error("expected distinct keys per kind")
	}
}
