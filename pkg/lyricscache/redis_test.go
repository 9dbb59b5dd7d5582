package lyricscache

import (
	"context"
	"path"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeKV 内存版 redis，实现 KV 接口
type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (f *fakeKV) GetBytes(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *fakeKV) SetWithExpiration(_ context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.([]byte)
	f.ttl[key] = exp
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeKV) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeKV) Addr() string {
	return "localhost:6379"
}

func TestRedisStore(t *testing.T) {
	kv := newFakeKV()
	kv.data["other:key"] = []byte("untouched")

	clk := &clock{now: time.Unix(1700000000, 0)}
	c := New(NewRedisStore(kv), time.Minute, WithClock(clk.Now))
	ctx := context.Background()

	c.Store(ctx, "abc", payload{Lyrics: "x"})
	if kv.ttl[KeyPrefix+"abc"] != time.Minute {
		t.Errorf("native expiry not set: %v", kv.ttl)
	}

	var got payload
	if !c.LoadInto(ctx, "abc", &got) || got.Lyrics != "x" {
		t.Fatalf("expected hit, got %+v", got)
	}

	stats, _ := c.Stats(ctx)
	if stats.Files != 1 || stats.Backend != "redis" || stats.Dir != "redis://localhost:6379" {
		t.Errorf("unexpected stats %+v", stats)
	}

	clk.Advance(2 * time.Minute)
	if _, ok := c.Load(ctx, "abc"); ok {
		t.Error("expected miss after ttl")
	}
	if _, ok := kv.data[KeyPrefix+"abc"]; ok {
		t.Error("expired entry must be deleted")
	}

	c.Store(ctx, "def", payload{Lyrics: "y"})
	report, _ := c.Clear(ctx)
	if len(report.Removed) != 1 || report.Removed[0] != KeyPrefix+"def" {
		t.Errorf("unexpected report %+v", report)
	}
	if string(kv.data["other:key"]) != "untouched" {
		t.Error("clear must only touch cache keys")
	}
}
