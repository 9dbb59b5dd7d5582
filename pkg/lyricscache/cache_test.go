package lyricscache

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

type payload struct {
	Status string `json:"status"`
	Lyrics string `json:"lyrics"`
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingObserver struct {
	mu     sync.Mutex
	events map[string]int
}

func (o *countingObserver) ObserveCache(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.events == nil {
		o.events = map[string]int{}
	}
	o.events[event]++
}

func newFileCache(t *testing.T) (*Cache, afero.Fs, *clock, *countingObserver) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "/cache")
	if err != nil {
		t.Fatal(err)
	}
	clk := &clock{now: time.Unix(1700000000, 0)}
	obs := &countingObserver{}
	return New(store, 300*time.Second, WithClock(clk.Now), WithObserver(obs)), fs, clk, obs
}

func TestKey(t *testing.T) {
	base := KeyParams{Artist: "Adele", Song: "Hello", Timestamps: true, Sequence: "2,3"}
	k := Key(base)
	if len(k) != 64 {
		t.Fatalf("expected hex sha256, got %q", k)
	}
	if Key(KeyParams{Artist: "  ADELE ", Song: "hello ", Timestamps: true, Sequence: "2,3"}) != k {
		t.Errorf("artist/song must be trimmed and lowercased")
	}

	variants := []KeyParams{
		{Artist: "Adele", Song: "Hello", Timestamps: false, Sequence: "2,3"},
		{Artist: "Adele", Song: "Hello", Timestamps: true, Sequence: "3,2"},
		{Artist: "Adele", Song: "Hello", Timestamps: true, Sequence: "2,3", Fast: true},
		{Artist: "Adele", Song: "Hello", Timestamps: true, Sequence: "2,3", Mood: true},
		{Artist: "Adele", Song: "Hello", Timestamps: true, Sequence: "2,3", Metadata: true},
	}
	for _, v := range variants {
		if Key(v) == k {
			t.Errorf("%+v should produce a different key", v)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	c, fs, clk, obs := newFileCache(t)
	ctx := context.Background()
	key := Key(KeyParams{Artist: "Adele", Song: "Hello"})

	if _, ok := c.Load(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Store(ctx, key, payload{Status: "success", Lyrics: "Hello, it's me"})

	var got payload
	if !c.LoadInto(ctx, key, &got) {
		t.Fatal("expected hit after store")
	}
	if got.Lyrics != "Hello, it's me" {
		t.Errorf("unexpected payload %+v", got)
	}

	path := filepath.Join("/cache", key+".json")
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("cache file missing: %v", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Expiry != 1700000300 {
		t.Errorf("expected expiry now+ttl, got %v", entry.Expiry)
	}

	clk.Advance(301 * time.Second)
	if _, ok := c.Load(ctx, key); ok {
		t.Fatal("expected miss after ttl")
	}
	if exists, _ := afero.Exists(fs, path); exists {
		t.Error("expired entry must be removed")
	}

	if obs.events[EventHit] != 1 || obs.events[EventStore] != 1 || obs.events[EventExpired] != 1 || obs.events[EventMiss] != 1 {
		t.Errorf("unexpected events %v", obs.events)
	}
}

func TestCorruptEntry(t *testing.T) {
	c, fs, _, obs := newFileCache(t)
	ctx := context.Background()

	for name, content := range map[string]string{
		"garbage":     "{not json",
		"null-result": `{"expiry": 99999999999, "result": null}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join("/cache", name+".json")
			afero.WriteFile(fs, path, []byte(content), 0o644)

			if _, ok := c.Load(ctx, name); ok {
				t.Fatal("corrupt entry must be a miss")
			}
			if exists, _ := afero.Exists(fs, path); exists {
				t.Error("corrupt entry must be removed")
			}
		})
	}
	if obs.events[EventCorrupt] != 2 {
		t.Errorf("expected 2 corrupt events, got %v", obs.events)
	}
}

func TestClearAndStats(t *testing.T) {
	c, fs, _, _ := newFileCache(t)
	ctx := context.Background()

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Files != 0 || stats.Dir != "/cache" || stats.TTLSeconds != 300 || stats.Version != Version || stats.Backend != "file" {
		t.Errorf("unexpected empty stats %+v", stats)
	}

	c.Store(ctx, "a", payload{Lyrics: "a"})
	c.Store(ctx, "b", payload{Lyrics: "b"})
	afero.WriteFile(fs, "/cache/stray.txt", []byte("x"), 0o644)

	stats, _ = c.Stats(ctx)
	if stats.Files != 3 {
		t.Errorf("expected 3 files, got %+v", stats)
	}

	report, err := c.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(report.Removed, ",") != "a.json,b.json,stray.txt" || len(report.Failed) != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if stats, _ := c.Stats(ctx); stats.Files != 0 {
		t.Errorf("cache should be empty after clear")
	}
}

type failingStore struct {
	*FileStore
}

func (failingStore) Write(context.Context, string, []byte, time.Duration) error {
	return errors.New("disk full")
}

func TestStoreErrorsAreSwallowed(t *testing.T) {
	fs, _ := NewFileStore(afero.NewMemMapFs(), "/cache")
	obs := &countingObserver{}
	c := New(failingStore{fs}, 0, WithObserver(obs))

	c.Store(context.Background(), "k", payload{Lyrics: "x"})
	if obs.events[EventError] != 1 {
		t.Errorf("expected error event, got %v", obs.events)
	}
	if c.TTL() != DefaultTTL {
		t.Errorf("expected default ttl, got %s", c.TTL())
	}
}
