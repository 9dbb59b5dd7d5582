package app

import (
	"bytes"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lyrica/internal/config"
	"lyrica/internal/lyrics"
	"lyrica/internal/player"
	"lyrica/internal/resolve"
	"lyrica/pkg/match"
	"lyrica/pkg/music"
)

var testLines = []music.LyricLine{
	{Text: "Hello, it's me", StartTimeMs: 1000},
	{Text: "I was wondering", StartTimeMs: 2000},
	{Text: "If after all these years", StartTimeMs: 3500},
}

func TestLineIndexAt(t *testing.T) {
	tests := []struct {
		t    float64
		want int
	}{
		{0, -1},
		{0.999, -1},
		{1, 0},
		{1.5, 0},
		{2, 1},
		{3.49, 1},
		{3.5, 2},
		{100, 2},
	}
	for _, tt := range tests {
		if got := lineIndexAt(testLines, tt.t); got != tt.want {
			t.Errorf("lineIndexAt(%v) = %d, want %d", tt.t, got, tt.want)
		}
	}
	if got := lineIndexAt(nil, 1); got != -1 {
		t.Errorf("lineIndexAt(nil) = %d", got)
	}
}

func TestRunScheduler(t *testing.T) {
	positions := []float64{0, 0.5, -1, 0.95, 1.2, 2.0, 3.6, 3.7, 9.0}
	var (
		mu sync.Mutex
		i  int
	)
	position := func() float64 {
		mu.Lock()
		defer mu.Unlock()
		p := positions[min(i, len(positions)-1)]
		i++
		return p
	}

	var emitted []string
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	runScheduler(ctx, testLines, position, func(s string) { emitted = append(emitted, s) }, time.Millisecond)

	want := []string{introMarker, "Hello, it's me", "I was wondering", "If after all these years", endMarker}
	if !slices.Equal(emitted, want) {
		t.Errorf("emitted = %q, want %q", emitted, want)
	}
}

func TestRunSchedulerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runScheduler(ctx, testLines, func() float64 { return 1 }, func(string) {}, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, req music.Request) (*music.Outcome, error) {
	if !req.Timestamps {
		return nil, &music.RunError{Err: music.ErrNoLyricsFound}
	}
	return &music.Outcome{
		Provider: "LRCLIB",
		Result:   &music.LyricsResult{Source: "lrclib", Artist: req.Artist, Title: req.Song, TimedLyrics: testLines, HasTimestamps: true},
		Verdict:  match.Verdict{Valid: true, MatchedBy: match.MethodArtistList, SongMatch: 1},
	}, nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	var ticks atomic.Int64
	run := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		if args[0] == "metadata" {
			return []byte("Adele\tHello\t295000000\n"), nil
		}
		// 每次读取进度前进一秒
		return []byte(strconv.FormatInt(ticks.Add(1), 10)), nil
	}

	cfg := config.Default()
	cfg.App.CheckInterval = 10 * time.Millisecond
	a := &App{
		cfg:      cfg,
		player:   player.New(run),
		resolver: resolve.New(nil),
		service:  lyrics.NewService(stubRunner{}, nil, lyrics.Options{}),
	}

	out := &lockedBuffer{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() {
		for ctx.Err() == nil {
			if strings.Contains(out.String(), endMarker) {
				cancel()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
	if err := a.Watch(ctx, out, ""); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"... Searching for lyrics for Adele - Hello ...", "Hello, it's me", "I was wondering", endMarker} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "Searching for lyrics") != 1 {
		t.Errorf("same track should be detected once:\n%s", got)
	}
}
