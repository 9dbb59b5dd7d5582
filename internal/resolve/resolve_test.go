package resolve

import (
	"context"
	"errors"
	"testing"
)

type fakeAI struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeAI) Name() string { return "fake" }

func (f *fakeAI) HandleText(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return f.replies[len(f.replies)-1], nil
}

func (f *fakeAI) Close() error { return nil }

func newTestResolver(c *fakeAI) *Resolver {
	r := New(c)
	r.backoff = 0
	return r
}

func TestResolveWithAI(t *testing.T) {
	c := &fakeAI{replies: []string{"```json\n{\"is_song\": true, \"title\": \"Hello\", \"artist\": \"Adele\"}\n```"}}
	info, err := newTestResolver(c).Resolve(context.Background(), "Adele - Hello (Official Music Video)")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if info.Artist != "Adele" || info.Title != "Hello" {
		t.Errorf("Resolve() = %+v", info)
	}
}

func TestResolveRetries(t *testing.T) {
	c := &fakeAI{
		errs:    []error{errors.New("503"), errors.New("503")},
		replies: []string{"", "", `{"is_song": true, "title": "Hello", "artist": "Adele"}`},
	}
	info, err := newTestResolver(c).Resolve(context.Background(), "Adele Hello")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if c.calls != 3 || info.Title != "Hello" {
		t.Errorf("calls = %d, info = %+v", c.calls, info)
	}
}

func TestResolveNotSong(t *testing.T) {
	c := &fakeAI{replies: []string{`{"is_song": false}`}}
	_, err := newTestResolver(c).Resolve(context.Background(), "Cooking with Bob, episode 4")
	if !errors.Is(err, ErrNotSong) {
		t.Fatalf("expected ErrNotSong, got %v", err)
	}
}

func TestResolveFallsBackToSplit(t *testing.T) {
	c := &fakeAI{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	info, err := newTestResolver(c).Resolve(context.Background(), "Adele - Hello")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if info.Artist != "Adele" || info.Title != "Hello" {
		t.Errorf("Resolve() = %+v", info)
	}

	garbage := &fakeAI{replies: []string{"not json"}}
	info, err = newTestResolver(garbage).Resolve(context.Background(), "Adele - Hello")
	if err != nil || info.Title != "Hello" {
		t.Errorf("unparseable reply should fall back, got %+v, %v", info, err)
	}
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		artist  string
		title   string
		wantErr bool
	}{
		{"Adele - Hello", "Adele", "Hello", false},
		{"Daft Punk - Get Lucky - Radio Edit", "Daft Punk", "Get Lucky - Radio Edit", false},
		{"Hello", "", "", true},
		{" - Hello", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			info, err := SplitIdentifier(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitIdentifier(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && (info.Artist != tt.artist || info.Title != tt.title) {
				t.Errorf("SplitIdentifier(%q) = %+v", tt.in, info)
			}
		})
	}
	if _, err := New(nil).Resolve(context.Background(), "  "); !errors.Is(err, ErrNotSong) {
		t.Errorf("blank identifier should be ErrNotSong, got %v", err)
	}
}
