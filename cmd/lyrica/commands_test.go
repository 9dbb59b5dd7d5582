package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"lyrica/internal/lyrics"
	"lyrica/pkg/music"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCmdWithOptions(t, args...)
	return out, err
}

func runCmdWithOptions(t *testing.T, args ...string) (string, *rootOptions, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CACHE_DIR", t.TempDir())
	t.Setenv("CACHE_BACKEND", "file")
	t.Setenv("GENIUS_TOKEN", "")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("METRICS_ADDR", "")

	var out, errOut bytes.Buffer
	opts := &rootOptions{}
	cmd := newRootCmd(opts)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := execute(cmd, opts)
	return out.String(), opts, err
}

func TestProvidersCmd(t *testing.T) {
	out, err := runCmd(t, "providers")
	if err != nil {
		t.Fatalf("providers error = %v", err)
	}
	for _, want := range []string{"1  Genius", "not configured", "2  LRCLIB", "synced default: 2,3,4", "fast:           2,3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGetCmdRejectsPassWithoutSequence(t *testing.T) {
	out, err := runCmd(t, "get", "Adele", "Hello", "--pass", "--json")
	if !errors.Is(err, errResponse) {
		t.Fatalf("expected errResponse, got %v", err)
	}
	var resp lyrics.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Status != lyrics.StatusError || resp.Error.Message != "Sequence parameter is required when pass=true" {
		t.Errorf("response = %+v", resp.Error)
	}
}

func TestAppClosedAfterFailedCommand(t *testing.T) {
	_, opts, err := runCmdWithOptions(t, "get", "Adele", "Hello", "--pass")
	if !errors.Is(err, errResponse) {
		t.Fatalf("expected errResponse, got %v", err)
	}
	if opts.app != nil {
		t.Error("app should be closed after a failed command")
	}
}

func TestGetCmdArgs(t *testing.T) {
	if _, err := runCmd(t, "get", "Adele"); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestCacheStatsCmd(t *testing.T) {
	out, err := runCmd(t, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats error = %v", err)
	}
	var stats map[string]any
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if stats["cache_files"] != float64(0) || stats["backend"] != "file" {
		t.Errorf("stats = %v", stats)
	}
}

func TestPrintResponse(t *testing.T) {
	resp := &lyrics.Response{
		Status: lyrics.StatusSuccess,
		Data: &music.LyricsResult{
			Source: "lrclib",
			TimedLyrics: []music.LyricLine{
				{Text: "Hello, it's me", StartTimeMs: 1500},
				{Text: "I was wondering", StartTimeMs: 61250},
			},
		},
		Cached: true,
	}
	var buf bytes.Buffer
	if err := printResponse(&buf, resp, false); err != nil {
		t.Fatalf("printResponse() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[00:01.50] Hello, it's me", "[01:01.25] I was wondering", "source: lrclib (cached)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	failed := &lyrics.Response{
		Status:   lyrics.StatusError,
		Error:    &lyrics.ErrorBody{Message: "No lyrics found for 'Hello' by 'Adele'"},
		Attempts: []music.FetchAttempt{{Provider: "LRCLIB", Reason: music.ReasonTimeout}},
	}
	buf.Reset()
	if err := printResponse(&buf, failed, false); !errors.Is(err, errResponse) {
		t.Fatalf("expected errResponse, got %v", err)
	}
	if !strings.Contains(buf.String(), "LRCLIB") || !strings.Contains(buf.String(), "timeout") {
		t.Errorf("attempts not printed:\n%s", buf.String())
	}
}
