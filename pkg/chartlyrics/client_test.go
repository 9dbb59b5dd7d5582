package chartlyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const found = `<?xml version="1.0" encoding="utf-8"?>
<GetLyricResult xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns="http://api.chartlyrics.com/">
  <TrackId>0</TrackId>
  <LyricSong>Bohemian Rhapsody</LyricSong>
  <LyricArtist>Queen</LyricArtist>
  <Lyric>Is this the real life?
Is this just fantasy?</Lyric>
</GetLyricResult>`

const empty = `<?xml version="1.0" encoding="utf-8"?>
<GetLyricResult xmlns="http://api.chartlyrics.com/">
  <TrackId>0</TrackId>
  <Lyric />
</GetLyricResult>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/SearchLyricDirect" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.URL.Query().Get("song") {
		case "Bohemian Rhapsody":
			w.Write([]byte(found))
		case "Broken":
			w.Write([]byte("<Lyric>unterminated"))
		default:
			w.Write([]byte(empty))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	defer c.Close()

	res, err := c.Fetch(context.Background(), "queen", "Bohemian Rhapsody", false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res == nil || res.Artist != "Queen" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Lyrics != "Is this the real life?\nIs this just fantasy?" {
		t.Errorf("unexpected lyrics %q", res.Lyrics)
	}

	res, err = c.Fetch(context.Background(), "queen", "Unknown", false)
	if err != nil || res != nil {
		t.Errorf("expected no result, got %+v, %v", res, err)
	}

	if _, err := c.Fetch(context.Background(), "queen", "Broken", false); err == nil {
		t.Errorf("expected XML parse error")
	}
}
