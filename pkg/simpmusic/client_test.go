package simpmusic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		search     string
		lyrics     string
		timestamps bool
		wantNil    bool
		wantTimed  int
		wantArtist string
	}{
		{
			name:       "List search and object data",
			search:     `[{"videoId":"abc","title":"Hello","artistName":"Adele"}]`,
			lyrics:     `{"data":{"plainLyrics":"Hello, it's me","syncedLyrics":"[00:01.00]Hello, it's me\n[00:04.00]I was wondering"}}`,
			timestamps: true,
			wantTimed:  2,
			wantArtist: "Adele",
		},
		{
			name:       "Wrapped search and list data",
			search:     `{"data":[{"id":"abc"}]}`,
			lyrics:     `{"data":[{"lyrics":"Hello"}]}`,
			wantArtist: "Requested",
		},
		{
			name:    "Empty search",
			search:  `{"data":[]}`,
			wantNil: true,
		},
		{
			name:    "No video id",
			search:  `[{"title":"Hello"}]`,
			wantNil: true,
		},
		{
			name:    "No lyrics",
			search:  `[{"videoId":"abc"}]`,
			lyrics:  `{"data":{}}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("q") != "Hello" {
					t.Errorf("unexpected query %q", r.URL.RawQuery)
				}
				w.Write([]byte(tt.search))
			})
			mux.HandleFunc("/v1/abc", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.lyrics))
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			c := NewClient(srv.URL + "/v1")
			defer c.Close()

			res, err := c.Fetch(context.Background(), "Requested", "Hello", tt.timestamps)
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if tt.wantNil {
				if res != nil {
					t.Errorf("expected no result, got %+v", res)
				}
				return
			}
			if res == nil {
				t.Fatal("expected result")
			}
			if res.Artist != tt.wantArtist {
				t.Errorf("expected artist %q, got %q", tt.wantArtist, res.Artist)
			}
			if len(res.TimedLyrics) != tt.wantTimed {
				t.Errorf("expected %d timed lines, got %d", tt.wantTimed, len(res.TimedLyrics))
			}
			if tt.wantTimed > 0 && res.TimedLyrics[0].ID != "sim_0" {
				t.Errorf("unexpected id %s", res.TimedLyrics[0].ID)
			}
		})
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background(), "Adele", "Hello", false); err == nil {
		t.Error("expected error")
	}
}
