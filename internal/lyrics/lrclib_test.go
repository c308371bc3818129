package lyrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"karolbroda.com/lyricsync/internal/cache"
)

func newTestClient(url string, c *cache.DiskCache) *Client {
	client := NewClient(url, c)
	client.backoff = 0
	return client
}

func TestFetchFallsThroughStrategies(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("album_name") != "" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("unexpected user agent %q", got)
		}
		json.NewEncoder(w).Encode(LrclibResponse{
			TrackName:    r.URL.Query().Get("track_name"),
			ArtistName:   r.URL.Query().Get("artist_name"),
			SyncedLyrics: "[00:01.00]hello",
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, cache.Memory())

	resp, err := client.Fetch(context.Background(), &TrackParams{
		Title:  "Song",
		Artist: "Band",
		Album:  "Record",
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if resp.Text() != "[00:01.00]hello" {
		t.Errorf("unexpected lyrics %q", resp.Text())
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}

	// second lookup is served from the cache
	_, err = client.Fetch(context.Background(), &TrackParams{Title: "Song", Artist: "Band"})
	if err != nil {
		t.Fatalf("cached Fetch failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected cache hit, server saw %d requests", got)
	}
}

func TestFetchNoLyricsAnywhere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, nil)

	_, err := client.Fetch(context.Background(), &TrackParams{Title: "Song", Artist: "Band"})
	if err == nil {
		t.Fatal("expected an error when no strategy finds lyrics")
	}
}

func TestFetchValidatesInput(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0", nil)

	if _, err := client.Fetch(context.Background(), nil); err == nil {
		t.Error("expected error for nil track")
	}
	if _, err := client.Fetch(context.Background(), &TrackParams{Title: "x"}); err == nil {
		t.Error("expected error for missing artist")
	}
}

func TestBuildStrategiesDeduplicates(t *testing.T) {
	strategies := buildStrategies(&TrackParams{Title: "song", Artist: "band"})

	seen := make(map[searchStrategy]bool)
	for _, s := range strategies {
		if seen[s] {
			t.Errorf("duplicate strategy %+v", s)
		}
		seen[s] = true
	}

	if len(strategies) == 0 || strategies[0].artist != "band" {
		t.Errorf("unexpected first strategy %+v", strategies)
	}
}

func TestStripVersionInfo(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Song (Live)", "Song"},
		{"Song [Remastered] (2011)", "Song"},
		{"  Plain   Title ", "Plain Title"},
		{"Broken ) order (", "Broken ) order ("},
	}
	for _, tt := range tests {
		if got := stripVersionInfo(tt.in); got != tt.want {
			t.Errorf("stripVersionInfo(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
