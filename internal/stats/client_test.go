package stats

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchStatValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/stats/kills/bob-player" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": 12}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.FetchStatValue(context.Background(), "kills", "bob-player")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
}

func TestFetchStatValue_EscapesPathSegments(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"value": 1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.FetchStatValue(context.Background(), "hit rate", "a/b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/v1/stats/hit%20rate/a%2Fb" {
		t.Errorf("unexpected path %q", gotPath)
	}
}

func TestFetchStatValue_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.FetchStatValue(context.Background(), "kills", "bob-player"); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestFetchStatValue_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	if _, err := c.FetchStatValue(context.Background(), "kills", "bob-player"); err == nil {
		t.Fatal("expected an error when the oracle is unreachable")
	}
}
