package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"bookiebot/internal/models"
	"bookiebot/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore(6900)
	srv := httptest.NewServer(NewServer(ms, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv, ms
}

func get(t *testing.T, url, apiKey string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestMe(t *testing.T) {
	srv, ms := newTestServer(t)
	ms.GetOrCreateUser(context.Background(), "alice")
	ms.CreateAPIKey(context.Background(), "key-1", "alice", "default")

	resp := get(t, srv.URL+"/api/v1/me", "key-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body BalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserID != "alice" || body.Balance != 6900 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		key  string
	}{
		{"missing key", ""},
		{"unknown key", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv.URL+"/api/v1/me", tt.key)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestBets(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()
	ms.GetOrCreateUser(ctx, "alice")
	ms.CreateAPIKey(ctx, "key-1", "alice", "default")

	bet := &models.Bet{
		ProposerID:  "alice",
		Stake:       100,
		ResolveTime: time.Now().Add(time.Hour),
		Kind:        models.KindText,
		MessageID:   "msg-1",
		Text:        &models.TextBet{Wager: "it will rain"},
	}
	if err := ms.CreateBet(ctx, bet); err != nil {
		t.Fatalf("create bet: %v", err)
	}

	resp := get(t, srv.URL+"/api/v1/bets", "key-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body []BetResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("expected 1 bet, got %d", len(body))
	}
	if body[0].ID != bet.ID || body[0].Kind != "text" || body[0].State != "open" {
		t.Errorf("unexpected bet: %+v", body[0])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, ms := newTestServer(t)
	ms.CreateAPIKey(context.Background(), "key-1", "alice", "default")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/me", nil)
	req.Header.Set("X-API-Key", "key-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}
