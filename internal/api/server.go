// Package api exposes a small read-only HTTP API authenticated with
// per-user API keys.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bookiebot/internal/models"
	"bookiebot/internal/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}

type BetResponse struct {
	ID          int64     `json:"id"`
	ProposerID  string    `json:"proposer_id"`
	AcceptorID  string    `json:"acceptor_id,omitempty"`
	Stake       int       `json:"stake"`
	ResolveTime time.Time `json:"resolve_time"`
	Kind        string    `json:"kind"`
	State       string    `json:"state"`
}

// Server serves the read-only API.
type Server struct {
	store store.Store
	log   *zap.Logger
}

// NewServer creates the API server.
func NewServer(s store.Store, log *zap.Logger) *Server {
	return &Server{store: s, log: log}
}

// authMiddleware resolves the X-API-Key header to a user ID.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Missing API Key"})
			return
		}

		userID, err := s.store.UserByAPIKey(r.Context(), key)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid API Key"})
			return
		}

		r.Header.Set("X-User-ID", userID)
		next(w, r)
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get("X-User-ID")
	user, err := s.store.GetOrCreateUser(r.Context(), userID)
	if err != nil {
		s.log.Error("balance lookup failed", zap.String("user_id", userID), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal error"})
		return
	}

	json.NewEncoder(w).Encode(BalanceResponse{UserID: userID, Balance: user.Balance})
}

func (s *Server) handleBets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get("X-User-ID")
	bets, err := s.store.UnresolvedBetsByUser(r.Context(), userID)
	if err != nil {
		s.log.Error("bet list failed", zap.String("user_id", userID), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal error"})
		return
	}

	resp := make([]BetResponse, 0, len(bets))
	for i := range bets {
		resp = append(resp, toBetResponse(&bets[i]))
	}
	json.NewEncoder(w).Encode(resp)
}

func toBetResponse(b *models.Bet) BetResponse {
	kind := "text"
	if b.Kind == models.KindStat {
		kind = "stat"
	}
	state := "open"
	switch {
	case b.AwaitingVerification():
		state = "awaiting_verification"
	case b.Accepted():
		state = "accepted"
	}
	return BetResponse{
		ID:          b.ID,
		ProposerID:  b.ProposerID,
		AcceptorID:  b.AcceptorID,
		Stake:       b.Stake,
		ResolveTime: b.ResolveTime,
		Kind:        kind,
		State:       state,
	}
}

// Handler returns the API mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/me", s.authMiddleware(s.handleMe))
	mux.HandleFunc("/api/v1/bets", s.authMiddleware(s.handleBets))
	return mux
}

// Start serves the API on port. Blocks; run in a goroutine.
func (s *Server) Start(port string) error {
	s.log.Info("starting API server", zap.String("port", port))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
