// Package webhook notifies user-registered URLs when their bets
// resolve. Delivery is best-effort, once, with a short timeout.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bookiebot/internal/models"
	"bookiebot/internal/store"
)

// Payload is the JSON body POSTed to a registered webhook URL.
type Payload struct {
	Event     string    `json:"event"`
	BetID     int64     `json:"bet_id"`
	WinnerID  string    `json:"winner_id"`
	Stake     int       `json:"stake"`
	Timestamp time.Time `json:"timestamp"`
}

// Sender looks up registered webhooks and fires resolution events.
type Sender struct {
	store store.Store
	http  http.Client
	log   *zap.Logger
}

// NewSender creates a webhook sender.
func NewSender(s store.Store, log *zap.Logger) *Sender {
	return &Sender{
		store: s,
		http:  http.Client{Timeout: 5 * time.Second},
		log:   log,
	}
}

// NotifyResolved posts a bet_resolved event to both parties' webhooks,
// if registered. Safe to call from the engine's resolve hook; the
// actual delivery happens asynchronously.
func (s *Sender) NotifyResolved(bet *models.Bet, winnerID string) {
	payload := Payload{
		Event:     "bet_resolved",
		BetID:     bet.ID,
		WinnerID:  winnerID,
		Stake:     bet.Stake,
		Timestamp: time.Now(),
	}

	for _, userID := range []string{bet.ProposerID, bet.AcceptorID} {
		if userID == "" {
			continue
		}
		url, err := s.store.GetWebhook(context.Background(), userID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			s.log.Warn("webhook lookup failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		go s.post(userID, url, payload)
	}
}

func (s *Sender) post(userID, url string, p Payload) {
	body, _ := json.Marshal(p)
	resp, err := s.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		s.log.Warn("webhook delivery failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	resp.Body.Close()
}
