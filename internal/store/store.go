// Package store defines the persistence interface for the wagering
// ledger. Implementations include SQL (SQLite or PostgreSQL, the
// source of truth) and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"bookiebot/internal/models"
)

var (
	// ErrInsufficientFunds is returned when a debit would take a
	// balance below zero. The failing operation has no side effect.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound is returned when a referenced user or bet does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a transition is attempted from
	// a state that forbids it, e.g. accepting an already-accepted bet
	// or resolving a resolved one.
	ErrInvalidState = errors.New("invalid bet state")
)

// Store is the persistence interface. Every method is a single atomic
// unit of work: a failing call leaves no partial mutation behind, and
// the bet transition methods hold a single-writer guarantee per bet
// row via conditional updates.
type Store interface {
	// --- Ledger ---

	// GetOrCreateUser returns the user record, creating it with the
	// starting balance on first interaction. Idempotent.
	GetOrCreateUser(ctx context.Context, id string) (*models.User, error)

	// CreditUser adds amount to the user's balance.
	CreditUser(ctx context.Context, id string, amount int) error

	// TransferCoins moves amount between two users, failing with
	// ErrInsufficientFunds if the sender cannot cover it.
	TransferCoins(ctx context.Context, fromID, toID string, amount int) error

	// ClaimGrant credits amount and stamps the free-grant timestamp if
	// at least cooldown has passed since the last grant. Returns false
	// without side effect when the user is still on cooldown.
	ClaimGrant(ctx context.Context, id string, amount int, now time.Time, cooldown time.Duration) (bool, error)

	// --- Bets ---

	// CreateBet debits the proposer's stake and inserts the bet plus
	// its kind extension in one transaction, filling in bet.ID.
	CreateBet(ctx context.Context, bet *models.Bet) error

	// AcceptBet sets the acceptor and debits their stake in one
	// transaction. Fails with ErrInvalidState unless the bet is still
	// open (no acceptor, not checked, not resolved).
	AcceptBet(ctx context.Context, betID int64, acceptorID string) error

	// ResolveBet marks the bet resolved and credits amount to winnerID
	// in one transaction. Fails with ErrInvalidState if the bet is
	// already resolved, so a duplicate sweep can never double-pay.
	ResolveBet(ctx context.Context, betID int64, winnerID string, amount int) error

	// MarkChecked flips the bet into the manual-verification phase.
	// Fails with ErrInvalidState if already checked or resolved.
	MarkChecked(ctx context.Context, betID int64) error

	// RecordOutcome stores one party's attestation on a text bet,
	// overwriting that party's previous report if any.
	RecordOutcome(ctx context.Context, betID int64, party models.Party, outcome bool) error

	GetBet(ctx context.Context, id int64) (*models.Bet, error)
	GetBetByMessage(ctx context.Context, messageID string) (*models.Bet, error)

	// DueBets returns bets whose deadline has passed and which have
	// not yet been checked or resolved.
	DueBets(ctx context.Context, now time.Time) ([]models.Bet, error)

	// UnresolvedBetsByUser returns a user's open and pending bets.
	UnresolvedBetsByUser(ctx context.Context, userID string) ([]models.Bet, error)

	// --- API keys & webhooks ---

	CreateAPIKey(ctx context.Context, key, userID, name string) error
	UserByAPIKey(ctx context.Context, key string) (string, error)
	SetWebhook(ctx context.Context, userID, url string) error
	GetWebhook(ctx context.Context, userID string) (string, error)
}
