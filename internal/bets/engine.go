// Package bets implements the escrow and settlement engine: bet
// creation, acceptance, expiry detection, manual verification, and
// payout. All balance mutations route through the store's atomic
// operations; the engine itself holds no mutable state.
package bets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bookiebot/internal/metrics"
	"bookiebot/internal/models"
	"bookiebot/internal/store"
)

var (
	// ErrForbidden is returned when the actor lacks standing for the
	// action, e.g. accepting their own bet or verifying someone else's.
	ErrForbidden = errors.New("forbidden")

	// ErrOracleUnavailable wraps stat oracle failures. The affected bet
	// stays due and is retried on the next sweep tick.
	ErrOracleUnavailable = errors.New("stat oracle unavailable")
)

// Notifier is the chat-platform contract the engine consumes. Private
// delivery is best-effort: failures are logged by the adapter and
// never retried or surfaced here.
type Notifier interface {
	// DeliverPrivateMessage sends a DM to a user.
	DeliverPrivateMessage(userID, text string)

	// PostPublicMessage announces a new bet and returns the message
	// reference used as the acceptance token.
	PostPublicMessage(text string) (string, error)

	// RequestAcceptanceMarker attaches the affordance a prospective
	// acceptor triggers on the announcement message.
	RequestAcceptanceMarker(messageID string)
}

// StatOracle is the external source of truth for stat bet values.
type StatOracle interface {
	FetchStatValue(ctx context.Context, category, name string) (int, error)
}

// Engine drives the bet lifecycle state machine.
type Engine struct {
	store    store.Store
	notifier Notifier
	oracle   StatOracle
	policy   StatPolicy
	log      *zap.Logger

	// ResolveHook, if set, is called after a bet resolves and its
	// payout has committed. Used for webhook fan-out.
	ResolveHook func(bet *models.Bet, winnerID string)
}

// New creates a settlement engine.
func New(s store.Store, n Notifier, o StatOracle, policy StatPolicy, log *zap.Logger) *Engine {
	return &Engine{store: s, notifier: n, oracle: o, policy: policy, log: log}
}

// CreateText opens a free-text wager. The proposer's stake is debited
// atomically with the bet insert; on any failure nothing is persisted.
func (e *Engine) CreateText(ctx context.Context, proposerID, wager string, stake int, deadline time.Time) (*models.Bet, error) {
	return e.create(ctx, proposerID, stake, deadline, &models.Bet{
		Kind: models.KindText,
		Text: &models.TextBet{Wager: wager},
	}, fmt.Sprintf("New Bet: %s", wager))
}

// CreateStat opens a stat wager against an external stat oracle value.
func (e *Engine) CreateStat(ctx context.Context, proposerID, category, name string, threshold, stake int, deadline time.Time) (*models.Bet, error) {
	return e.create(ctx, proposerID, stake, deadline, &models.Bet{
		Kind: models.KindStat,
		Stat: &models.StatBet{Category: category, Name: name, Threshold: threshold},
	}, fmt.Sprintf("New Stat Bet: %s/%s reaches %d", category, name, threshold))
}

func (e *Engine) create(ctx context.Context, proposerID string, stake int, deadline time.Time, bet *models.Bet, announcement string) (*models.Bet, error) {
	if stake <= 0 {
		return nil, fmt.Errorf("stake must be positive")
	}
	u, err := e.store.GetOrCreateUser(ctx, proposerID)
	if err != nil {
		return nil, err
	}
	// Funds are checked before the announcement so an uncoverable bet
	// is never made public. The conditional debit in CreateBet remains
	// the race-safe check.
	if u.Balance < stake {
		return nil, store.ErrInsufficientFunds
	}

	// Announce first: the message reference is the acceptance token
	// and must exist before the bet row does.
	messageID, err := e.notifier.PostPublicMessage(announcement)
	if err != nil {
		return nil, fmt.Errorf("post announcement: %w", err)
	}

	bet.ProposerID = proposerID
	bet.Stake = stake
	bet.ResolveTime = deadline
	bet.MessageID = messageID

	if err := e.store.CreateBet(ctx, bet); err != nil {
		return nil, err
	}
	e.notifier.RequestAcceptanceMarker(messageID)

	metrics.BetsCreated.WithLabelValues(kindLabel(bet.Kind)).Inc()
	e.log.Info("bet created",
		zap.Int64("bet_id", bet.ID),
		zap.String("proposer", proposerID),
		zap.Int("stake", stake),
		zap.Time("resolve_time", deadline))
	return bet, nil
}

// Accept commits acceptorID as the second party. Only legal while the
// bet is open; a late accept after the expiry sweep fails with
// store.ErrInvalidState.
func (e *Engine) Accept(ctx context.Context, betID int64, acceptorID string) (*models.Bet, error) {
	bet, err := e.store.GetBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	return e.accept(ctx, bet, acceptorID)
}

// AcceptByMessage resolves the acceptance token back to its bet. The
// platform layer calls this when the acceptance marker is triggered.
func (e *Engine) AcceptByMessage(ctx context.Context, messageID, acceptorID string) (*models.Bet, error) {
	bet, err := e.store.GetBetByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return e.accept(ctx, bet, acceptorID)
}

func (e *Engine) accept(ctx context.Context, bet *models.Bet, acceptorID string) (*models.Bet, error) {
	if acceptorID == bet.ProposerID {
		return nil, fmt.Errorf("cannot accept own bet: %w", ErrForbidden)
	}
	if _, err := e.store.GetOrCreateUser(ctx, acceptorID); err != nil {
		return nil, err
	}
	if err := e.store.AcceptBet(ctx, bet.ID, acceptorID); err != nil {
		return nil, err
	}
	bet.AcceptorID = acceptorID

	metrics.BetsAccepted.Inc()
	e.log.Info("bet accepted",
		zap.Int64("bet_id", bet.ID),
		zap.String("acceptor", acceptorID))
	return bet, nil
}

// Report records one party's attestation on a text bet awaiting
// verification. Re-reporting overwrites only the reporter's own prior
// answer. When both parties have reported and agree, the bet pays out:
// both true means the proposer wins, both false the acceptor.
func (e *Engine) Report(ctx context.Context, betID int64, reporterID string, outcome bool) (*models.Bet, error) {
	bet, err := e.store.GetBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet.Kind != models.KindText || !bet.AwaitingVerification() || !bet.Accepted() {
		return nil, store.ErrInvalidState
	}
	party := bet.IsParty(reporterID)
	if party == 0 {
		return nil, ErrForbidden
	}

	if err := e.store.RecordOutcome(ctx, betID, party, outcome); err != nil {
		if errors.Is(err, store.ErrInvalidState) {
			// The other party's report settled the bet between our
			// state check and the write.
			return e.store.GetBet(ctx, betID)
		}
		return nil, err
	}

	// Re-read so a concurrent report by the other party is seen.
	bet, err = e.store.GetBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	p, a := bet.Text.ProposerOutcome, bet.Text.AcceptorOutcome
	if p == nil || a == nil || *p != *a {
		// Waiting for the other party, or an open dispute. Disputes
		// stay in verification indefinitely; there is no escalation.
		return bet, nil
	}

	winnerID := bet.ProposerID
	if !*p {
		winnerID = bet.AcceptorID
	}
	if err := e.payOut(ctx, bet, winnerID); err != nil {
		if errors.Is(err, store.ErrInvalidState) {
			// The other party's concurrent report already settled it.
			return e.store.GetBet(ctx, betID)
		}
		return nil, err
	}
	bet.Resolved = true
	return bet, nil
}

// payOut resolves an accepted bet, crediting the winner 2x stake, and
// notifies both parties. The notification happens strictly after the
// ledger mutation commits.
func (e *Engine) payOut(ctx context.Context, bet *models.Bet, winnerID string) error {
	if err := e.store.ResolveBet(ctx, bet.ID, winnerID, 2*bet.Stake); err != nil {
		return err
	}
	loserID := bet.ProposerID
	if winnerID == bet.ProposerID {
		loserID = bet.AcceptorID
	}
	e.notifier.DeliverPrivateMessage(winnerID, "You won!")
	e.notifier.DeliverPrivateMessage(loserID, "You lost :(")

	metrics.BetsResolved.WithLabelValues("paid").Inc()
	e.log.Info("bet resolved",
		zap.Int64("bet_id", bet.ID),
		zap.String("winner", winnerID),
		zap.Int("payout", 2*bet.Stake))
	if e.ResolveHook != nil {
		e.ResolveHook(bet, winnerID)
	}
	return nil
}

// refund resolves an unaccepted bet by returning the proposer's stake.
func (e *Engine) refund(ctx context.Context, bet *models.Bet) error {
	if err := e.store.ResolveBet(ctx, bet.ID, bet.ProposerID, bet.Stake); err != nil {
		return err
	}
	e.notifier.DeliverPrivateMessage(bet.ProposerID, "Nobody accepted your bet, better luck next time.")

	metrics.BetsResolved.WithLabelValues("refunded").Inc()
	e.log.Info("bet refunded", zap.Int64("bet_id", bet.ID))
	if e.ResolveHook != nil {
		e.ResolveHook(bet, bet.ProposerID)
	}
	return nil
}

// Sweep processes every due bet once: unaccepted bets are refunded,
// due stat bets are settled against the oracle, and due text bets
// enter manual verification. An error on one bet never aborts the
// rest; oracle failures are retried on the next tick.
func (e *Engine) Sweep(ctx context.Context, now time.Time) {
	due, err := e.store.DueBets(ctx, now)
	if err != nil {
		metrics.SweepErrors.Inc()
		e.log.Error("due bet query failed", zap.Error(err))
		return
	}

	for i := range due {
		bet := &due[i]
		if err := e.sweepOne(ctx, bet); err != nil {
			metrics.SweepErrors.Inc()
			e.log.Error("sweep failed for bet",
				zap.Int64("bet_id", bet.ID), zap.Error(err))
		}
	}
}

func (e *Engine) sweepOne(ctx context.Context, bet *models.Bet) error {
	if !bet.Accepted() {
		err := e.refund(ctx, bet)
		if errors.Is(err, store.ErrInvalidState) {
			return nil // already settled by a concurrent path
		}
		return err
	}

	switch bet.Kind {
	case models.KindStat:
		return e.settleStat(ctx, bet)
	case models.KindText:
		return e.requestVerification(ctx, bet)
	}
	return fmt.Errorf("unknown bet kind %d", bet.Kind)
}

func (e *Engine) settleStat(ctx context.Context, bet *models.Bet) error {
	value, err := e.oracle.FetchStatValue(ctx, bet.Stat.Category, bet.Stat.Name)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", ErrOracleUnavailable, bet.Stat.Category, bet.Stat.Name, err)
	}

	winnerID := bet.AcceptorID
	if e.policy.ProposerWins(value, bet.Stat.Threshold) {
		winnerID = bet.ProposerID
	}
	err = e.payOut(ctx, bet, winnerID)
	if errors.Is(err, store.ErrInvalidState) {
		return nil
	}
	return err
}

func (e *Engine) requestVerification(ctx context.Context, bet *models.Bet) error {
	err := e.store.MarkChecked(ctx, bet.ID)
	if errors.Is(err, store.ErrInvalidState) {
		return nil
	}
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("Did the following statement come to pass?\n %s\n"+
		"If it did, please reply \"!b verify %d true\" otherwise reply \"!b verify %d false\".",
		bet.Text.Wager, bet.ID, bet.ID)
	e.notifier.DeliverPrivateMessage(bet.ProposerID, prompt)
	e.notifier.DeliverPrivateMessage(bet.AcceptorID, prompt)
	return nil
}

func kindLabel(k models.BetKind) string {
	if k == models.KindStat {
		return "stat"
	}
	return "text"
}
