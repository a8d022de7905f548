package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookiebot/internal/database"
	"bookiebot/internal/models"
	"bookiebot/internal/store"
)

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	db, err := database.Initialize("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSQLStore(db, 6900)
}

func mustUser(t *testing.T, s *store.SQLStore, id string) *models.User {
	t.Helper()
	u, err := s.GetOrCreateUser(context.Background(), id)
	if err != nil {
		t.Fatalf("get or create %s: %v", id, err)
	}
	return u
}

func balance(t *testing.T, s *store.SQLStore, id string) int {
	t.Helper()
	return mustUser(t, s, id).Balance
}

func textBet(proposer string, stake int, due time.Time) *models.Bet {
	return &models.Bet{
		ProposerID:  proposer,
		Stake:       stake,
		ResolveTime: due,
		Kind:        models.KindText,
		MessageID:   "msg-" + proposer,
		Text:        &models.TextBet{Wager: "something happens"},
	}
}

func TestGetOrCreateUser_SeedsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "alice")
	if u.Balance != 6900 {
		t.Fatalf("expected seeded balance 6900, got %d", u.Balance)
	}

	if err := s.CreditUser(ctx, "alice", 100); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// A second lookup must not reseed the row.
	if got := balance(t, s, "alice"); got != 7000 {
		t.Errorf("expected 7000 after credit, got %d", got)
	}
}

func TestCreditUser_Unknown(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreditUser(context.Background(), "ghost", 10); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferCoins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")
	mustUser(t, s, "bob")

	if err := s.TransferCoins(ctx, "alice", "bob", 500); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := balance(t, s, "alice"); got != 6400 {
		t.Errorf("sender: expected 6400, got %d", got)
	}
	if got := balance(t, s, "bob"); got != 7400 {
		t.Errorf("receiver: expected 7400, got %d", got)
	}

	err := s.TransferCoins(ctx, "alice", "bob", 10000)
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balance(t, s, "alice"); got != 6400 {
		t.Errorf("failed transfer must roll back, sender has %d", got)
	}
}

func TestClaimGrant_Cooldown(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cooldown := time.Hour

	ok, err := s.ClaimGrant(ctx, "alice", 100, now, cooldown)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if got := balance(t, s, "alice"); got != 7000 {
		t.Errorf("expected 7000 after grant, got %d", got)
	}

	ok, err = s.ClaimGrant(ctx, "alice", 100, now.Add(30*time.Minute), cooldown)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Error("claim inside the cooldown must be refused")
	}

	ok, err = s.ClaimGrant(ctx, "alice", 100, now.Add(2*time.Hour), cooldown)
	if err != nil || !ok {
		t.Fatalf("claim after cooldown: ok=%v err=%v", ok, err)
	}
	if got := balance(t, s, "alice"); got != 7100 {
		t.Errorf("expected 7100, got %d", got)
	}
}

func TestCreateBet_DebitsAndPersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")

	bet := textBet("alice", 100, time.Now().Add(time.Hour))
	if err := s.CreateBet(ctx, bet); err != nil {
		t.Fatalf("create: %v", err)
	}
	if bet.ID == 0 {
		t.Fatal("expected the insert to assign an id")
	}
	if got := balance(t, s, "alice"); got != 6800 {
		t.Errorf("expected 6800, got %d", got)
	}

	got, err := s.GetBet(ctx, bet.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text == nil || got.Text.Wager != "something happens" {
		t.Errorf("text extension not loaded: %+v", got.Text)
	}
	if got.Accepted() || got.Resolved || got.Checked {
		t.Errorf("fresh bet must be open: %+v", got)
	}
}

func TestCreateBet_InsufficientFundsRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")

	bet := textBet("alice", 7000, time.Now().Add(time.Hour))
	err := s.CreateBet(ctx, bet)
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balance(t, s, "alice"); got != 6900 {
		t.Errorf("failed create must not debit, got %d", got)
	}
	if _, err := s.GetBetByMessage(ctx, bet.MessageID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("failed create must not persist a row, got %v", err)
	}
}

func TestCreateBet_StatExtension(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")

	bet := &models.Bet{
		ProposerID:  "alice",
		Stake:       100,
		ResolveTime: time.Now().Add(time.Hour),
		Kind:        models.KindStat,
		MessageID:   "msg-stat",
		Stat:        &models.StatBet{Category: "kills", Name: "bob-player", Threshold: 10},
	}
	if err := s.CreateBet(ctx, bet); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetBet(ctx, bet.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stat == nil || got.Stat.Category != "kills" || got.Stat.Threshold != 10 {
		t.Errorf("stat extension not loaded: %+v", got.Stat)
	}
}

func TestAcceptBet_OnlyOneWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")
	mustUser(t, s, "bob")
	mustUser(t, s, "carol")

	bet := textBet("alice", 100, time.Now().Add(time.Hour))
	if err := s.CreateBet(ctx, bet); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.AcceptBet(ctx, bet.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := balance(t, s, "bob"); got != 6800 {
		t.Errorf("expected acceptor debited to 6800, got %d", got)
	}

	err := s.AcceptBet(ctx, bet.ID, "carol")
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second accept, got %v", err)
	}
	if got := balance(t, s, "carol"); got != 6900 {
		t.Errorf("losing acceptor must keep 6900, got %d", got)
	}

	got, _ := s.GetBet(ctx, bet.ID)
	if got.AcceptorID != "bob" {
		t.Errorf("expected acceptor bob, got %q", got.AcceptorID)
	}
}

func TestAcceptBet_Unknown(t *testing.T) {
	s := newTestStore(t)
	err := s.AcceptBet(context.Background(), 99, "bob")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptBet_InsufficientFundsRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")
	mustUser(t, s, "bob")

	bet := textBet("alice", 100, time.Now().Add(time.Hour))
	s.CreateBet(ctx, bet)

	// Leave bob with less than the stake.
	if err := s.CreditUser(ctx, "bob", -6850); err != nil {
		t.Fatalf("drain: %v", err)
	}

	err := s.AcceptBet(ctx, bet.ID, "bob")
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	got, _ := s.GetBet(ctx, bet.ID)
	if got.Accepted() {
		t.Error("failed accept must roll back the acceptor column")
	}
}

func TestResolveBet_Once(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")
	mustUser(t, s, "bob")

	bet := textBet("alice", 100, time.Now().Add(time.Hour))
	s.CreateBet(ctx, bet)
	s.AcceptBet(ctx, bet.ID, "bob")

	if err := s.ResolveBet(ctx, bet.ID, "alice", 200); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := balance(t, s, "alice"); got != 7000 {
		t.Errorf("expected winner at 7000, got %d", got)
	}

	err := s.ResolveBet(ctx, bet.ID, "alice", 200)
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double resolve, got %v", err)
	}
	if got := balance(t, s, "alice"); got != 7000 {
		t.Errorf("double resolve must not pay twice, got %d", got)
	}
}

func TestMarkChecked_Once(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")

	bet := textBet("alice", 100, time.Now().Add(time.Hour))
	s.CreateBet(ctx, bet)

	if err := s.MarkChecked(ctx, bet.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	err := s.MarkChecked(ctx, bet.ID)
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second mark, got %v", err)
	}
}

func TestRecordOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")

	bet := textBet("alice", 100, time.Now().Add(time.Hour))
	s.CreateBet(ctx, bet)

	// Attestations are only legal once the bet entered verification.
	if err := s.RecordOutcome(ctx, bet.ID, models.PartyProposer, true); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("recording before verification must fail, got %v", err)
	}
	if err := s.MarkChecked(ctx, bet.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}

	if err := s.RecordOutcome(ctx, bet.ID, models.PartyProposer, true); err != nil {
		t.Fatalf("record proposer: %v", err)
	}
	if err := s.RecordOutcome(ctx, bet.ID, models.PartyAcceptor, false); err != nil {
		t.Fatalf("record acceptor: %v", err)
	}

	got, _ := s.GetBet(ctx, bet.ID)
	if got.Text.ProposerOutcome == nil || !*got.Text.ProposerOutcome {
		t.Errorf("expected proposer outcome true, got %v", got.Text.ProposerOutcome)
	}
	if got.Text.AcceptorOutcome == nil || *got.Text.AcceptorOutcome {
		t.Errorf("expected acceptor outcome false, got %v", got.Text.AcceptorOutcome)
	}

	if err := s.RecordOutcome(ctx, 99, models.PartyProposer, true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown bet, got %v", err)
	}

	// A resolved bet row never mutates again.
	if err := s.ResolveBet(ctx, bet.ID, "alice", 100); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := s.RecordOutcome(ctx, bet.ID, models.PartyAcceptor, true); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("recording on a resolved bet must fail, got %v", err)
	}
	got, _ = s.GetBet(ctx, bet.ID)
	if got.Text.AcceptorOutcome == nil || *got.Text.AcceptorOutcome {
		t.Errorf("rejected report must not overwrite the attestation, got %v", got.Text.AcceptorOutcome)
	}
}

func TestDueBets_Filtering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")

	now := time.Now()

	due := textBet("alice", 10, now.Add(-time.Minute))
	due.MessageID = "msg-due"
	s.CreateBet(ctx, due)

	future := textBet("alice", 10, now.Add(time.Hour))
	future.MessageID = "msg-future"
	s.CreateBet(ctx, future)

	checked := textBet("alice", 10, now.Add(-time.Minute))
	checked.MessageID = "msg-checked"
	s.CreateBet(ctx, checked)
	s.MarkChecked(ctx, checked.ID)

	got, err := s.DueBets(ctx, now)
	if err != nil {
		t.Fatalf("due bets: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("expected only bet %d due, got %+v", due.ID, got)
	}
	if got[0].Text == nil {
		t.Error("due bets must carry their extension rows")
	}
}

func TestGetBetByMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")

	bet := textBet("alice", 10, time.Now().Add(time.Hour))
	s.CreateBet(ctx, bet)

	got, err := s.GetBetByMessage(ctx, bet.MessageID)
	if err != nil {
		t.Fatalf("by message: %v", err)
	}
	if got.ID != bet.ID {
		t.Errorf("expected bet %d, got %d", bet.ID, got.ID)
	}

	if _, err := s.GetBetByMessage(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUnresolvedBetsByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "alice")
	mustUser(t, s, "bob")

	mine := textBet("alice", 10, time.Now().Add(time.Hour))
	mine.MessageID = "m1"
	s.CreateBet(ctx, mine)

	accepted := textBet("bob", 10, time.Now().Add(time.Hour))
	accepted.MessageID = "m2"
	s.CreateBet(ctx, accepted)
	s.AcceptBet(ctx, accepted.ID, "alice")

	settled := textBet("alice", 10, time.Now().Add(time.Hour))
	settled.MessageID = "m3"
	s.CreateBet(ctx, settled)
	s.ResolveBet(ctx, settled.ID, "alice", 10)

	got, err := s.UnresolvedBetsByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 unresolved bets, got %d", len(got))
	}
	if got[0].ID != mine.ID || got[1].ID != accepted.ID {
		t.Errorf("unexpected ordering: %d, %d", got[0].ID, got[1].ID)
	}
}

func TestAPIKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UserByAPIKey(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.CreateAPIKey(ctx, "key-1", "alice", "default"); err != nil {
		t.Fatalf("create key: %v", err)
	}
	got, err := s.UserByAPIKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != "alice" {
		t.Errorf("expected alice, got %q", got)
	}
}

func TestWebhooks_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetWebhook(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s.SetWebhook(ctx, "alice", "https://example.com/hook")
	s.SetWebhook(ctx, "alice", "https://example.com/hook2")

	got, err := s.GetWebhook(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "https://example.com/hook2" {
		t.Errorf("expected the updated url, got %q", got)
	}
}
