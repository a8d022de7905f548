package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"bookiebot/internal/models"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu              sync.Mutex
	startingBalance int
	users           map[string]*models.User
	bets            map[int64]*models.Bet
	apiKeys         map[string]string
	webhooks        map[string]string
	nextID          int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(startingBalance int) *MemoryStore {
	return &MemoryStore{
		startingBalance: startingBalance,
		users:           make(map[string]*models.User),
		bets:            make(map[int64]*models.Bet),
		apiKeys:         make(map[string]string),
		webhooks:        make(map[string]string),
		nextID:          1,
	}
}

func (s *MemoryStore) GetOrCreateUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		u = &models.User{ID: id, Balance: s.startingBalance}
		s.users[id] = u
	}
	copy := *u
	return &copy, nil
}

func (s *MemoryStore) CreditUser(_ context.Context, id string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credit(id, amount)
}

func (s *MemoryStore) credit(id string, amount int) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Balance += amount
	return nil
}

func (s *MemoryStore) debit(id string, amount int) error {
	u, ok := s.users[id]
	if !ok || u.Balance < amount {
		return ErrInsufficientFunds
	}
	u.Balance -= amount
	return nil
}

func (s *MemoryStore) TransferCoins(_ context.Context, fromID, toID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[toID]; !ok {
		return ErrNotFound
	}
	if err := s.debit(fromID, amount); err != nil {
		return err
	}
	return s.credit(toID, amount)
}

func (s *MemoryStore) ClaimGrant(_ context.Context, id string, amount int, now time.Time, cooldown time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return false, ErrNotFound
	}
	if !u.LastGrant.IsZero() && u.LastGrant.After(now.Add(-cooldown)) {
		return false, nil
	}
	u.Balance += amount
	u.LastGrant = now
	return true, nil
}

func (s *MemoryStore) CreateBet(_ context.Context, bet *models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.debit(bet.ProposerID, bet.Stake); err != nil {
		return err
	}
	bet.ID = s.nextID
	s.nextID++

	copy := cloneBet(bet)
	s.bets[bet.ID] = copy
	return nil
}

func (s *MemoryStore) AcceptBet(_ context.Context, betID int64, acceptorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[betID]
	if !ok {
		return ErrNotFound
	}
	if b.AcceptorID != "" || b.Resolved || b.Checked {
		return ErrInvalidState
	}
	if err := s.debit(acceptorID, b.Stake); err != nil {
		return err
	}
	b.AcceptorID = acceptorID
	return nil
}

func (s *MemoryStore) ResolveBet(_ context.Context, betID int64, winnerID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[betID]
	if !ok {
		return ErrNotFound
	}
	if b.Resolved {
		return ErrInvalidState
	}
	if err := s.credit(winnerID, amount); err != nil {
		return err
	}
	b.Resolved = true
	return nil
}

func (s *MemoryStore) MarkChecked(_ context.Context, betID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[betID]
	if !ok {
		return ErrNotFound
	}
	if b.Checked || b.Resolved {
		return ErrInvalidState
	}
	b.Checked = true
	return nil
}

func (s *MemoryStore) RecordOutcome(_ context.Context, betID int64, party models.Party, outcome bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[betID]
	if !ok || b.Text == nil {
		return ErrNotFound
	}
	if !b.Checked || b.Resolved {
		return ErrInvalidState
	}
	v := outcome
	if party == models.PartyAcceptor {
		b.Text.AcceptorOutcome = &v
	} else {
		b.Text.ProposerOutcome = &v
	}
	return nil
}

func (s *MemoryStore) GetBet(_ context.Context, id int64) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBet(b), nil
}

func (s *MemoryStore) GetBetByMessage(_ context.Context, messageID string) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bets {
		if b.MessageID == messageID {
			return cloneBet(b), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DueBets(_ context.Context, now time.Time) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.Bet
	for _, b := range s.bets {
		if !b.Checked && !b.Resolved && !now.Before(b.ResolveTime) {
			due = append(due, *cloneBet(b))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (s *MemoryStore) UnresolvedBetsByUser(_ context.Context, userID string) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bets []models.Bet
	for _, b := range s.bets {
		if !b.Resolved && (b.ProposerID == userID || b.AcceptorID == userID) {
			bets = append(bets, *cloneBet(b))
		}
	}
	sort.Slice(bets, func(i, j int) bool { return bets[i].ID < bets[j].ID })
	return bets, nil
}

func (s *MemoryStore) CreateAPIKey(_ context.Context, key, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[key] = userID
	return nil
}

func (s *MemoryStore) UserByAPIKey(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.apiKeys[key]
	if !ok {
		return "", ErrNotFound
	}
	return userID, nil
}

func (s *MemoryStore) SetWebhook(_ context.Context, userID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks[userID] = url
	return nil
}

func (s *MemoryStore) GetWebhook(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url, ok := s.webhooks[userID]
	if !ok {
		return "", ErrNotFound
	}
	return url, nil
}

// Balance returns a user's balance, for tests.
func (s *MemoryStore) Balance(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u.Balance
	}
	return 0
}

func cloneBet(b *models.Bet) *models.Bet {
	copy := *b
	if b.Stat != nil {
		st := *b.Stat
		copy.Stat = &st
	}
	if b.Text != nil {
		tb := *b.Text
		if tb.ProposerOutcome != nil {
			v := *tb.ProposerOutcome
			tb.ProposerOutcome = &v
		}
		if tb.AcceptorOutcome != nil {
			v := *tb.AcceptorOutcome
			tb.AcceptorOutcome = &v
		}
		copy.Text = &tb
	}
	return &copy
}
