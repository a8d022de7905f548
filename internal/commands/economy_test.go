package commands

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"bookiebot/internal/models"
	"bookiebot/internal/store"
)

type failingUserStore struct {
	store.Store
	failID string
}

func (f *failingUserStore) GetOrCreateUser(ctx context.Context, id string) (*models.User, error) {
	if id == f.failID {
		return nil, errors.New("connection reset")
	}
	return f.Store.GetOrCreateUser(ctx, id)
}

func TestPay_NewRecipient(t *testing.T) {
	ms := store.NewMemoryStore(6900)
	h := New(ms, nil, "!b", zap.NewNop())
	ctx := context.Background()

	ms.GetOrCreateUser(ctx, "alice")

	// bob has never interacted; the transfer must create his record.
	if err := h.pay(ctx, "alice", "bob", 500); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if got := ms.Balance("alice"); got != 6400 {
		t.Errorf("sender: expected 6400, got %d", got)
	}
	if got := ms.Balance("bob"); got != 7400 {
		t.Errorf("recipient: expected 7400, got %d", got)
	}
}

func TestPay_InsufficientFunds(t *testing.T) {
	ms := store.NewMemoryStore(100)
	h := New(ms, nil, "!b", zap.NewNop())
	ctx := context.Background()

	err := h.pay(ctx, "alice", "bob", 500)
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := ms.Balance("bob"); got != 100 {
		t.Errorf("failed pay must leave the recipient untouched, got %d", got)
	}
}

func TestPay_UserCreationFailure(t *testing.T) {
	tests := []struct {
		name   string
		failID string
	}{
		{"sender", "alice"},
		{"recipient", "bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := store.NewMemoryStore(6900)
			h := New(&failingUserStore{Store: ms, failID: tt.failID}, nil, "!b", zap.NewNop())

			err := h.pay(context.Background(), "alice", "bob", 500)
			if err == nil {
				t.Fatal("expected the store failure to surface")
			}
			if got := ms.Balance("alice"); got != 0 && got != 6900 {
				t.Errorf("failed pay must not move coins, alice has %d", got)
			}
		})
	}
}
