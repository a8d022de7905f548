package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookiebot/internal/database"
	"bookiebot/internal/models"
)

// SQLStore implements Store on top of a database.Database driver.
type SQLStore struct {
	db              database.Database
	startingBalance int
}

// NewSQLStore creates a SQL-backed store. New users are seeded with
// startingBalance coins.
func NewSQLStore(db database.Database, startingBalance int) *SQLStore {
	return &SQLStore{db: db, startingBalance: startingBalance}
}

func (s *SQLStore) GetOrCreateUser(ctx context.Context, id string) (*models.User, error) {
	q := s.db.Rebind("INSERT INTO users (id, balance) VALUES (?, ?) ON CONFLICT(id) DO NOTHING")
	if _, err := s.db.Exec(q, id, s.startingBalance); err != nil {
		return nil, fmt.Errorf("create user %s: %w", id, err)
	}

	u := &models.User{ID: id}
	var lastGrant sql.NullTime
	q = s.db.Rebind("SELECT balance, last_grant FROM users WHERE id = ?")
	if err := s.db.QueryRow(q, id).Scan(&u.Balance, &lastGrant); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if lastGrant.Valid {
		u.LastGrant = lastGrant.Time
	}
	return u, nil
}

func (s *SQLStore) CreditUser(ctx context.Context, id string, amount int) error {
	q := s.db.Rebind("UPDATE users SET balance = balance + ? WHERE id = ?")
	res, err := s.db.Exec(q, amount, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// debitUser performs an atomic check-and-debit inside tx. The balance
// pre-check and the subtraction are one statement, so two concurrent
// debits can never both pass against a stale balance.
func (s *SQLStore) debitUser(tx *sql.Tx, id string, amount int) error {
	q := s.db.Rebind("UPDATE users SET balance = balance - ? WHERE id = ? AND balance >= ?")
	res, err := tx.Exec(q, amount, id, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func (s *SQLStore) TransferCoins(ctx context.Context, fromID, toID string, amount int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.debitUser(tx, fromID, amount); err != nil {
		return err
	}
	q := s.db.Rebind("UPDATE users SET balance = balance + ? WHERE id = ?")
	res, err := tx.Exec(q, amount, toID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLStore) ClaimGrant(ctx context.Context, id string, amount int, now time.Time, cooldown time.Duration) (bool, error) {
	cutoff := now.Add(-cooldown)
	q := s.db.Rebind(`UPDATE users SET balance = balance + ?, last_grant = ?
		WHERE id = ? AND (last_grant IS NULL OR last_grant <= ?)`)
	res, err := s.db.Exec(q, amount, now, id, cutoff)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLStore) CreateBet(ctx context.Context, bet *models.Bet) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.debitUser(tx, bet.ProposerID, bet.Stake); err != nil {
		return err
	}

	q := s.db.Rebind(`INSERT INTO bets (proposer_id, stake, resolve_time, resolved, checked, kind, message_id)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = tx.QueryRow(q, bet.ProposerID, bet.Stake, bet.ResolveTime, false, false, bet.Kind, bet.MessageID).Scan(&bet.ID)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}

	switch bet.Kind {
	case models.KindStat:
		q = s.db.Rebind("INSERT INTO stat_bets (bet_id, category, name, threshold) VALUES (?, ?, ?, ?)")
		_, err = tx.Exec(q, bet.ID, bet.Stat.Category, bet.Stat.Name, bet.Stat.Threshold)
	case models.KindText:
		q = s.db.Rebind("INSERT INTO text_bets (bet_id, wager) VALUES (?, ?)")
		_, err = tx.Exec(q, bet.ID, bet.Text.Wager)
	default:
		err = fmt.Errorf("unknown bet kind %d", bet.Kind)
	}
	if err != nil {
		return fmt.Errorf("insert bet extension: %w", err)
	}

	return tx.Commit()
}

func (s *SQLStore) AcceptBet(ctx context.Context, betID int64, acceptorID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stake int
	q := s.db.Rebind("SELECT stake FROM bets WHERE id = ?")
	if err := tx.QueryRow(q, betID).Scan(&stake); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	// Single-writer guarantee: only one of {accept, expiry resolve}
	// can win this conditional update.
	q = s.db.Rebind(`UPDATE bets SET acceptor_id = ?
		WHERE id = ? AND acceptor_id IS NULL AND resolved = ? AND checked = ?`)
	res, err := tx.Exec(q, acceptorID, betID, false, false)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}

	if err := s.debitUser(tx, acceptorID, stake); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLStore) ResolveBet(ctx context.Context, betID int64, winnerID string, amount int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := s.db.Rebind("UPDATE bets SET resolved = ? WHERE id = ? AND resolved = ?")
	res, err := tx.Exec(q, true, betID, false)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}

	q = s.db.Rebind("UPDATE users SET balance = balance + ? WHERE id = ?")
	res, err = tx.Exec(q, amount, winnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

func (s *SQLStore) MarkChecked(ctx context.Context, betID int64) error {
	q := s.db.Rebind("UPDATE bets SET checked = ? WHERE id = ? AND checked = ? AND resolved = ?")
	res, err := s.db.Exec(q, true, betID, false, false)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}

func (s *SQLStore) RecordOutcome(ctx context.Context, betID int64, party models.Party, outcome bool) error {
	col := "proposer_outcome"
	if party == models.PartyAcceptor {
		col = "acceptor_outcome"
	}
	// Attestations are only writable while the parent bet is in the
	// verification phase; a resolved bet row never mutates again.
	q := s.db.Rebind("UPDATE text_bets SET " + col + ` = ? WHERE bet_id = ?
		AND EXISTS (SELECT 1 FROM bets WHERE id = ? AND checked = ? AND resolved = ?)`)
	res, err := s.db.Exec(q, outcome, betID, betID, true, false)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var resolved bool
		q = s.db.Rebind("SELECT resolved FROM bets WHERE id = ?")
		err := s.db.QueryRow(q, betID).Scan(&resolved)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

const betColumns = "id, proposer_id, acceptor_id, stake, resolve_time, resolved, checked, kind, message_id"

func (s *SQLStore) scanBet(row *sql.Row) (*models.Bet, error) {
	b := &models.Bet{}
	var acceptor sql.NullString
	err := row.Scan(&b.ID, &b.ProposerID, &acceptor, &b.Stake, &b.ResolveTime,
		&b.Resolved, &b.Checked, &b.Kind, &b.MessageID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if acceptor.Valid {
		b.AcceptorID = acceptor.String
	}
	if err := s.loadExtension(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *SQLStore) loadExtension(b *models.Bet) error {
	switch b.Kind {
	case models.KindStat:
		st := &models.StatBet{}
		q := s.db.Rebind("SELECT category, name, threshold FROM stat_bets WHERE bet_id = ?")
		if err := s.db.QueryRow(q, b.ID).Scan(&st.Category, &st.Name, &st.Threshold); err != nil {
			return fmt.Errorf("load stat bet %d: %w", b.ID, err)
		}
		b.Stat = st
	case models.KindText:
		tb := &models.TextBet{}
		var p, a sql.NullBool
		q := s.db.Rebind("SELECT wager, proposer_outcome, acceptor_outcome FROM text_bets WHERE bet_id = ?")
		if err := s.db.QueryRow(q, b.ID).Scan(&tb.Wager, &p, &a); err != nil {
			return fmt.Errorf("load text bet %d: %w", b.ID, err)
		}
		if p.Valid {
			tb.ProposerOutcome = &p.Bool
		}
		if a.Valid {
			tb.AcceptorOutcome = &a.Bool
		}
		b.Text = tb
	}
	return nil
}

func (s *SQLStore) GetBet(ctx context.Context, id int64) (*models.Bet, error) {
	q := s.db.Rebind("SELECT " + betColumns + " FROM bets WHERE id = ?")
	return s.scanBet(s.db.QueryRow(q, id))
}

func (s *SQLStore) GetBetByMessage(ctx context.Context, messageID string) (*models.Bet, error) {
	q := s.db.Rebind("SELECT " + betColumns + " FROM bets WHERE message_id = ?")
	return s.scanBet(s.db.QueryRow(q, messageID))
}

func (s *SQLStore) queryBets(query string, args ...interface{}) ([]models.Bet, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []models.Bet
	for rows.Next() {
		b := models.Bet{}
		var acceptor sql.NullString
		err := rows.Scan(&b.ID, &b.ProposerID, &acceptor, &b.Stake, &b.ResolveTime,
			&b.Resolved, &b.Checked, &b.Kind, &b.MessageID)
		if err != nil {
			return nil, err
		}
		if acceptor.Valid {
			b.AcceptorID = acceptor.String
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range bets {
		if err := s.loadExtension(&bets[i]); err != nil {
			return nil, err
		}
	}
	return bets, nil
}

func (s *SQLStore) DueBets(ctx context.Context, now time.Time) ([]models.Bet, error) {
	q := s.db.Rebind("SELECT " + betColumns + ` FROM bets
		WHERE resolve_time <= ? AND checked = ? AND resolved = ? ORDER BY id`)
	return s.queryBets(q, now, false, false)
}

func (s *SQLStore) UnresolvedBetsByUser(ctx context.Context, userID string) ([]models.Bet, error) {
	q := s.db.Rebind("SELECT " + betColumns + ` FROM bets
		WHERE resolved = ? AND (proposer_id = ? OR acceptor_id = ?) ORDER BY id`)
	return s.queryBets(q, false, userID, userID)
}

func (s *SQLStore) CreateAPIKey(ctx context.Context, key, userID, name string) error {
	q := s.db.Rebind("INSERT INTO api_keys (key, user_id, name, created_at) VALUES (?, ?, ?, ?)")
	_, err := s.db.Exec(q, key, userID, name, time.Now())
	return err
}

func (s *SQLStore) UserByAPIKey(ctx context.Context, key string) (string, error) {
	var userID string
	q := s.db.Rebind("SELECT user_id FROM api_keys WHERE key = ?")
	err := s.db.QueryRow(q, key).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *SQLStore) SetWebhook(ctx context.Context, userID, url string) error {
	q := s.db.Rebind("INSERT INTO webhooks (user_id, url) VALUES (?, ?) ON CONFLICT(user_id) DO UPDATE SET url = excluded.url")
	_, err := s.db.Exec(q, userID, url)
	return err
}

func (s *SQLStore) GetWebhook(ctx context.Context, userID string) (string, error) {
	var url string
	q := s.db.Rebind("SELECT url FROM webhooks WHERE user_id = ?")
	err := s.db.QueryRow(q, userID).Scan(&url)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return url, nil
}
