package models

import "time"

// BetKind distinguishes the two wager flavors.
type BetKind int

const (
	KindStat BetKind = 1
	KindText BetKind = 2
)

// Party identifies which side of a bet an actor is on.
type Party int

const (
	PartyProposer Party = 1
	PartyAcceptor Party = 2
)

// User represents a Discord user with a coin balance.
type User struct {
	ID        string
	Balance   int
	LastGrant time.Time
}

// Bet is the base wager record. AcceptorID is empty while the bet is
// open. A bet is terminal once Resolved is true.
type Bet struct {
	ID          int64
	ProposerID  string
	AcceptorID  string
	Stake       int
	ResolveTime time.Time
	Resolved    bool
	Checked     bool
	Kind        BetKind
	MessageID   string

	// Kind extension, exactly one set according to Kind.
	Stat *StatBet
	Text *TextBet
}

// StatBet holds the stat comparison parameters for a KindStat bet.
type StatBet struct {
	Category  string
	Name      string
	Threshold int
}

// TextBet holds the free-text wager and each party's attestation.
// Outcomes are nil until the party reports.
type TextBet struct {
	Wager           string
	ProposerOutcome *bool
	AcceptorOutcome *bool
}

// Accepted reports whether both parties have committed a stake.
func (b *Bet) Accepted() bool {
	return b.AcceptorID != ""
}

// Due reports whether the bet's resolution deadline has passed.
func (b *Bet) Due(now time.Time) bool {
	return !now.Before(b.ResolveTime)
}

// AwaitingVerification reports whether the bet is in the manual
// attestation phase.
func (b *Bet) AwaitingVerification() bool {
	return b.Checked && !b.Resolved
}

// IsParty returns the side userID is on, or 0 if not a participant.
func (b *Bet) IsParty(userID string) Party {
	switch userID {
	case b.ProposerID:
		return PartyProposer
	case b.AcceptorID:
		if userID != "" {
			return PartyAcceptor
		}
	}
	return 0
}
