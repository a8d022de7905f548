package bets

import "fmt"

// StatPolicy is the directional rule deciding which side of a stat bet
// wins once the oracle value is known.
type StatPolicy int

const (
	// ProposerAtOrAbove: the proposer wins when value >= threshold.
	ProposerAtOrAbove StatPolicy = iota

	// AcceptorAtOrAbove: the acceptor wins when value >= threshold,
	// i.e. the proposer bet the stat would stay below it.
	AcceptorAtOrAbove
)

// ProposerWins applies the policy to an oracle value and threshold.
func (p StatPolicy) ProposerWins(value, threshold int) bool {
	if p == AcceptorAtOrAbove {
		return value < threshold
	}
	return value >= threshold
}

// ParseStatPolicy maps the config value to a policy.
func ParseStatPolicy(s string) (StatPolicy, error) {
	switch s {
	case "", "proposer_at_or_above":
		return ProposerAtOrAbove, nil
	case "acceptor_at_or_above":
		return AcceptorAtOrAbove, nil
	}
	return ProposerAtOrAbove, fmt.Errorf("unknown stat win rule %q", s)
}
