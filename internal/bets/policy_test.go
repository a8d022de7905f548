package bets

import "testing"

func TestStatPolicy_ProposerWins(t *testing.T) {
	tests := []struct {
		name      string
		policy    StatPolicy
		value     int
		threshold int
		want      bool
	}{
		{"default at threshold", ProposerAtOrAbove, 10, 10, true},
		{"default above threshold", ProposerAtOrAbove, 11, 10, true},
		{"default below threshold", ProposerAtOrAbove, 9, 10, false},
		{"inverted at threshold", AcceptorAtOrAbove, 10, 10, false},
		{"inverted below threshold", AcceptorAtOrAbove, 9, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.ProposerWins(tt.value, tt.threshold); got != tt.want {
				t.Errorf("ProposerWins(%d, %d) = %v, want %v", tt.value, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestParseStatPolicy(t *testing.T) {
	if p, err := ParseStatPolicy(""); err != nil || p != ProposerAtOrAbove {
		t.Errorf("empty rule: got %v, %v", p, err)
	}
	if p, err := ParseStatPolicy("acceptor_at_or_above"); err != nil || p != AcceptorAtOrAbove {
		t.Errorf("acceptor rule: got %v, %v", p, err)
	}
	if _, err := ParseStatPolicy("bogus"); err == nil {
		t.Error("expected an error for an unknown rule")
	}
}
