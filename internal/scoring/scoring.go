// Package scoring holds the answer matcher and the percentage calculator.
// It is the single source of truth for "is this answer right" and "what did
// this session score": every caller (HTTP submit path, live feed, tests)
// goes through the same two functions, so client-visible results and
// persisted results cannot drift apart.
package scoring

import (
	"math"
	"strings"

	"cricket-trivia-service/internal/domain"
)

// Normalize lowers the text and strips everything that is not an ASCII
// letter or digit. "Sachin Tendulkar!" and "sachintendulkar" normalize to
// the same value.
func Normalize(text string) string {
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		}
	}
	return string(out)
}

// Matches reports whether a submitted answer counts as correct against the
// canonical answer: the normalized canonical text must contain the
// normalized submission as a substring. The containment is deliberately
// asymmetric — "sachin" matches "Sachin Tendulkar" but not the reverse.
//
// A submission that normalizes to the empty string (absent, whitespace,
// all punctuation) never matches, even though an empty string is a
// substring of everything.
func Matches(canonical, submitted string) bool {
	sub := Normalize(submitted)
	if sub == "" {
		return false
	}
	return strings.Contains(Normalize(canonical), sub)
}

// MatchAttempts evaluates each attempt with Matches, preserving order.
func MatchAttempts(attempts []domain.Attempt) []bool {
	outcomes := make([]bool, len(attempts))
	for i, a := range attempts {
		outcomes[i] = Matches(a.Canonical, a.Submitted)
	}
	return outcomes
}

// Score converts per-question outcomes into an integer percentage in
// [0,100], rounding half up. An empty outcome set is a caller bug and
// fails with ErrEmptyAttemptSet instead of dividing by zero.
func Score(outcomes []bool) (int, error) {
	if len(outcomes) == 0 {
		return 0, domain.ErrEmptyAttemptSet
	}
	correct := 0
	for _, ok := range outcomes {
		if ok {
			correct++
		}
	}
	return int(math.Round(float64(correct) / float64(len(outcomes)) * 100)), nil
}
