package budget

import (
	"math"
	"unicode/utf8"
)

// DefaultLimit is the token budget a single documentation file is expected
// to fit in when it is loaded whole into an assistant's context.
const DefaultLimit = 8192

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// EstimateTotalTokens sums the estimates of each part. Parts are estimated
// separately, so the total can exceed the estimate of their concatenation.
func EstimateTotalTokens(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += EstimateTokens(p)
	}
	return total
}

// Budget is a token limit with a reservation kept free for other material.
type Budget struct {
	Limit   int `json:"limit" yaml:"limit"`
	Reserve int `json:"reserve" yaml:"reserve"`
}

// Default returns a Budget with DefaultLimit and no reservation.
func Default() Budget { return Budget{Limit: DefaultLimit} }

// Max returns the effective limit, DefaultLimit when Limit is unset.
func (b Budget) Max() int {
	if b.Limit <= 0 {
		return DefaultLimit
	}
	return b.Limit
}

// Headroom returns a safety margin of 5% of the limit with a floor of 512
// tokens, covering tokenizer variance.
func (b Budget) Headroom() int {
	dyn := int(math.Ceil(float64(b.Max()) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// Remaining returns the tokens left after the reservation, the headroom and
// used. The result is never negative.
func (b Budget) Remaining(used int) int {
	reserve := b.Reserve
	if reserve < 0 {
		reserve = 0
	}
	remaining := b.Max() - reserve - b.Headroom() - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Fits reports whether used tokens leave room in the budget.
func (b Budget) Fits(used int) bool {
	return b.Remaining(used) > 0
}

// Usage returns used as a fraction of the limit.
func (b Budget) Usage(used int) float64 {
	if used <= 0 {
		return 0
	}
	return float64(used) / float64(b.Max())
}
