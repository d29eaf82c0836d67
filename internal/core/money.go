// Package core provides the domain model of the ledger: users, ledgers,
// records and the parsing helpers used when users type values in.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the exclusive upper bound of a single record amount.
var MaxAmount = decimal.New(1, 15)

var maxTotal = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts user input into a positive decimal amount.
//
// Both dot (12.5) and comma (12,5) decimal separators are accepted. Input that
// is not a number fails with ErrInvalidAmount; zero or negative numbers fail
// with ErrNonPositiveAmount so callers can word the re-prompt differently.
// Amounts of MaxAmount or more fail with ErrAmountTooLarge, which is also an
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.5")  -> 12.5, nil
//	ParseAmount("12,50") -> 12.5, nil
//	ParseAmount("0")     -> 0, ErrNonPositiveAmount
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		// Scientific notation is valid for decimal but not what a user means.
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}
	if d.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	}
	return d, nil
}

// TruncateAmount drops the fractional part, the way totals are shown to users.
// Totals beyond the int64 range saturate instead of wrapping.
func TruncateAmount(d decimal.Decimal) int64 {
	switch {
	case d.GreaterThan(maxTotal):
		return math.MaxInt64
	case d.LessThan(maxTotal.Neg()):
		return -math.MaxInt64
	}
	return d.Truncate(0).IntPart()
}
