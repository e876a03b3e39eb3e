package stellar

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the precision of Stellar amounts (one stroop = 1e-7).
const MaxDecimals = 7

var (
	stroopsPerUnit = decimal.New(1, MaxDecimals)
	maxAmount      = decimal.New(math.MaxInt64, -MaxDecimals)

	// Plain digits with an optional fraction. No sign, exponent or bare dot.
	amountSyntax = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// ParseAmount reads a balance string leniently: malformed input yields zero.
// Use ParsePositiveAmount for anything that ends up in a transaction.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParsePositiveAmount validates a transfer amount: decimal syntax, strictly
// positive, at most seven fractional digits and representable in stroops.
func ParsePositiveAmount(op, s string) (decimal.Decimal, error) {
	if !amountSyntax.MatchString(s) {
		return decimal.Zero, Validation(op, "amount %q is not a decimal number", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Validation(op, "amount %q is not a decimal number", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, Validation(op, "amount must be positive, got %s", s)
	}
	if !d.Mul(stroopsPerUnit).IsInteger() {
		return decimal.Zero, Validation(op, "amount %s has more than %d decimal places", s, MaxDecimals)
	}
	if d.GreaterThan(maxAmount) {
		return decimal.Zero, Validation(op, "amount %s exceeds the maximum representable amount", s)
	}
	return d, nil
}

// ToStroops converts a decimal amount to its integer stroop count, truncating
// anything below one stroop.
func ToStroops(d decimal.Decimal) int64 {
	return d.Mul(stroopsPerUnit).IntPart()
}
