// Package recon implements the reconciliation and filing-readiness engine:
// variance classification between extracted and government figures, the
// invoice status state machine, aggregation summaries, and the bulk filing
// gate.
//
// Everything except the filing gate is pure and side-effect-free; it may be
// called from any goroutine without locking.
package recon

import "github.com/shopspring/decimal"

// mismatchThreshold is the variance magnitude, in percent, above which a
// figure pair is flagged as a mismatch.
var mismatchThreshold = decimal.NewFromInt(1)

var hundred = decimal.NewFromInt(100)

// VarianceResult describes the deviation of our figure from the paired
// government figure.
type VarianceResult struct {
	// Percentage is (ours-theirs)/theirs*100. Meaningless when Defined is
	// false (theirs was zero).
	Percentage decimal.Decimal

	// Defined is false when theirs is zero and the percentage is undefined.
	Defined bool

	// AbsoluteDiff is ours - theirs.
	AbsoluteDiff decimal.Decimal

	// IsMismatch is true when the variance magnitude exceeds 1%, or when
	// theirs is zero and ours is not.
	IsMismatch bool
}

// Variance compares our figure against the paired government figure. It is
// applied independently to the taxable-value pair and the IGST pair; the two
// axes can mismatch independently.
func Variance(ours, theirs decimal.Decimal) VarianceResult {
	diff := ours.Sub(theirs)
	if theirs.IsZero() {
		return VarianceResult{
			AbsoluteDiff: diff,
			IsMismatch:   !ours.IsZero(),
		}
	}
	pct := diff.Div(theirs).Mul(hundred)
	return VarianceResult{
		Percentage:   pct,
		Defined:      true,
		AbsoluteDiff: diff,
		IsMismatch:   pct.Abs().GreaterThan(mismatchThreshold),
	}
}
