package recon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name         string
		ours         string
		theirs       string
		wantPct      string
		wantDefined  bool
		wantDiff     string
		wantMismatch bool
	}{
		{
			name:         "five percent over is a mismatch",
			ours:         "1000",
			theirs:       "950",
			wantPct:      "5.2632",
			wantDefined:  true,
			wantDiff:     "50",
			wantMismatch: true,
		},
		{
			name:         "half a percent is within tolerance",
			ours:         "1000",
			theirs:       "995",
			wantPct:      "0.5025",
			wantDefined:  true,
			wantDiff:     "5",
			wantMismatch: false,
		},
		{
			name:         "exactly one percent is not a mismatch",
			ours:         "101",
			theirs:       "100",
			wantPct:      "1",
			wantDefined:  true,
			wantDiff:     "1",
			wantMismatch: false,
		},
		{
			name:         "negative deviation uses the magnitude",
			ours:         "950",
			theirs:       "1000",
			wantPct:      "-5",
			wantDefined:  true,
			wantDiff:     "-50",
			wantMismatch: true,
		},
		{
			name:         "equal figures have zero variance",
			ours:         "1234.56",
			theirs:       "1234.56",
			wantPct:      "0",
			wantDefined:  true,
			wantDiff:     "0",
			wantMismatch: false,
		},
		{
			name:         "government zero with nonzero ours is a mismatch",
			ours:         "1000",
			theirs:       "0",
			wantDefined:  false,
			wantDiff:     "1000",
			wantMismatch: true,
		},
		{
			name:         "both zero agree",
			ours:         "0",
			theirs:       "0",
			wantDefined:  false,
			wantDiff:     "0",
			wantMismatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Variance(d(tt.ours), d(tt.theirs))

			assert.Equal(t, tt.wantDefined, got.Defined)
			assert.Equal(t, tt.wantMismatch, got.IsMismatch)
			assert.True(t, got.AbsoluteDiff.Equal(d(tt.wantDiff)),
				"absolute diff: got %s, want %s", got.AbsoluteDiff, tt.wantDiff)
			if tt.wantDefined {
				assert.True(t, got.Percentage.Round(4).Equal(d(tt.wantPct)),
					"percentage: got %s, want %s", got.Percentage, tt.wantPct)
			}
		})
	}
}

func TestVarianceAxesAreIndependent(t *testing.T) {
	// A taxable-value mismatch says nothing about the IGST pair.
	taxable := Variance(d("1000"), d("950"))
	igst := Variance(d("180"), d("180"))

	require.True(t, taxable.IsMismatch)
	require.False(t, igst.IsMismatch)
}
