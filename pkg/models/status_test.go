package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTokensAndLabels(t *testing.T) {
	tests := []struct {
		status Status
		token  string
		label  string
	}{
		{StatusPending, "PENDING", "Pending Reconciliation"},
		{StatusReconciled, "RECONCILED", "Reconciled"},
		{StatusMismatch, "MISMATCH", "Mismatch (Review)"},
		{StatusFiled, "FILED", "Filed"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.token, tt.status.String())
			assert.Equal(t, tt.label, tt.status.Label())

			parsed, err := ParseStatus(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.status, parsed)
		})
	}
}

func TestParseStatusUnknown(t *testing.T) {
	_, err := ParseStatus("ARCHIVED")
	require.Error(t, err)
}

func TestOnlyFiledIsTerminal(t *testing.T) {
	assert.True(t, StatusFiled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusReconciled.Terminal())
	assert.False(t, StatusMismatch.Terminal())
}
