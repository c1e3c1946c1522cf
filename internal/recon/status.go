package recon

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gstportal/pkg/models"
)

// Action is a user-initiated reconciliation decision on a single invoice.
type Action int

const (
	// ActionApprove marks the invoice as reconciled. Approval is a manual
	// override: it is permitted regardless of the variance outcome.
	ActionApprove Action = iota

	// ActionReject flags the invoice as a mismatch for manual review.
	ActionReject
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ErrIllegalTransition is returned when an action is not defined for the
// invoice's current status, including any action on a Filed invoice.
var ErrIllegalTransition = errors.New("illegal invoice status transition")

// InitialStatus classifies an invoice at creation time from the taxable-value
// pair, the single combined onboarding signal. A variance magnitude above 1%
// yields Mismatch, otherwise Pending.
func InitialStatus(taxableValue, govtTaxableValue decimal.Decimal) models.Status {
	if Variance(taxableValue, govtTaxableValue).IsMismatch {
		return models.StatusMismatch
	}
	return models.StatusPending
}

// Transition applies a user action to a status and returns the next status.
//
// Legal transitions:
//
//	Pending  --approve--> Reconciled
//	Pending  --reject---> Mismatch
//	Mismatch --approve--> Reconciled
//	Mismatch --reject---> Mismatch (idempotent re-flag)
//
// Filed is absorbing, Reconciled accepts no further user action, and the
// Filed state itself is only reachable through the bulk filing gate.
func Transition(current models.Status, action Action) (models.Status, error) {
	switch current {
	case models.StatusPending, models.StatusMismatch:
		if action == ActionApprove {
			return models.StatusReconciled, nil
		}
		return models.StatusMismatch, nil
	case models.StatusReconciled, models.StatusFiled:
		return current, fmt.Errorf("%w: cannot %s a %s invoice",
			ErrIllegalTransition, action, current.Label())
	}
	return current, fmt.Errorf("%w: unknown status %v", ErrIllegalTransition, current)
}
