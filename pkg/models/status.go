package models

import "fmt"

// Status is the reconciliation lifecycle state of an InvoiceRecord.
// Exactly four states exist; Filed is terminal.
type Status int

const (
	// StatusPending means the invoice passed the onboarding variance check
	// and awaits first-level reconciliation review.
	StatusPending Status = iota

	// StatusReconciled means a user approved the invoice, making its IGST
	// eligible for the ITC claim.
	StatusReconciled

	// StatusMismatch means the variance check or a reviewer flagged the
	// invoice for manual intervention.
	StatusMismatch

	// StatusFiled means the invoice was included in a GSTR-3B bulk filing.
	// No transition leaves this state.
	StatusFiled
)

// String returns the stable wire token for the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusReconciled:
		return "RECONCILED"
	case StatusMismatch:
		return "MISMATCH"
	case StatusFiled:
		return "FILED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Label returns the human-readable form shown in tables and summaries.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending Reconciliation"
	case StatusReconciled:
		return "Reconciled"
	case StatusMismatch:
		return "Mismatch (Review)"
	case StatusFiled:
		return "Filed"
	}
	return s.String()
}

// Terminal reports whether no transition leaves this status.
func (s Status) Terminal() bool {
	return s == StatusFiled
}

// ParseStatus converts a wire token back to a Status.
func ParseStatus(token string) (Status, error) {
	switch token {
	case "PENDING":
		return StatusPending, nil
	case "RECONCILED":
		return StatusReconciled, nil
	case "MISMATCH":
		return StatusMismatch, nil
	case "FILED":
		return StatusFiled, nil
	}
	return 0, fmt.Errorf("unknown invoice status: %q", token)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
