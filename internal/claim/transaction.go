// Package claim implements the bulk-action workflow that transitions a
// batch of selected mail items to a resolved outcome.
package claim

import (
	"fmt"
	"time"

	"mailtrack/pkg/model"
)

// Outcome is the resolved status a claim assigns to its targets.
type Outcome string

const (
	OutcomeClaimed  Outcome = "claimed"
	OutcomeReturned Outcome = "returned"
	OutcomePicked   Outcome = "picked"
)

// IsValid checks if the outcome is a known valid outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeClaimed, OutcomeReturned, OutcomePicked:
		return true
	default:
		return false
	}
}

// Transaction is the ephemeral value object of one claim: targets drawn
// from the selection at workflow entry, claimant details, and a
// generated reference code. It is not kept past submission.
type Transaction struct {
	Identifiers     []string
	ReferenceNumber string
	PersonName      string
	PersonContact   string
	IDNumber        string
	Outcome         Outcome
	Note            string
}

// Validate enforces the pre-submission rule: claimant name, identity
// number, and outcome status must be non-empty, and there must be at
// least one target. Contact and note are optional. Runs before any
// network effect.
func (tx Transaction) Validate() error {
	if len(tx.Identifiers) == 0 {
		return model.ErrEmptySelection
	}
	if tx.PersonName == "" {
		return fmt.Errorf("%w: person name", model.ErrMissingClaimant)
	}
	if tx.IDNumber == "" {
		return fmt.Errorf("%w: identity number", model.ErrMissingClaimant)
	}
	if !tx.Outcome.IsValid() {
		return fmt.Errorf("%w: outcome status", model.ErrMissingClaimant)
	}
	return nil
}

// NewReferenceNumber generates the claim reference code for the given
// moment, REF-YYYYMMDD-HHMMSS.
func NewReferenceNumber(t time.Time) string {
	return "REF-" + t.Format("20060102-150405")
}
