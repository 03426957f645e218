package claim

import (
	"context"
	"fmt"
	"time"

	"mailtrack/internal/api"
	"mailtrack/pkg/model"
)

// State is the workflow's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateComposing  State = "composing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Submitter issues the remote claim call. *api.Client satisfies it.
type Submitter interface {
	SubmitClaim(ctx context.Context, claim api.ClaimRequest) error
}

// Notifier reports workflow results to the surrounding presentation
// layer (toasts). An external collaborator boundary.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// Workflow drives one claim modal: Idle -> Composing -> Validating ->
// Submitting -> Succeeded or Failed. Owned by one view; not
// goroutine-safe.
type Workflow struct {
	submitter  Submitter
	notifier   Notifier
	branchCode string
	clock      func() time.Time

	state State
	tx    Transaction

	// onSucceeded runs after a successful submission, before the state
	// returns to Idle. The view clears its selection here.
	onSucceeded func()
}

// NewWorkflow creates an idle workflow.
func NewWorkflow(submitter Submitter, notifier Notifier, branchCode string, onSucceeded func()) *Workflow {
	if onSucceeded == nil {
		onSucceeded = func() {}
	}
	return &Workflow{
		submitter:   submitter,
		notifier:    notifier,
		branchCode:  branchCode,
		clock:       time.Now,
		state:       StateIdle,
		onSucceeded: onSucceeded,
	}
}

// WithClock overrides the reference-code clock. Test hook.
func (w *Workflow) WithClock(clock func() time.Time) *Workflow {
	w.clock = clock
	return w
}

// State returns the current workflow state.
func (w *Workflow) State() State {
	return w.state
}

// Transaction returns the in-progress transaction.
func (w *Workflow) Transaction() Transaction {
	return w.tx
}

// Compose opens the claim modal for the given targets, generating a
// fresh reference code. Requires a non-empty selection and an idle
// workflow.
func (w *Workflow) Compose(identifiers []string) error {
	if w.state != StateIdle {
		return fmt.Errorf("cannot compose while %s", w.state)
	}
	if len(identifiers) == 0 {
		return model.ErrEmptySelection
	}

	targets := make([]string, len(identifiers))
	copy(targets, identifiers)

	w.tx = Transaction{
		Identifiers:     targets,
		ReferenceNumber: NewReferenceNumber(w.clock()),
	}
	w.state = StateComposing
	return nil
}

// SetClaimant records the entered claimant fields. Only meaningful while
// composing.
func (w *Workflow) SetClaimant(name, contact, idNumber string, outcome Outcome, note string) error {
	if w.state != StateComposing {
		return fmt.Errorf("cannot edit claimant while %s", w.state)
	}
	w.tx.PersonName = name
	w.tx.PersonContact = contact
	w.tx.IDNumber = idNumber
	w.tx.Outcome = outcome
	w.tx.Note = note
	return nil
}

// Cancel discards entered claimant fields and closes the modal without
// touching the selection. Available any time before submission.
func (w *Workflow) Cancel() error {
	if w.state != StateComposing {
		return fmt.Errorf("cannot cancel while %s", w.state)
	}
	w.tx = Transaction{}
	w.state = StateIdle
	return nil
}

// Submit validates and issues the claim. On validation failure the
// workflow stays in Composing with everything intact and no network
// call is made. On transport failure it returns to Composing with the
// selection and entered fields intact, so the user may retry or cancel.
// On success the transaction is discarded, the selection is cleared via
// the callback, and the workflow returns to Idle ready for a fresh
// reference code.
func (w *Workflow) Submit(ctx context.Context) error {
	if w.state != StateComposing {
		return fmt.Errorf("cannot submit while %s", w.state)
	}

	w.state = StateValidating
	if err := w.tx.Validate(); err != nil {
		w.state = StateComposing
		w.notifier.Failure("Claim not submitted: " + err.Error())
		return err
	}

	w.state = StateSubmitting
	err := w.submitter.SubmitClaim(ctx, api.ClaimRequest{
		Identifiers:     w.tx.Identifiers,
		BranchCode:      w.branchCode,
		ReferenceNumber: w.tx.ReferenceNumber,
		PersonName:      w.tx.PersonName,
		PersonContact:   w.tx.PersonContact,
		Status:          string(w.tx.Outcome),
		IDNumber:        w.tx.IDNumber,
		Note:            w.tx.Note,
	})
	if err != nil {
		w.state = StateFailed
		w.notifier.Failure("Claim submission failed")
		w.state = StateComposing
		return err
	}

	w.state = StateSucceeded
	w.notifier.Success("Claimed " + w.tx.ReferenceNumber)
	w.onSucceeded()
	w.tx = Transaction{}
	w.state = StateIdle
	return nil
}
