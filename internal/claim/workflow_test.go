package claim

import (
	"context"
	"errors"
	"testing"
	"time"

	"mailtrack/internal/api"
	"mailtrack/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	calls []api.ClaimRequest
	err   error
}

func (f *fakeSubmitter) SubmitClaim(_ context.Context, claim api.ClaimRequest) error {
	f.calls = append(f.calls, claim)
	return f.err
}

type fakeNotifier struct {
	successes []string
	failures  []string
}

func (f *fakeNotifier) Success(msg string) { f.successes = append(f.successes, msg) }
func (f *fakeNotifier) Failure(msg string) { f.failures = append(f.failures, msg) }

func fixedClock() time.Time {
	return time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)
}

func newTestWorkflow(sub *fakeSubmitter, not *fakeNotifier, onSucceeded func()) *Workflow {
	return NewWorkflow(sub, not, "BR-01", onSucceeded).WithClock(fixedClock)
}

func TestNewReferenceNumber_Format(t *testing.T) {
	assert.Equal(t, "REF-20260830-101500", NewReferenceNumber(fixedClock()))
}

func TestCompose_RequiresSelection(t *testing.T) {
	w := newTestWorkflow(&fakeSubmitter{}, &fakeNotifier{}, nil)

	err := w.Compose(nil)
	assert.ErrorIs(t, err, model.ErrEmptySelection)
	assert.Equal(t, StateIdle, w.State())
}

func TestCompose_GeneratesReferenceCode(t *testing.T) {
	w := newTestWorkflow(&fakeSubmitter{}, &fakeNotifier{}, nil)

	require.NoError(t, w.Compose([]string{"M1", "M2"}))
	assert.Equal(t, StateComposing, w.State())
	assert.Equal(t, "REF-20260830-101500", w.Transaction().ReferenceNumber)
	assert.Equal(t, []string{"M1", "M2"}, w.Transaction().Identifiers)

	// Cannot re-enter while composing
	assert.Error(t, w.Compose([]string{"M3"}))
}

func TestCompose_CopiesTargets(t *testing.T) {
	w := newTestWorkflow(&fakeSubmitter{}, &fakeNotifier{}, nil)
	ids := []string{"M1"}
	require.NoError(t, w.Compose(ids))

	ids[0] = "mutated"
	assert.Equal(t, []string{"M1"}, w.Transaction().Identifiers)
}

func TestSubmit_ValidationBlocksNetworkCall(t *testing.T) {
	sub := &fakeSubmitter{}
	not := &fakeNotifier{}
	w := newTestWorkflow(sub, not, nil)

	require.NoError(t, w.Compose([]string{"M1"}))
	// Name present, identity number missing
	require.NoError(t, w.SetClaimant("Jane", "", "", OutcomeClaimed, ""))

	err := w.Submit(context.Background())
	assert.ErrorIs(t, err, model.ErrMissingClaimant)
	assert.Empty(t, sub.calls, "no network effect on validation failure")
	assert.Equal(t, StateComposing, w.State())
	assert.Len(t, not.failures, 1)

	// Entered fields are intact, the user fixes and retries
	assert.Equal(t, "Jane", w.Transaction().PersonName)
}

func TestSubmit_MissingOutcomeRejected(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newTestWorkflow(sub, &fakeNotifier{}, nil)

	require.NoError(t, w.Compose([]string{"M1"}))
	require.NoError(t, w.SetClaimant("Jane", "", "123", Outcome(""), ""))

	assert.ErrorIs(t, w.Submit(context.Background()), model.ErrMissingClaimant)
	assert.Empty(t, sub.calls)
}

func TestSubmit_Success(t *testing.T) {
	sub := &fakeSubmitter{}
	not := &fakeNotifier{}
	cleared := false
	w := newTestWorkflow(sub, not, func() { cleared = true })

	require.NoError(t, w.Compose([]string{"M1", "M2"}))
	require.NoError(t, w.SetClaimant("Jane", "555-0100", "123", OutcomeClaimed, "front desk"))
	require.NoError(t, w.Submit(context.Background()))

	require.Len(t, sub.calls, 1)
	call := sub.calls[0]
	assert.Equal(t, []string{"M1", "M2"}, call.Identifiers)
	assert.Equal(t, "BR-01", call.BranchCode)
	assert.Equal(t, "REF-20260830-101500", call.ReferenceNumber)
	assert.Equal(t, "Jane", call.PersonName)
	assert.Equal(t, "claimed", call.Status)
	assert.Equal(t, "123", call.IDNumber)

	assert.True(t, cleared, "selection cleared on success")
	assert.Len(t, not.successes, 1)
	assert.Equal(t, StateIdle, w.State())
	assert.Empty(t, w.Transaction().Identifiers, "transaction not persisted past submission")
}

func TestSubmit_TransportFailureKeepsEverything(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("boom")}
	not := &fakeNotifier{}
	cleared := false
	w := newTestWorkflow(sub, not, func() { cleared = true })

	require.NoError(t, w.Compose([]string{"M1"}))
	require.NoError(t, w.SetClaimant("Jane", "", "123", OutcomeReturned, ""))

	err := w.Submit(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateComposing, w.State())
	assert.False(t, cleared)
	assert.Len(t, not.failures, 1)

	// Retry succeeds with the same reference code and fields
	sub.err = nil
	require.NoError(t, w.Submit(context.Background()))
	require.Len(t, sub.calls, 2)
	assert.Equal(t, sub.calls[0].ReferenceNumber, sub.calls[1].ReferenceNumber)
}

func TestCancel_DiscardsFieldsOnly(t *testing.T) {
	w := newTestWorkflow(&fakeSubmitter{}, &fakeNotifier{}, nil)

	require.NoError(t, w.Compose([]string{"M1"}))
	require.NoError(t, w.SetClaimant("Jane", "", "123", OutcomeClaimed, ""))
	require.NoError(t, w.Cancel())

	assert.Equal(t, StateIdle, w.State())
	assert.Empty(t, w.Transaction().PersonName)

	// Cancel only applies while composing
	assert.Error(t, w.Cancel())
}

func TestSetClaimant_OnlyWhileComposing(t *testing.T) {
	w := newTestWorkflow(&fakeSubmitter{}, &fakeNotifier{}, nil)
	assert.Error(t, w.SetClaimant("Jane", "", "123", OutcomeClaimed, ""))
}

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		Identifiers: []string{"M1"},
		PersonName:  "Jane",
		IDNumber:    "123",
		Outcome:     OutcomePicked,
	}
	require.NoError(t, valid.Validate())

	empty := valid
	empty.Identifiers = nil
	assert.ErrorIs(t, empty.Validate(), model.ErrEmptySelection)

	noName := valid
	noName.PersonName = ""
	assert.ErrorIs(t, noName.Validate(), model.ErrMissingClaimant)

	noID := valid
	noID.IDNumber = ""
	assert.ErrorIs(t, noID.Validate(), model.ErrMissingClaimant)

	badOutcome := valid
	badOutcome.Outcome = "archived"
	assert.ErrorIs(t, badOutcome.Validate(), model.ErrMissingClaimant)
}
