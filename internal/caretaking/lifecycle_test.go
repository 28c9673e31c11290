package caretaking

import (
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func futureDate(now time.Time, days int) *time.Time {
	d := now.AddDate(0, 0, days)
	return &d
}

func validSubmission(now time.Time) SubmissionInput {
	return SubmissionInput{
		RequesterID:   uuid.New(),
		PrimaryUserID: uuid.New(),
		CaretakerID:   uuid.New(),
		Reason:        model.ReasonLeave,
		EndDate:       futureDate(now, 30),
		Now:           now,
	}
}

func TestNextStatus_FromPending(t *testing.T) {
	cases := []struct {
		transition Transition
		want       string
	}{
		{TransitionApprove, model.RequestApproved},
		{TransitionReject, model.RequestRejected},
		{TransitionCancel, model.RequestCancelled},
	}

	for _, tc := range cases {
		got, err := NextStatus(model.RequestPending, tc.transition)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestNextStatus_TerminalStatuses(t *testing.T) {
	terminal := []string{model.RequestApproved, model.RequestRejected, model.RequestCancelled}
	transitions := []Transition{TransitionApprove, TransitionReject, TransitionCancel}

	for _, status := range terminal {
		for _, tr := range transitions {
			_, err := NextStatus(status, tr)
			assert.ErrorIs(t, err, ErrInvalidTransition,
				"no transition may leave %s", status)
		}
	}
}

func TestNextStatus_UnknownTransition(t *testing.T) {
	_, err := NextStatus(model.RequestPending, Transition("escalate"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidate_FieldRules(t *testing.T) {
	now := time.Now()

	t.Run("unknown reason", func(t *testing.T) {
		in := validSubmission(now)
		in.Reason = "sabbatical"
		err := in.Validate()
		ve, ok := AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "reason", ve.Field)
	})

	t.Run("missing caretaker", func(t *testing.T) {
		in := validSubmission(now)
		in.CaretakerID = uuid.Nil
		err := in.Validate()
		ve, ok := AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "caretaker", ve.Field)
	})

	t.Run("end date required for leave", func(t *testing.T) {
		in := validSubmission(now)
		in.EndDate = nil
		err := in.Validate()
		ve, ok := AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "end_date", ve.Field)
	})

	t.Run("resignation is open ended", func(t *testing.T) {
		in := validSubmission(now)
		in.Reason = model.ReasonResignation
		in.EndDate = nil
		assert.NoError(t, in.Validate())
	})

	t.Run("end date in the past", func(t *testing.T) {
		in := validSubmission(now)
		past := now.AddDate(0, 0, -1)
		in.EndDate = &past
		err := in.Validate()
		ve, ok := AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "end_date", ve.Field)
	})

	t.Run("end date exactly now is not future", func(t *testing.T) {
		in := validSubmission(now)
		in.EndDate = &now
		err := in.Validate()
		_, ok := AsValidation(err)
		assert.True(t, ok)
	})

	t.Run("notes required for other", func(t *testing.T) {
		in := validSubmission(now)
		in.Reason = model.ReasonOther
		in.Notes = ""
		err := in.Validate()
		ve, ok := AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "notes", ve.Field)
	})

	t.Run("other with notes passes", func(t *testing.T) {
		in := validSubmission(now)
		in.Reason = model.ReasonOther
		in.Notes = "medical appointment cover"
		assert.NoError(t, in.Validate())
	})
}

func TestCheckSubmission_ChainConflict(t *testing.T) {
	now := time.Now()
	in := validSubmission(now)

	// A currently caretakes for B; proposing B as A's caretaker closes a
	// cycle and must be refused.
	guards := SubmissionGuards{
		Excluded: map[uuid.UUID]bool{in.CaretakerID: true},
	}

	assert.ErrorIs(t, CheckSubmission(in, guards), ErrChainConflict)
}

func TestCheckSubmission_CaretakerAlreadyDelegating(t *testing.T) {
	now := time.Now()
	in := validSubmission(now)

	guards := SubmissionGuards{CaretakerHasActive: true}

	assert.ErrorIs(t, CheckSubmission(in, guards), ErrChainConflict)
}

func TestCheckSubmission_DuplicateActiveDelegation(t *testing.T) {
	now := time.Now()
	in := validSubmission(now)

	guards := SubmissionGuards{PrimaryHasActive: true}

	assert.ErrorIs(t, CheckSubmission(in, guards), ErrDuplicateActiveDelegation)
}

func TestCheckSubmission_ValidationBeforeGuards(t *testing.T) {
	now := time.Now()
	in := validSubmission(now)
	in.EndDate = nil

	guards := SubmissionGuards{PrimaryHasActive: true}

	_, ok := AsValidation(CheckSubmission(in, guards))
	assert.True(t, ok, "field validation surfaces before guard failures")
}

func TestCheckSubmission_Passes(t *testing.T) {
	now := time.Now()
	in := validSubmission(now)

	assert.NoError(t, CheckSubmission(in, SubmissionGuards{}))
}

func TestMaterialize_CopiesRequestFields(t *testing.T) {
	now := time.Now()
	end := now.AddDate(0, 0, 14)
	req := &model.DelegationRequest{
		ID:            uuid.New(),
		RequesterID:   uuid.New(),
		PrimaryUserID: uuid.New(),
		CaretakerID:   uuid.New(),
		Reason:        model.ReasonLeave,
		EndDate:       &end,
		Notes:         "conference travel",
		Status:        model.RequestPending,
	}

	d := Materialize(req, now)

	assert.Equal(t, req.PrimaryUserID, d.PrimaryUserID)
	assert.Equal(t, req.CaretakerID, d.CaretakerID)
	assert.Equal(t, req.Reason, d.Reason)
	assert.Equal(t, req.EndDate, d.EndDate)
	assert.Equal(t, req.Notes, d.Notes)
	assert.Equal(t, req.ID, d.RequestID)
	assert.Equal(t, now, d.AssignedAt)
}
