package caretaking

import (
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Walks the full delegation flow over in-memory state: submission,
// acceptance by the caretaker, materialization, and the duplicate guard
// blocking a second request until the delegation is removed.
func TestDelegationFlow(t *testing.T) {
	now := time.Now()
	end := now.AddDate(0, 0, 30)

	userA := Viewer{ID: uuid.New()} // primary user, not superuser
	userB := Viewer{ID: uuid.New()} // proposed caretaker

	var registry []model.ActiveDelegation

	submit := SubmissionInput{
		RequesterID:   userA.ID,
		PrimaryUserID: userA.ID,
		CaretakerID:   userB.ID,
		Reason:        model.ReasonLeave,
		EndDate:       &end,
		Now:           now,
	}
	guards := SubmissionGuards{
		Excluded:         ExclusionSet(ChainUser{ID: userA.ID}, nil),
		PrimaryHasActive: HasActiveDelegation(registry, userA.ID, now),
	}
	require.NoError(t, CheckSubmission(submit, guards))

	req := &model.DelegationRequest{
		ID:            uuid.New(),
		RequesterID:   submit.RequesterID,
		PrimaryUserID: submit.PrimaryUserID,
		CaretakerID:   submit.CaretakerID,
		Reason:        submit.Reason,
		EndDate:       submit.EndDate,
		Status:        model.RequestPending,
		CreatedAt:     now,
	}

	// B sees approve/reject, A sees cancel only.
	actionsForB := AvailableActions(ClassifyViewer(userB, req), req.Status)
	assert.True(t, actionsForB[ActionApprove])
	assert.True(t, actionsForB[ActionReject])
	assert.Len(t, actionsForB, 2)

	actionsForA := AvailableActions(ClassifyViewer(userA, req), req.Status)
	assert.True(t, actionsForA[ActionCancel])
	assert.Len(t, actionsForA, 1)

	// B accepts.
	action, err := Authorize(ClassifyViewer(userB, req), req.Status, TransitionApprove)
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, action, "caretaker acceptance is not an override")

	next, err := NextStatus(req.Status, TransitionApprove)
	require.NoError(t, err)
	req.Status = next
	assert.Equal(t, model.RequestApproved, req.Status)

	delegation := Materialize(req, now)
	assert.Equal(t, userA.ID, delegation.PrimaryUserID)
	assert.Equal(t, userB.ID, delegation.CaretakerID)
	registry = append(registry, delegation)

	// A stale second approval attempt fails safely.
	_, err = NextStatus(req.Status, TransitionApprove)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Another submission naming A as primary user is now blocked.
	second := submit
	second.CaretakerID = uuid.New()
	guards = SubmissionGuards{
		Excluded:         ExclusionSet(ChainUser{ID: userA.ID}, nil),
		PrimaryHasActive: HasActiveDelegation(registry, userA.ID, now),
	}
	assert.ErrorIs(t, CheckSubmission(second, guards), ErrDuplicateActiveDelegation)

	// Removing the delegation clears the guard.
	registry = registry[:0]
	guards.PrimaryHasActive = HasActiveDelegation(registry, userA.ID, now)
	assert.NoError(t, CheckSubmission(second, guards))
}

// An administrator may approve a request they are not a party to; the
// resulting action is the distinguishable override.
func TestDelegationFlow_AdminOverride(t *testing.T) {
	now := time.Now()
	end := now.AddDate(0, 0, 7)

	admin := Viewer{ID: uuid.New(), IsSuperuser: true}
	req := &model.DelegationRequest{
		ID:            uuid.New(),
		RequesterID:   uuid.New(),
		PrimaryUserID: uuid.New(),
		CaretakerID:   uuid.New(),
		Reason:        model.ReasonLeave,
		EndDate:       &end,
		Status:        model.RequestPending,
	}

	role := ClassifyViewer(admin, req)
	assert.Equal(t, RoleAdminOnly, role.Kind())

	action, err := Authorize(role, req.Status, TransitionApprove)
	require.NoError(t, err)
	assert.Equal(t, ActionApproveOverride, action)

	next, err := NextStatus(req.Status, TransitionApprove)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, next)
}
