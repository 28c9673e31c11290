package caretaking

import (
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
)

// Transition identifies a lifecycle action against an existing request.
// Submission is not a Transition: it creates the request in pending.
type Transition string

const (
	TransitionApprove Transition = "approve"
	TransitionReject  Transition = "reject"
	TransitionCancel  Transition = "cancel"
)

// Every transition has exactly one allowed source status; approved,
// rejected and cancelled are terminal.
var transitionTargets = map[Transition]string{
	TransitionApprove: model.RequestApproved,
	TransitionReject:  model.RequestRejected,
	TransitionCancel:  model.RequestCancelled,
}

// NextStatus returns the status a request in current moves to under t.
// Any attempt from a status other than pending, or an unknown transition,
// fails with ErrInvalidTransition and must leave the request untouched.
func NextStatus(current string, t Transition) (string, error) {
	target, ok := transitionTargets[t]
	if !ok || current != model.RequestPending {
		return "", ErrInvalidTransition
	}
	return target, nil
}

// SubmissionInput carries the fields of a new delegation request.
type SubmissionInput struct {
	RequesterID   uuid.UUID
	PrimaryUserID uuid.UUID
	CaretakerID   uuid.UUID
	Reason        string
	EndDate       *time.Time
	Notes         string
	Now           time.Time
}

// Validate enforces the field contract: a known reason, an end date that
// is present unless the reason is resignation and strictly in the future
// when present, and non-empty notes when the reason is "other".
func (in SubmissionInput) Validate() error {
	switch in.Reason {
	case model.ReasonLeave, model.ReasonResignation, model.ReasonOther:
	default:
		return &ValidationError{Field: "reason", Message: "must be one of leave, resignation, other"}
	}

	if in.CaretakerID == uuid.Nil {
		return &ValidationError{Field: "caretaker", Message: "exactly one caretaker is required"}
	}

	if in.EndDate == nil {
		if in.Reason != model.ReasonResignation {
			return &ValidationError{Field: "end_date", Message: "required unless reason is resignation"}
		}
	} else if !in.EndDate.After(in.Now) {
		return &ValidationError{Field: "end_date", Message: "must be in the future"}
	}

	if in.Reason == model.ReasonOther && in.Notes == "" {
		return &ValidationError{Field: "notes", Message: "required when reason is other"}
	}

	return nil
}

// SubmissionGuards carries the already-fetched facts the submit guard
// needs; the caller assembles them from the registry and pending requests.
type SubmissionGuards struct {
	// Excluded is chain(requester) ∪ requesters of pending incoming
	// requests targeting the requester, per ExclusionSet.
	Excluded map[uuid.UUID]bool
	// PrimaryHasActive is true when the primary user already has a
	// non-expired active delegation.
	PrimaryHasActive bool
	// CaretakerHasActive is true when the proposed caretaker is
	// themselves the primary user of a non-expired delegation; approving
	// would chain two delegations.
	CaretakerHasActive bool
}

// CheckSubmission runs field validation and the submission guards in
// order, returning the first failure. Validation failures surface before
// guard failures so the caller can render inline field errors.
func CheckSubmission(in SubmissionInput, g SubmissionGuards) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if g.Excluded[in.CaretakerID] {
		return ErrChainConflict
	}
	if g.CaretakerHasActive {
		return ErrChainConflict
	}
	if g.PrimaryHasActive {
		return ErrDuplicateActiveDelegation
	}
	return nil
}

// Materialize builds the ActiveDelegation an approved request produces.
// The approval transaction must re-check the duplicate-active guard
// against current data before persisting the result.
func Materialize(req *model.DelegationRequest, now time.Time) model.ActiveDelegation {
	return model.ActiveDelegation{
		PrimaryUserID: req.PrimaryUserID,
		CaretakerID:   req.CaretakerID,
		Reason:        req.Reason,
		EndDate:       req.EndDate,
		Notes:         req.Notes,
		RequestID:     req.ID,
		AssignedAt:    now,
	}
}
