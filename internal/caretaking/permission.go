package caretaking

import (
	"backend/internal/model"

	"github.com/google/uuid"
)

// Viewer is the identity every permission computation receives explicitly.
// The superuser flag travels with the value; nothing is read from ambient
// state, which keeps the resolver pure.
type Viewer struct {
	ID          uuid.UUID
	IsSuperuser bool
}

// ViewerRole is the viewer's relationship to one request. Outgoing and
// incoming are mutually exclusive (a requester proposing themselves is
// outgoing, not incoming); the superuser flag composes with either.
type ViewerRole struct {
	IsOutgoing  bool
	IsIncoming  bool
	IsSuperuser bool
}

// RoleKind is the tagged classification of a ViewerRole, in precedence
// order: party roles first, then administrator-at-large.
type RoleKind string

const (
	RoleOutgoing   RoleKind = "outgoing"
	RoleIncoming   RoleKind = "incoming"
	RoleAdminOnly  RoleKind = "admin_only"
	RoleUninvolved RoleKind = "uninvolved"
)

// Kind collapses the role flags into a single tag.
func (r ViewerRole) Kind() RoleKind {
	switch {
	case r.IsOutgoing:
		return RoleOutgoing
	case r.IsIncoming:
		return RoleIncoming
	case r.IsSuperuser:
		return RoleAdminOnly
	default:
		return RoleUninvolved
	}
}

// ClassifyViewer computes the viewer's role for a request. Outgoing is
// checked first; incoming requires not being the requester, which guards
// the degenerate case where requester and caretaker share an id.
func ClassifyViewer(v Viewer, req *model.DelegationRequest) ViewerRole {
	role := ViewerRole{IsSuperuser: v.IsSuperuser}
	role.IsOutgoing = v.ID == req.RequesterID
	role.IsIncoming = v.ID == req.CaretakerID && !role.IsOutgoing
	return role
}

// Action is a viewer-invocable operation on a request. Override approval
// is distinct from ordinary acceptance so the two paths stay
// distinguishable in payloads and audit records.
type Action string

const (
	ActionApprove         Action = "approve"
	ActionApproveOverride Action = "approve_override"
	ActionReject          Action = "reject"
	ActionCancel          Action = "cancel"
)

// AvailableActions returns the actions the role may invoke on a request
// in the given status. Only pending requests have any; everything else is
// view-only, which the UI presents as an explanatory state, not an error.
func AvailableActions(role ViewerRole, status string) map[Action]bool {
	actions := make(map[Action]bool)
	if status != model.RequestPending {
		return actions
	}

	switch {
	case role.IsIncoming:
		actions[ActionApprove] = true
		actions[ActionReject] = true
	case role.IsOutgoing && !role.IsSuperuser:
		actions[ActionCancel] = true
	case role.IsOutgoing && role.IsSuperuser:
		actions[ActionApproveOverride] = true
		actions[ActionCancel] = true
	case role.IsSuperuser:
		// Administrator not otherwise party to the request may still
		// intervene.
		actions[ActionApproveOverride] = true
		actions[ActionCancel] = true
	}
	return actions
}

// Authorize checks that the role may invoke t on a request in the given
// status and names the effective action (ordinary approval vs. admin
// override). Wrong-status attempts fail with ErrInvalidTransition before
// any role check; a role lacking the action gets ErrUnauthorized.
func Authorize(role ViewerRole, status string, t Transition) (Action, error) {
	if _, err := NextStatus(status, t); err != nil {
		return "", err
	}

	actions := AvailableActions(role, status)
	switch t {
	case TransitionApprove:
		if actions[ActionApprove] {
			return ActionApprove, nil
		}
		if actions[ActionApproveOverride] {
			return ActionApproveOverride, nil
		}
	case TransitionReject:
		if actions[ActionReject] {
			return ActionReject, nil
		}
	case TransitionCancel:
		if actions[ActionCancel] {
			return ActionCancel, nil
		}
	}
	return "", ErrUnauthorized
}

// CanRemove reports whether the viewer may remove an active delegation:
// the caretaker themselves (self-service withdrawal) or an administrator.
func CanRemove(v Viewer, d model.ActiveDelegation) bool {
	return v.IsSuperuser || v.ID == d.CaretakerID
}
