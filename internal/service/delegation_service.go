package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"backend/internal/cache"
	"backend/internal/caretaking"
	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

// SubmitRequestDTO is the submission payload. Caretakers is a one-element
// array for API compatibility with the task payload the dashboard already
// speaks; semantically there is exactly one caretaker.
type SubmitRequestDTO struct {
	PrimaryUserID      string     `json:"primary_user_id" binding:"required"`
	Caretakers         []string   `json:"caretakers" binding:"required"`
	Reason             string     `json:"reason" binding:"required,oneof=leave resignation other"`
	EndDate            *time.Time `json:"end_date"`
	Notes              string     `json:"notes"`
	ApproveImmediately bool       `json:"approve_immediately"`
}

type UserSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	IsSuperuser bool   `json:"is_superuser"`
}

type DelegationRequestResponse struct {
	ID                 string       `json:"id"`
	Requester          *UserSummary `json:"requester,omitempty"`
	PrimaryUser        *UserSummary `json:"primary_user,omitempty"`
	Caretakers         []UserSummary `json:"caretakers"`
	Reason             string       `json:"reason"`
	EndDate            *string      `json:"end_date"`
	Notes              string       `json:"notes"`
	Status             string       `json:"status"`
	ApproveImmediately bool         `json:"approve_immediately"`
	ActionedBy         *string      `json:"actioned_by"`
	ActionedAt         *string      `json:"actioned_at"`
	CreatedAt          string       `json:"created_at"`
	// AvailableActions is computed for the requesting viewer, empty for a
	// view-only request.
	AvailableActions []string `json:"available_actions"`
}

type ActiveDelegationResponse struct {
	ID          string       `json:"id"`
	PrimaryUser *UserSummary `json:"primary_user,omitempty"`
	Caretaker   *UserSummary `json:"caretaker,omitempty"`
	Reason      string       `json:"reason"`
	EndDate     *string      `json:"end_date"`
	Notes       string       `json:"notes"`
	AssignedAt  string       `json:"assigned_at"`
	Expired     bool         `json:"expired"`
}

// ExtendDelegationDTO carries the replacement end date for an active
// delegation.
type ExtendDelegationDTO struct {
	EndDate time.Time `json:"end_date" binding:"required"`
}

// CaretakerStatusResponse is the combined view the account page renders:
// the viewer's outgoing pending request, any pending request naming them
// as caretaker, their current delegation if one exists, and the users
// they themselves stand in for.
type CaretakerStatusResponse struct {
	OutgoingRequest  *DelegationRequestResponse `json:"outgoing_request"`
	IncomingRequest  *DelegationRequestResponse `json:"incoming_request"`
	ActiveDelegation *ActiveDelegationResponse  `json:"active_delegation"`
	Caretakees       []ActiveDelegationResponse `json:"caretakees"`
}

// --- Interface ---

type DelegationService interface {
	SubmitRequest(ctx context.Context, req SubmitRequestDTO, actor caretaking.Viewer) (DelegationRequestResponse, error)
	ApplyTransition(ctx context.Context, requestID string, t caretaking.Transition, actor caretaking.Viewer) (DelegationRequestResponse, error)
	ExtendActiveDelegation(ctx context.Context, delegationID string, newEndDate time.Time, actor caretaking.Viewer) (ActiveDelegationResponse, error)
	RemoveActiveDelegation(ctx context.Context, delegationID string, actor caretaking.Viewer) error
	ListRequests(ctx context.Context, actor caretaking.Viewer, direction, status string, page, limit int) ([]DelegationRequestResponse, int64, error)
	ListAdminTasks(ctx context.Context, actor caretaking.Viewer, page, limit int) ([]DelegationRequestResponse, int64, error)
	CheckCaretakerStatus(ctx context.Context, actor caretaking.Viewer) (CaretakerStatusResponse, error)
	EligibleCaretakers(ctx context.Context, actor caretaking.Viewer, search string, page, limit int) ([]UserSummary, int64, error)
}

type delegationService struct {
	delegationRepo repository.DelegationRepository
	userRepo       repository.UserRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	hub            *ws.Hub
	invalidator    *cache.Invalidator
}

func NewDelegationService(
	delegationRepo repository.DelegationRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
	invalidator *cache.Invalidator,
) DelegationService {
	return &delegationService{
		delegationRepo: delegationRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		hub:            hub,
		invalidator:    invalidator,
	}
}

// --- Implementation ---

func (s *delegationService) SubmitRequest(ctx context.Context, req SubmitRequestDTO, actor caretaking.Viewer) (DelegationRequestResponse, error) {
	primaryUserID, err := uuid.Parse(req.PrimaryUserID)
	if err != nil {
		return DelegationRequestResponse{}, &caretaking.ValidationError{Field: "primary_user_id", Message: "invalid id"}
	}

	if len(req.Caretakers) != 1 {
		return DelegationRequestResponse{}, &caretaking.ValidationError{Field: "caretakers", Message: "exactly one caretaker is required"}
	}
	caretakerID, err := uuid.Parse(req.Caretakers[0])
	if err != nil {
		return DelegationRequestResponse{}, &caretaking.ValidationError{Field: "caretakers", Message: "invalid caretaker id"}
	}

	now := time.Now()
	input := caretaking.SubmissionInput{
		RequesterID:   actor.ID,
		PrimaryUserID: primaryUserID,
		CaretakerID:   caretakerID,
		Reason:        req.Reason,
		EndDate:       req.EndDate,
		Notes:         req.Notes,
		Now:           now,
	}

	// The admin fast-path is only honored for superusers; anyone else's
	// flag is ignored rather than rejected.
	overrideNow := req.ApproveImmediately && actor.IsSuperuser

	request := &model.DelegationRequest{
		RequesterID:        actor.ID,
		PrimaryUserID:      primaryUserID,
		CaretakerID:        caretakerID,
		Reason:             req.Reason,
		EndDate:            req.EndDate,
		Notes:              req.Notes,
		Status:             model.RequestPending,
		ApproveImmediately: overrideNow,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.userRepo.GetByID(txCtx, primaryUserID.String()); err != nil {
			return fmt.Errorf("primary user not found: %w", err)
		}
		if _, err := s.userRepo.GetByID(txCtx, caretakerID.String()); err != nil {
			return fmt.Errorf("caretaker not found: %w", err)
		}

		guards, err := s.buildSubmissionGuards(txCtx, primaryUserID, caretakerID, now)
		if err != nil {
			return err
		}
		if err := caretaking.CheckSubmission(input, guards); err != nil {
			return err
		}

		if err := s.delegationRepo.CreateRequest(txCtx, request); err != nil {
			return fmt.Errorf("failed to create delegation request: %w", err)
		}

		if err := s.audit(txCtx, &actor.ID, model.ActionSubmitDelegationRequest, request, map[string]interface{}{
			"primary_user_id": primaryUserID.String(),
			"caretaker_id":    caretakerID.String(),
			"reason":          req.Reason,
		}); err != nil {
			return err
		}

		if overrideNow {
			return s.approveInTx(txCtx, request, actor, caretaking.ActionApproveOverride, now)
		}
		return nil
	})
	if err != nil {
		return DelegationRequestResponse{}, err
	}

	loaded, err := s.delegationRepo.FindRequestByID(ctx, request.ID)
	if err != nil {
		return DelegationRequestResponse{}, fmt.Errorf("failed to reload delegation request: %w", err)
	}

	s.hub.Notify("delegation_request_submitted", toRequestResponse(loaded, caretaking.ViewerRole{}))
	s.invalidate(ctx, loaded)

	return toRequestResponse(loaded, caretaking.ClassifyViewer(actor, loaded)), nil
}

func (s *delegationService) ApplyTransition(ctx context.Context, requestID string, t caretaking.Transition, actor caretaking.Viewer) (DelegationRequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return DelegationRequestResponse{}, &caretaking.ValidationError{Field: "id", Message: "invalid request id"}
	}

	var auditAction string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.delegationRepo.FindRequestByIDForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("delegation request not found: %w", err)
		}

		role := caretaking.ClassifyViewer(actor, request)
		action, err := caretaking.Authorize(role, request.Status, t)
		if err != nil {
			return err
		}

		now := time.Now()
		switch t {
		case caretaking.TransitionApprove:
			if err := s.approveInTx(txCtx, request, actor, action, now); err != nil {
				return err
			}
		default:
			next, err := caretaking.NextStatus(request.Status, t)
			if err != nil {
				return err
			}
			request.Status = next
			request.ActionedBy = &actor.ID
			request.ActionedAt = &now
			if err := s.delegationRepo.UpdateRequest(txCtx, request); err != nil {
				return fmt.Errorf("failed to update delegation request: %w", err)
			}
		}

		auditAction = auditActionFor(action)
		if action != caretaking.ActionApprove && action != caretaking.ActionApproveOverride {
			// Approvals are audited inside approveInTx together with the
			// materialized delegation id.
			if err := s.audit(txCtx, &actor.ID, auditAction, request, map[string]interface{}{
				"status": request.Status,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return DelegationRequestResponse{}, err
	}

	loaded, err := s.delegationRepo.FindRequestByID(ctx, id)
	if err != nil {
		return DelegationRequestResponse{}, fmt.Errorf("failed to reload delegation request: %w", err)
	}

	s.hub.Notify("delegation_request_"+loaded.Status, toRequestResponse(loaded, caretaking.ViewerRole{}))
	s.invalidate(ctx, loaded)

	return toRequestResponse(loaded, caretaking.ClassifyViewer(actor, loaded)), nil
}

// ExtendActiveDelegation replaces the delegation's end date. The same
// parties who may remove a delegation may extend it, and the new date can
// only push the end later, never pull it earlier.
func (s *delegationService) ExtendActiveDelegation(ctx context.Context, delegationID string, newEndDate time.Time, actor caretaking.Viewer) (ActiveDelegationResponse, error) {
	id, err := uuid.Parse(delegationID)
	if err != nil {
		return ActiveDelegationResponse{}, &caretaking.ValidationError{Field: "id", Message: "invalid delegation id"}
	}

	var extended *model.ActiveDelegation
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		delegation, err := s.delegationRepo.FindActiveDelegationByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("active delegation not found: %w", err)
		}

		if !caretaking.CanRemove(actor, *delegation) {
			return caretaking.ErrUnauthorized
		}

		now := time.Now()
		if err := caretaking.ValidateExtension(*delegation, newEndDate, now); err != nil {
			return err
		}

		previous := "open-ended"
		if delegation.EndDate != nil {
			previous = delegation.EndDate.Format(time.RFC3339)
		}

		delegation.EndDate = &newEndDate
		if err := s.delegationRepo.UpdateActiveDelegation(txCtx, delegation); err != nil {
			return fmt.Errorf("failed to extend active delegation: %w", err)
		}
		extended = delegation

		details, _ := json.Marshal(map[string]interface{}{
			"primary_user_id":   delegation.PrimaryUserID.String(),
			"caretaker_id":      delegation.CaretakerID.String(),
			"previous_end_date": previous,
			"new_end_date":      newEndDate.Format(time.RFC3339),
		})
		entry := &model.AuditLog{
			UserID:   &actor.ID,
			Action:   model.ActionExtendActiveDelegation,
			EntityID: delegation.ID.String(),
			Details:  string(details),
		}
		if err := s.auditRepo.Log(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ActiveDelegationResponse{}, err
	}

	resp := toDelegationResponse(extended, time.Now())
	s.hub.Notify("active_delegation_extended", resp)
	if err := s.invalidator.ForRemoval(ctx, extended.PrimaryUserID, extended.CaretakerID); err != nil {
		log.Println("cache invalidation failed:", err)
	}
	return resp, nil
}

func (s *delegationService) RemoveActiveDelegation(ctx context.Context, delegationID string, actor caretaking.Viewer) error {
	id, err := uuid.Parse(delegationID)
	if err != nil {
		return &caretaking.ValidationError{Field: "id", Message: "invalid delegation id"}
	}

	var removed *model.ActiveDelegation
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		delegation, err := s.delegationRepo.FindActiveDelegationByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("active delegation not found: %w", err)
		}

		if !caretaking.CanRemove(actor, *delegation) {
			return caretaking.ErrUnauthorized
		}

		if err := s.delegationRepo.DeleteActiveDelegation(txCtx, delegation.ID); err != nil {
			return fmt.Errorf("failed to remove active delegation: %w", err)
		}
		removed = delegation

		details, _ := json.Marshal(map[string]interface{}{
			"primary_user_id": delegation.PrimaryUserID.String(),
			"caretaker_id":    delegation.CaretakerID.String(),
		})
		entry := &model.AuditLog{
			UserID:   &actor.ID,
			Action:   model.ActionRemoveActiveDelegation,
			EntityID: delegation.ID.String(),
			Details:  string(details),
		}
		if err := s.auditRepo.Log(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.hub.Notify("active_delegation_removed", map[string]string{
		"id":              removed.ID.String(),
		"primary_user_id": removed.PrimaryUserID.String(),
		"caretaker_id":    removed.CaretakerID.String(),
	})
	if err := s.invalidator.ForRemoval(ctx, removed.PrimaryUserID, removed.CaretakerID); err != nil {
		log.Println("cache invalidation failed:", err)
	}
	return nil
}

func (s *delegationService) ListRequests(ctx context.Context, actor caretaking.Viewer, direction, status string, page, limit int) ([]DelegationRequestResponse, int64, error) {
	requests, total, err := s.delegationRepo.ListRequests(ctx, actor.ID, direction, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch delegation requests: %w", err)
	}

	result := make([]DelegationRequestResponse, 0, len(requests))
	for i := range requests {
		req := &requests[i]
		result = append(result, toRequestResponse(req, caretaking.ClassifyViewer(actor, req)))
	}
	return result, total, nil
}

func (s *delegationService) ListAdminTasks(ctx context.Context, actor caretaking.Viewer, page, limit int) ([]DelegationRequestResponse, int64, error) {
	if !actor.IsSuperuser {
		return nil, 0, caretaking.ErrUnauthorized
	}

	requests, total, err := s.delegationRepo.ListPendingRequests(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch admin tasks: %w", err)
	}

	result := make([]DelegationRequestResponse, 0, len(requests))
	for i := range requests {
		req := &requests[i]
		result = append(result, toRequestResponse(req, caretaking.ClassifyViewer(actor, req)))
	}
	return result, total, nil
}

func (s *delegationService) CheckCaretakerStatus(ctx context.Context, actor caretaking.Viewer) (CaretakerStatusResponse, error) {
	var status CaretakerStatusResponse

	outgoing, _, err := s.delegationRepo.ListRequests(ctx, actor.ID, repository.DirectionOutgoing, model.RequestPending, 1, 1)
	if err != nil {
		return status, fmt.Errorf("failed to fetch outgoing request: %w", err)
	}
	if len(outgoing) > 0 {
		resp := toRequestResponse(&outgoing[0], caretaking.ClassifyViewer(actor, &outgoing[0]))
		status.OutgoingRequest = &resp
	}

	incoming, _, err := s.delegationRepo.ListRequests(ctx, actor.ID, repository.DirectionIncoming, model.RequestPending, 1, 1)
	if err != nil {
		return status, fmt.Errorf("failed to fetch incoming request: %w", err)
	}
	if len(incoming) > 0 && incoming[0].RequesterID != actor.ID {
		resp := toRequestResponse(&incoming[0], caretaking.ClassifyViewer(actor, &incoming[0]))
		status.IncomingRequest = &resp
	}

	now := time.Now()
	delegation, err := s.delegationRepo.FindActiveDelegationByPrimaryUser(ctx, actor.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return status, fmt.Errorf("failed to fetch active delegation: %w", err)
	}
	if delegation != nil {
		resp := toDelegationResponse(delegation, now)
		status.ActiveDelegation = &resp
	}

	caretakees, err := s.delegationRepo.ListDelegationsByCaretaker(ctx, actor.ID)
	if err != nil {
		return status, fmt.Errorf("failed to fetch caretakees: %w", err)
	}
	status.Caretakees = make([]ActiveDelegationResponse, 0, len(caretakees))
	for i := range caretakees {
		status.Caretakees = append(status.Caretakees, toDelegationResponse(&caretakees[i], now))
	}

	return status, nil
}

// EligibleCaretakers lists users the actor may propose as caretaker,
// filtering the exclusion set the submission guard would reject anyway:
// the actor's own chain, requesters of pending incoming requests, and
// users who already have a caretaker themselves. The exclusion filter
// runs before pagination so every page is full and the total counts
// eligible users only.
func (s *delegationService) EligibleCaretakers(ctx context.Context, actor caretaking.Viewer, search string, page, limit int) ([]UserSummary, int64, error) {
	users, err := s.userRepo.ListAll(ctx, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	delegations, err := s.delegationRepo.ListAllActiveDelegations(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch delegations: %w", err)
	}
	pendingRequesters, err := s.delegationRepo.PendingIncomingRequesters(ctx, actor.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch pending requesters: %w", err)
	}

	now := time.Now()
	excluded := caretaking.ResolveChainFromEdges(actor.ID, chainEdges(delegations, now))
	for _, id := range pendingRequesters {
		excluded[id] = true
	}

	eligible := make([]UserSummary, 0, len(users))
	for i := range users {
		u := &users[i]
		if excluded[u.ID] || caretaking.HasActiveDelegation(delegations, u.ID, now) {
			continue
		}
		eligible = append(eligible, toUserSummary(u))
	}

	total := int64(len(eligible))
	start := (page - 1) * limit
	if start >= len(eligible) {
		return []UserSummary{}, total, nil
	}
	end := start + limit
	if end > len(eligible) {
		end = len(eligible)
	}
	return eligible[start:end], total, nil
}

// --- Internals ---

// buildSubmissionGuards assembles the guard facts from current data
// inside the submission transaction.
func (s *delegationService) buildSubmissionGuards(ctx context.Context, primaryUserID, caretakerID uuid.UUID, now time.Time) (caretaking.SubmissionGuards, error) {
	var guards caretaking.SubmissionGuards

	delegations, err := s.delegationRepo.ListAllActiveDelegations(ctx)
	if err != nil {
		return guards, fmt.Errorf("failed to fetch delegations: %w", err)
	}
	pendingRequesters, err := s.delegationRepo.PendingIncomingRequesters(ctx, primaryUserID)
	if err != nil {
		return guards, fmt.Errorf("failed to fetch pending requesters: %w", err)
	}

	excluded := caretaking.ResolveChainFromEdges(primaryUserID, chainEdges(delegations, now))
	for _, id := range pendingRequesters {
		excluded[id] = true
	}

	guards.Excluded = excluded
	guards.PrimaryHasActive = caretaking.HasActiveDelegation(delegations, primaryUserID, now)
	guards.CaretakerHasActive = caretaking.HasActiveDelegation(delegations, caretakerID, now)
	return guards, nil
}

// approveInTx applies the approved status and materializes the active
// delegation, re-checking the duplicate guard against current rows. An
// expired leftover row for the same primary user is swept first so the
// unique index does not block a legitimate approval.
func (s *delegationService) approveInTx(ctx context.Context, request *model.DelegationRequest, actor caretaking.Viewer, action caretaking.Action, now time.Time) error {
	next, err := caretaking.NextStatus(request.Status, caretaking.TransitionApprove)
	if err != nil {
		return err
	}

	existing, err := s.delegationRepo.FindActiveDelegationByPrimaryUser(ctx, request.PrimaryUserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check existing delegation: %w", err)
	}
	if existing != nil {
		if !caretaking.IsExpired(*existing, now) {
			return caretaking.ErrDuplicateActiveDelegation
		}
		if err := s.delegationRepo.DeleteActiveDelegation(ctx, existing.ID); err != nil {
			return fmt.Errorf("failed to sweep expired delegation: %w", err)
		}
	}

	request.Status = next
	request.ActionedBy = &actor.ID
	request.ActionedAt = &now
	if err := s.delegationRepo.UpdateRequest(ctx, request); err != nil {
		return fmt.Errorf("failed to update delegation request: %w", err)
	}

	delegation := caretaking.Materialize(request, now)
	if err := s.delegationRepo.CreateActiveDelegation(ctx, &delegation); err != nil {
		return fmt.Errorf("failed to create active delegation: %w", err)
	}

	return s.audit(ctx, &actor.ID, auditActionFor(action), request, map[string]interface{}{
		"delegation_id":   delegation.ID.String(),
		"primary_user_id": request.PrimaryUserID.String(),
		"caretaker_id":    request.CaretakerID.String(),
	})
}

func (s *delegationService) audit(ctx context.Context, userID *uuid.UUID, action string, request *model.DelegationRequest, payload map[string]interface{}) error {
	details, _ := json.Marshal(payload)
	entry := &model.AuditLog{
		UserID:   userID,
		Action:   action,
		EntityID: request.ID.String(),
		Details:  string(details),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// invalidate clears cached reads after a committed write; failures are
// logged, never propagated, since the write already happened.
func (s *delegationService) invalidate(ctx context.Context, request *model.DelegationRequest) {
	if err := s.invalidator.ForWrite(ctx, request.RequesterID, request.PrimaryUserID, request.CaretakerID); err != nil {
		log.Println("cache invalidation failed:", err)
	}
}

func auditActionFor(action caretaking.Action) string {
	switch action {
	case caretaking.ActionApprove:
		return model.ActionApproveDelegationRequest
	case caretaking.ActionApproveOverride:
		return model.ActionAdminOverrideApprove
	case caretaking.ActionReject:
		return model.ActionRejectDelegationRequest
	default:
		return model.ActionCancelDelegationRequest
	}
}

// chainEdges builds the caretaker→primary adjacency list the chain
// resolver walks, skipping expired rows.
func chainEdges(delegations []model.ActiveDelegation, now time.Time) caretaking.Edges {
	edges := make(caretaking.Edges, len(delegations))
	for _, d := range delegations {
		if caretaking.IsExpired(d, now) {
			continue
		}
		edges[d.CaretakerID] = append(edges[d.CaretakerID], d.PrimaryUserID)
	}
	return edges
}

// --- Helpers ---

func toUserSummary(u *model.User) UserSummary {
	return UserSummary{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
	}
}

func toRequestResponse(req *model.DelegationRequest, role caretaking.ViewerRole) DelegationRequestResponse {
	resp := DelegationRequestResponse{
		ID:                 req.ID.String(),
		Reason:             req.Reason,
		Notes:              req.Notes,
		Status:             req.Status,
		ApproveImmediately: req.ApproveImmediately,
		CreatedAt:          req.CreatedAt.Format(time.RFC3339),
		Caretakers:         []UserSummary{},
		AvailableActions:   availableActionStrings(role, req.Status),
	}

	if req.Requester != nil {
		summary := toUserSummary(req.Requester)
		resp.Requester = &summary
	}
	if req.PrimaryUser != nil {
		summary := toUserSummary(req.PrimaryUser)
		resp.PrimaryUser = &summary
	}
	if req.Caretaker != nil {
		resp.Caretakers = append(resp.Caretakers, toUserSummary(req.Caretaker))
	}
	if req.EndDate != nil {
		s := req.EndDate.Format(time.RFC3339)
		resp.EndDate = &s
	}
	if req.ActionedBy != nil {
		s := req.ActionedBy.String()
		resp.ActionedBy = &s
	}
	if req.ActionedAt != nil {
		s := req.ActionedAt.Format(time.RFC3339)
		resp.ActionedAt = &s
	}
	return resp
}

func toDelegationResponse(d *model.ActiveDelegation, now time.Time) ActiveDelegationResponse {
	resp := ActiveDelegationResponse{
		ID:         d.ID.String(),
		Reason:     d.Reason,
		Notes:      d.Notes,
		AssignedAt: d.AssignedAt.Format(time.RFC3339),
		Expired:    caretaking.IsExpired(*d, now),
	}
	if d.PrimaryUser != nil {
		summary := toUserSummary(d.PrimaryUser)
		resp.PrimaryUser = &summary
	}
	if d.Caretaker != nil {
		summary := toUserSummary(d.Caretaker)
		resp.Caretaker = &summary
	}
	if d.EndDate != nil {
		s := d.EndDate.Format(time.RFC3339)
		resp.EndDate = &s
	}
	return resp
}

// availableActionStrings keeps a stable order for JSON output.
func availableActionStrings(role caretaking.ViewerRole, status string) []string {
	actions := caretaking.AvailableActions(role, status)
	ordered := []caretaking.Action{
		caretaking.ActionApprove,
		caretaking.ActionApproveOverride,
		caretaking.ActionReject,
		caretaking.ActionCancel,
	}
	out := make([]string, 0, len(actions))
	for _, a := range ordered {
		if actions[a] {
			out = append(out, string(a))
		}
	}
	return out
}
