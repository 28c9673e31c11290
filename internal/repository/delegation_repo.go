package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Request list directions, from the viewer's perspective.
const (
	DirectionIncoming = "incoming" // viewer is the proposed caretaker
	DirectionOutgoing = "outgoing" // viewer submitted the request
)

// DelegationRepository is the data access layer for delegation requests
// and their materialized active delegations.
type DelegationRepository interface {
	CreateRequest(ctx context.Context, req *model.DelegationRequest) error
	FindRequestByID(ctx context.Context, id uuid.UUID) (*model.DelegationRequest, error)
	FindRequestByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DelegationRequest, error)
	ListRequests(ctx context.Context, userID uuid.UUID, direction, status string, page, limit int) ([]model.DelegationRequest, int64, error)
	ListPendingRequests(ctx context.Context, page, limit int) ([]model.DelegationRequest, int64, error)
	PendingIncomingRequesters(ctx context.Context, caretakerID uuid.UUID) ([]uuid.UUID, error)
	UpdateRequest(ctx context.Context, req *model.DelegationRequest) error

	CreateActiveDelegation(ctx context.Context, d *model.ActiveDelegation) error
	UpdateActiveDelegation(ctx context.Context, d *model.ActiveDelegation) error
	FindActiveDelegationByID(ctx context.Context, id uuid.UUID) (*model.ActiveDelegation, error)
	FindActiveDelegationByPrimaryUser(ctx context.Context, primaryUserID uuid.UUID) (*model.ActiveDelegation, error)
	ListDelegationsByCaretaker(ctx context.Context, caretakerID uuid.UUID) ([]model.ActiveDelegation, error)
	ListAllActiveDelegations(ctx context.Context) ([]model.ActiveDelegation, error)
	DeleteActiveDelegation(ctx context.Context, id uuid.UUID) error
}

type delegationRepository struct {
	db *gorm.DB
}

func NewDelegationRepository(db *gorm.DB) DelegationRepository {
	return &delegationRepository{db: db}
}

func (r *delegationRepository) CreateRequest(ctx context.Context, req *model.DelegationRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *delegationRepository) FindRequestByID(ctx context.Context, id uuid.UUID) (*model.DelegationRequest, error) {
	var req model.DelegationRequest
	if err := GetDB(ctx, r.db).
		Preload("Requester").Preload("PrimaryUser").Preload("Caretaker").Preload("Actioner").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindRequestByIDForUpdate takes a row lock so concurrent transitions
// against the same request serialize; the loser then fails the status
// guard instead of clobbering the winner.
func (r *delegationRepository) FindRequestByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DelegationRequest, error) {
	var req model.DelegationRequest
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *delegationRepository) ListRequests(ctx context.Context, userID uuid.UUID, direction, status string, page, limit int) ([]model.DelegationRequest, int64, error) {
	var requests []model.DelegationRequest
	var total int64

	db := GetDB(ctx, r.db)
	build := func(q *gorm.DB) *gorm.DB {
		switch direction {
		case DirectionIncoming:
			q = q.Where("caretaker_id = ?", userID)
		case DirectionOutgoing:
			q = q.Where("requester_id = ?", userID)
		default:
			q = q.Where("caretaker_id = ? OR requester_id = ? OR primary_user_id = ?", userID, userID, userID)
		}
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	if err := build(db.Model(&model.DelegationRequest{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := build(db.Preload("Requester").Preload("PrimaryUser").Preload("Caretaker")).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListPendingRequests backs the admin task dashboard.
func (r *delegationRepository) ListPendingRequests(ctx context.Context, page, limit int) ([]model.DelegationRequest, int64, error) {
	var requests []model.DelegationRequest
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.DelegationRequest{}).
		Where("status = ?", model.RequestPending).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Requester").Preload("PrimaryUser").Preload("Caretaker").
		Where("status = ?", model.RequestPending).
		Order("created_at ASC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// PendingIncomingRequesters returns the requester ids of pending requests
// naming caretakerID as the prospective caretaker; these users join the
// exclusion set to block crossed proposals.
func (r *delegationRepository) PendingIncomingRequesters(ctx context.Context, caretakerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.DelegationRequest{}).
		Where("caretaker_id = ? AND status = ?", caretakerID, model.RequestPending).
		Pluck("requester_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *delegationRepository) UpdateRequest(ctx context.Context, req *model.DelegationRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *delegationRepository) CreateActiveDelegation(ctx context.Context, d *model.ActiveDelegation) error {
	return GetDB(ctx, r.db).Create(d).Error
}

func (r *delegationRepository) UpdateActiveDelegation(ctx context.Context, d *model.ActiveDelegation) error {
	return GetDB(ctx, r.db).Save(d).Error
}

func (r *delegationRepository) FindActiveDelegationByID(ctx context.Context, id uuid.UUID) (*model.ActiveDelegation, error) {
	var d model.ActiveDelegation
	if err := GetDB(ctx, r.db).
		Preload("PrimaryUser").Preload("Caretaker").
		First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *delegationRepository) FindActiveDelegationByPrimaryUser(ctx context.Context, primaryUserID uuid.UUID) (*model.ActiveDelegation, error) {
	var d model.ActiveDelegation
	if err := GetDB(ctx, r.db).
		Preload("PrimaryUser").Preload("Caretaker").
		First(&d, "primary_user_id = ?", primaryUserID).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *delegationRepository) ListDelegationsByCaretaker(ctx context.Context, caretakerID uuid.UUID) ([]model.ActiveDelegation, error) {
	var delegations []model.ActiveDelegation
	if err := GetDB(ctx, r.db).
		Preload("PrimaryUser").
		Where("caretaker_id = ?", caretakerID).
		Find(&delegations).Error; err != nil {
		return nil, err
	}
	return delegations, nil
}

// ListAllActiveDelegations loads the full edge list the chain resolver
// walks. The table is small (one row per delegating user).
func (r *delegationRepository) ListAllActiveDelegations(ctx context.Context) ([]model.ActiveDelegation, error) {
	var delegations []model.ActiveDelegation
	if err := GetDB(ctx, r.db).Find(&delegations).Error; err != nil {
		return nil, err
	}
	return delegations, nil
}

func (r *delegationRepository) DeleteActiveDelegation(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ActiveDelegation{}).Error
}
