package model

import (
	"time"

	"github.com/google/uuid"
)

// Delegation request statuses. Pending is the sole initial status; the
// other three are terminal.
const (
	RequestPending   = "pending"
	RequestApproved  = "approved"
	RequestRejected  = "rejected"
	RequestCancelled = "cancelled"
)

// Delegation reasons
const (
	ReasonLeave       = "leave"
	ReasonResignation = "resignation"
	ReasonOther       = "other"
)

// DelegationRequest asks that a caretaker be given acting authority over the
// primary user's projects. The requester may be the primary user themselves,
// the prospective caretaker, or an administrator.
type DelegationRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterID   uuid.UUID `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester     *User     `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	PrimaryUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"primary_user_id"`
	PrimaryUser   *User     `gorm:"foreignKey:PrimaryUserID" json:"primary_user,omitempty"`
	CaretakerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"caretaker_id"`
	Caretaker     *User     `gorm:"foreignKey:CaretakerID" json:"caretaker,omitempty"`

	Reason  string     `gorm:"type:varchar(20);not null" json:"reason"` // leave, resignation, other
	EndDate *time.Time `json:"end_date"`                                // nullable: resignation is open-ended
	Notes   string     `gorm:"type:text" json:"notes"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// ApproveImmediately records that a superuser asked for the admin
	// fast-path at submission time.
	ApproveImmediately bool       `gorm:"not null;default:false" json:"approve_immediately"`
	ActionedBy         *uuid.UUID `gorm:"type:uuid" json:"actioned_by"`
	Actioner           *User      `gorm:"foreignKey:ActionedBy" json:"actioner,omitempty"`
	ActionedAt         *time.Time `json:"actioned_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveDelegation is the materialized result of an approved request. A
// primary user holds at most one row here; the unique index backs the
// approval-time guard. Expiry is computed from EndDate, never stored.
type ActiveDelegation struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PrimaryUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"primary_user_id"`
	PrimaryUser   *User     `gorm:"foreignKey:PrimaryUserID" json:"primary_user,omitempty"`
	CaretakerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"caretaker_id"`
	Caretaker     *User     `gorm:"foreignKey:CaretakerID" json:"caretaker,omitempty"`

	Reason  string     `gorm:"type:varchar(20);not null" json:"reason"`
	EndDate *time.Time `json:"end_date"`
	Notes   string     `gorm:"type:text" json:"notes"`

	RequestID  uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assigned_at"`
}
