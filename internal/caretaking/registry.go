package caretaking

import (
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
)

// IsExpired reports whether the delegation's end date is strictly in the
// past. A delegation with no end date (the resignation case) never
// expires by this check; it lasts until explicitly removed.
func IsExpired(d model.ActiveDelegation, now time.Time) bool {
	return d.EndDate != nil && d.EndDate.Before(now)
}

// HasActiveDelegation reports whether userID currently holds a
// non-expired delegation as primary user. Used as the submission and
// approval guard and as the UI gate between "request a caretaker" and
// "you already have one".
func HasActiveDelegation(delegations []model.ActiveDelegation, userID uuid.UUID, now time.Time) bool {
	for _, d := range delegations {
		if d.PrimaryUserID == userID && !IsExpired(d, now) {
			return true
		}
	}
	return false
}

// ValidateExtension checks a replacement end date for an active
// delegation. The new date must be strictly in the future and, when the
// delegation already carries an end date, strictly after it; an
// extension never shortens a delegation. An open-ended delegation may be
// given its first end date by the same rule.
func ValidateExtension(d model.ActiveDelegation, newEndDate, now time.Time) error {
	if !newEndDate.After(now) {
		return &ValidationError{Field: "end_date", Message: "must be in the future"}
	}
	if d.EndDate != nil && !newEndDate.After(*d.EndDate) {
		return &ValidationError{Field: "end_date", Message: "must be after the current end date"}
	}
	return nil
}
