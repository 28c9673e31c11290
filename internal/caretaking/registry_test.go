package caretaking

import (
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	assert.True(t, IsExpired(model.ActiveDelegation{EndDate: &yesterday}, now))
	assert.False(t, IsExpired(model.ActiveDelegation{EndDate: &tomorrow}, now))
	assert.False(t, IsExpired(model.ActiveDelegation{EndDate: nil}, now),
		"resignation delegations never expire")
	assert.False(t, IsExpired(model.ActiveDelegation{EndDate: &now}, now),
		"expiry is strictly before now")
}

func TestHasActiveDelegation(t *testing.T) {
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	primary := uuid.New()
	other := uuid.New()

	t.Run("non-expired delegation counts", func(t *testing.T) {
		delegations := []model.ActiveDelegation{
			{PrimaryUserID: primary, CaretakerID: other, EndDate: &tomorrow},
		}
		assert.True(t, HasActiveDelegation(delegations, primary, now))
	})

	t.Run("expired delegation does not count", func(t *testing.T) {
		delegations := []model.ActiveDelegation{
			{PrimaryUserID: primary, CaretakerID: other, EndDate: &yesterday},
		}
		assert.False(t, HasActiveDelegation(delegations, primary, now))
	})

	t.Run("delegation for someone else does not count", func(t *testing.T) {
		delegations := []model.ActiveDelegation{
			{PrimaryUserID: other, CaretakerID: primary, EndDate: &tomorrow},
		}
		assert.False(t, HasActiveDelegation(delegations, primary, now))
	})

	t.Run("open-ended delegation counts", func(t *testing.T) {
		delegations := []model.ActiveDelegation{
			{PrimaryUserID: primary, CaretakerID: other},
		}
		assert.True(t, HasActiveDelegation(delegations, primary, now))
	})

	t.Run("empty registry", func(t *testing.T) {
		assert.False(t, HasActiveDelegation(nil, primary, now))
	})
}

func TestValidateExtension(t *testing.T) {
	now := time.Now()
	nextWeek := now.AddDate(0, 0, 7)
	nextMonth := now.AddDate(0, 1, 0)

	t.Run("later date extends a dated delegation", func(t *testing.T) {
		d := model.ActiveDelegation{EndDate: &nextWeek}
		assert.NoError(t, ValidateExtension(d, nextMonth, now))
	})

	t.Run("open-ended delegation accepts a first end date", func(t *testing.T) {
		assert.NoError(t, ValidateExtension(model.ActiveDelegation{}, nextWeek, now))
	})

	t.Run("date equal to the current end date is rejected", func(t *testing.T) {
		d := model.ActiveDelegation{EndDate: &nextWeek}
		v, ok := AsValidation(ValidateExtension(d, nextWeek, now))
		assert.True(t, ok)
		assert.Equal(t, "end_date", v.Field)
	})

	t.Run("earlier date is rejected", func(t *testing.T) {
		d := model.ActiveDelegation{EndDate: &nextMonth}
		_, ok := AsValidation(ValidateExtension(d, nextWeek, now))
		assert.True(t, ok)
	})

	t.Run("past date is rejected even for open-ended delegations", func(t *testing.T) {
		yesterday := now.AddDate(0, 0, -1)
		_, ok := AsValidation(ValidateExtension(model.ActiveDelegation{}, yesterday, now))
		assert.True(t, ok)
	})
}
