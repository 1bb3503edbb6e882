package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

func TestReviewPolicy(t *testing.T) {
	policy := NewReviewPolicy([]string{"bursary", "accounts"})
	admin := models.Reviewer{UserID: "a1", Role: models.RoleAdmin}
	student := models.Reviewer{UserID: "s1", Role: models.RoleStudent, Unit: models.UnitLibrary}

	assert.True(t, policy.CanReview(staff(models.UnitLibrary), models.UnitLibrary))
	assert.False(t, policy.CanReview(staff(models.UnitLibrary), models.UnitHospital))
	assert.True(t, policy.CanReview(staff(models.UnitBursary), models.UnitHospital))
	assert.True(t, policy.CanReview(admin, models.UnitHospital))
	assert.False(t, policy.CanReview(student, models.UnitLibrary))
	assert.False(t, policy.CanReview(models.Reviewer{Role: models.RoleStaff}, ""))

	assert.True(t, policy.CanOverride(staff(models.UnitLibrary), models.UnitLibrary))
	assert.False(t, policy.CanOverride(staff(models.UnitBursary), models.UnitLibrary))
	assert.False(t, policy.CanOverride(admin, models.UnitLibrary))
}
