package service

import "github.com/noah-isme/aju-clearance-api/internal/models"

// ReviewPolicy decides which staff may act on which unit's receipts.
type ReviewPolicy struct {
	superUnits map[models.UnitID]struct{}
}

// NewReviewPolicy builds a policy where staff of superUnits review every unit.
func NewReviewPolicy(superUnits []string) ReviewPolicy {
	set := make(map[models.UnitID]struct{}, len(superUnits))
	for _, u := range superUnits {
		if u != "" {
			set[models.UnitID(u)] = struct{}{}
		}
	}
	return ReviewPolicy{superUnits: set}
}

// IsSuperReviewer reports whether reviewer may decide receipts of any unit.
func (p ReviewPolicy) IsSuperReviewer(reviewer models.Reviewer) bool {
	if reviewer.Role == models.RoleAdmin {
		return true
	}
	if reviewer.Role != models.RoleStaff {
		return false
	}
	_, ok := p.superUnits[reviewer.Unit]
	return ok
}

// CanReview reports whether reviewer may decide receipts owned by unit.
func (p ReviewPolicy) CanReview(reviewer models.Reviewer, unit models.UnitID) bool {
	if p.IsSuperReviewer(reviewer) {
		return true
	}
	return reviewer.Role == models.RoleStaff && reviewer.Unit != "" && reviewer.Unit == unit
}

// CanOverride reports whether reviewer may clear unit without a receipt.
// Only the unit's own staff qualify.
func (p ReviewPolicy) CanOverride(reviewer models.Reviewer, unit models.UnitID) bool {
	return reviewer.Role == models.RoleStaff && reviewer.Unit != "" && reviewer.Unit == unit
}
