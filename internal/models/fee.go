package models

import "time"

// Fee is a catalog entry a student pays and uploads a receipt against.
type Fee struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Amount        int64     `db:"amount" json:"amount"`
	UnitID        UnitID    `db:"unit_id" json:"unit_id"`
	Department    *string   `db:"department" json:"department,omitempty"`
	AccountNumber string    `db:"account_number" json:"account_number"`
	Description   *string   `db:"description" json:"description,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AppliesTo reports whether the fee is charged to students of department.
func (f Fee) AppliesTo(department *string) bool {
	if f.Department == nil || *f.Department == "" {
		return true
	}
	return department != nil && *department == *f.Department
}

// FeeFilter narrows catalog listings.
type FeeFilter struct {
	UnitID     *UnitID
	Department *string
}

// CreateFeeRequest is the payload for adding a catalog entry.
type CreateFeeRequest struct {
	Name          string  `json:"name" validate:"required,max=120"`
	Amount        int64   `json:"amount" validate:"required,gt=0"`
	UnitID        UnitID  `json:"unit_id" validate:"required"`
	Department    *string `json:"department"`
	AccountNumber string  `json:"account_number" validate:"required,numeric,len=10"`
	Description   *string `json:"description"`
}

// UpdateFeeRequest patches a catalog entry. Nil fields are left unchanged.
type UpdateFeeRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=120"`
	Amount        *int64  `json:"amount" validate:"omitempty,gt=0"`
	UnitID        *UnitID `json:"unit_id"`
	Department    *string `json:"department"`
	AccountNumber *string `json:"account_number" validate:"omitempty,numeric,len=10"`
	Description   *string `json:"description"`
}
