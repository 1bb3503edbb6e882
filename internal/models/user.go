package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStaff   UserRole = "staff"
	RoleStudent UserRole = "student"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleStudent:
		return true
	}
	return false
}

// User is an authentication account joined with its profile.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Unit         *UnitID    `db:"unit" json:"unit,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login_at" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile holds the directory data for a user: role, unit assignment and
// institutional identifiers.
type Profile struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Role       UserRole  `db:"role" json:"role"`
	Unit       *UnitID   `db:"unit" json:"unit,omitempty"`
	StaffID    *string   `db:"staff_id" json:"staff_id,omitempty"`
	TrackNo    *string   `db:"track_no" json:"track_no,omitempty"`
	Department *string   `db:"department" json:"department,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// CreateUserRequest is the admin payload for provisioning an account.
type CreateUserRequest struct {
	Name       string   `json:"name" validate:"required,max=120"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=6"`
	Role       UserRole `json:"role" validate:"required,oneof=admin staff student"`
	TrackNo    *string  `json:"trackNo"`
	StaffID    *string  `json:"staffId"`
	Department *string  `json:"department"`
	Unit       *UnitID  `json:"unit"`
}

// DeleteUserRequest identifies the account to remove.
type DeleteUserRequest struct {
	UserID string `json:"userId" validate:"required"`
}
