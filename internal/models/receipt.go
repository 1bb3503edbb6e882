package models

import "time"

// ReceiptStatus captures the review lifecycle of a receipt.
type ReceiptStatus string

const (
	ReceiptStatusPending  ReceiptStatus = "pending"
	ReceiptStatusApproved ReceiptStatus = "approved"
	ReceiptStatusRejected ReceiptStatus = "rejected"
)

// AcademicSemester is the semester a student declares on upload.
type AcademicSemester string

const (
	AcademicSemesterFirst  AcademicSemester = "first"
	AcademicSemesterSecond AcademicSemester = "second"
)

// ReviewAction is a reviewer's decision on a pending receipt.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

// Receipt is a student's uploaded proof of payment for one fee.
type Receipt struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	FeeID           string           `db:"fee_id" json:"fee_id"`
	UnitID          UnitID           `db:"unit_id" json:"unit_id"`
	SemesterID      string           `db:"semester_id" json:"semester_id"`
	FilePath        string           `db:"file_path" json:"-"`
	MimeType        string           `db:"mime_type" json:"mime_type"`
	SizeBytes       int64            `db:"size_bytes" json:"size_bytes"`
	Amount          int64            `db:"amount" json:"amount"`
	AcademicYear    int              `db:"academic_year" json:"academic_year"`
	Semester        AcademicSemester `db:"semester" json:"semester"`
	Status          ReceiptStatus    `db:"status" json:"status"`
	RejectionReason *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ReviewedBy      *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	UploadedAt      time.Time        `db:"uploaded_at" json:"uploaded_at"`
}

// ReceiptDetail is a receipt joined with its student and fee for review queues.
type ReceiptDetail struct {
	Receipt
	StudentName string `db:"student_name" json:"student_name"`
	TrackNo     string `db:"track_no" json:"track_no"`
	FeeName     string `db:"fee_name" json:"fee_name"`
}

// ReceiptDecision is the guarded status change applied by the review gate.
type ReceiptDecision struct {
	ReceiptID  string
	Status     ReceiptStatus
	Reason     *string
	ReviewerID string
	ReviewedAt time.Time
}

// SubmitReceiptRequest carries the form fields of a receipt upload.
type SubmitReceiptRequest struct {
	FeeID        string           `form:"fee_id" json:"fee_id" validate:"required"`
	AcademicYear int              `form:"academic_year" json:"academic_year" validate:"required,gte=1"`
	Semester     AcademicSemester `form:"semester" json:"semester" validate:"required,oneof=first second"`
}

// DecideReceiptRequest is a reviewer's decision payload.
type DecideReceiptRequest struct {
	Action ReviewAction `json:"action" validate:"required,oneof=approve reject"`
	Reason string       `json:"reason" validate:"max=500"`
}

// OverrideRequest manually clears a unit for a student.
type OverrideRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Note      string `json:"note" validate:"max=500"`
}

// SignedReceiptURL is a time-limited download link for a receipt image.
type SignedReceiptURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
