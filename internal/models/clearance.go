package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// ClearanceState is the canonical status of a (student, unit) ledger entry.
type ClearanceState string

const (
	StateSubmitReceipt ClearanceState = "submit_receipt"
	StatePending       ClearanceState = "pending"
	StateCleared       ClearanceState = "cleared"
	StateRejected      ClearanceState = "rejected"
)

// AllClearanceStates lists every state in lifecycle order.
var AllClearanceStates = []ClearanceState{StateSubmitReceipt, StatePending, StateCleared, StateRejected}

// ParseClearanceState maps stored encodings, including the legacy
// "Cleared"/"Not Cleared"/"Submit Receipt" spellings, onto the canonical enum.
func ParseClearanceState(raw string) (ClearanceState, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	switch normalized {
	case "", "submit_receipt", "not_started":
		return StateSubmitReceipt, nil
	case "pending":
		return StatePending, nil
	case "cleared", "approved":
		return StateCleared, nil
	case "rejected", "not_cleared":
		return StateRejected, nil
	}
	return "", fmt.Errorf("unknown clearance state %q", raw)
}

// Scan implements sql.Scanner so legacy rows surface as canonical states.
func (s *ClearanceState) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		raw = ""
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan clearance state: unsupported type %T", src)
	}
	parsed, err := ParseClearanceState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s ClearanceState) Value() (driver.Value, error) {
	return string(s), nil
}

// AllowsUpload reports whether a student may upload a receipt for the unit.
// Rejected behaves like submit_receipt for this purpose.
func (s ClearanceState) AllowsUpload() bool {
	return s == StateSubmitReceipt || s == StateRejected
}

// LedgerTrigger is an event that moves a ledger entry between states.
type LedgerTrigger string

const (
	TriggerIntake   LedgerTrigger = "intake"
	TriggerApprove  LedgerTrigger = "approve"
	TriggerReject   LedgerTrigger = "reject"
	TriggerOverride LedgerTrigger = "override"
	TriggerRollover LedgerTrigger = "rollover"
)

type ledgerRule struct {
	to   ClearanceState
	from []ClearanceState
}

// decidedFrom covers every state a unit can hold once a receipt exists for
// it. A unit with several fees can be rejected on one receipt and approved on
// another; the latest decision wins. Duplicate decisions on one receipt are
// stopped by the receipt's own pending guard.
var decidedFrom = []ClearanceState{StatePending, StateRejected, StateCleared}

var ledgerRules = map[LedgerTrigger]ledgerRule{
	TriggerIntake:   {to: StatePending, from: []ClearanceState{StateSubmitReceipt, StatePending, StateRejected}},
	TriggerApprove:  {to: StateCleared, from: decidedFrom},
	TriggerReject:   {to: StateRejected, from: decidedFrom},
	TriggerOverride: {to: StateCleared, from: AllClearanceStates},
	TriggerRollover: {to: StateSubmitReceipt, from: AllClearanceStates},
}

// Target returns the state a trigger moves an entry into.
func (t LedgerTrigger) Target() ClearanceState {
	return ledgerRules[t].to
}

// AllowedFrom returns the states from which the trigger is legal.
func (t LedgerTrigger) AllowedFrom() []ClearanceState {
	rule, ok := ledgerRules[t]
	if !ok {
		return nil
	}
	out := make([]ClearanceState, len(rule.from))
	copy(out, rule.from)
	return out
}

// NextState applies trigger to from. ok is false for illegal transitions.
func NextState(from ClearanceState, trigger LedgerTrigger) (ClearanceState, bool) {
	rule, exists := ledgerRules[trigger]
	if !exists {
		return from, false
	}
	for _, allowed := range rule.from {
		if allowed == from {
			return rule.to, true
		}
	}
	return from, false
}

// ClearanceStatus is a persisted ledger row.
type ClearanceStatus struct {
	ID              string         `db:"id" json:"id"`
	StudentID       string         `db:"student_id" json:"student_id"`
	UnitID          UnitID         `db:"unit_id" json:"unit_id"`
	SemesterID      *string        `db:"semester_id" json:"semester_id,omitempty"`
	Status          ClearanceState `db:"status" json:"status"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	UpdatedBy       *string        `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// EffectiveStatus resolves an optional ledger row into a total value; a
// missing row is the implicit submit_receipt state.
func EffectiveStatus(row *ClearanceStatus, studentID string, unitID UnitID) ClearanceStatus {
	if row != nil {
		return *row
	}
	return ClearanceStatus{StudentID: studentID, UnitID: unitID, Status: StateSubmitReceipt}
}

// UnitLedgerEntry is one student's effective state for a unit dashboard.
type UnitLedgerEntry struct {
	StudentID       string         `db:"student_id" json:"student_id"`
	StudentName     string         `db:"student_name" json:"student_name"`
	TrackNo         string         `db:"track_no" json:"track_no"`
	Department      *string        `db:"department" json:"department,omitempty"`
	UnitID          UnitID         `db:"unit_id" json:"unit_id"`
	Status          ClearanceState `db:"status" json:"status"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	UpdatedAt       *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// UnitClearance is the per-unit line of a progress report.
type UnitClearance struct {
	UnitID          UnitID         `json:"unit_id"`
	UnitName        string         `json:"unit_name"`
	Status          ClearanceState `json:"status"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	UpdatedAt       *time.Time     `json:"updated_at,omitempty"`
	AmountOwed      int64          `json:"amount_owed"`
	Excluded        bool           `json:"excluded"`
}

// Progress is the aggregate clearance position of one student.
type Progress struct {
	StudentID       string          `json:"student_id"`
	ClearedCount    int             `json:"cleared_count"`
	TotalCount      int             `json:"total_count"`
	Percentage      float64         `json:"percentage"`
	AmountOwedTotal int64           `json:"amount_owed_total"`
	IsFullyCleared  bool            `json:"is_fully_cleared"`
	Units           []UnitClearance `json:"units"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// ClearanceSlip is the data printed on an issued clearance slip.
type ClearanceSlip struct {
	StudentID         string          `json:"student_id"`
	StudentName       string          `json:"student_name"`
	TrackNo           string          `json:"track_no"`
	Department        *string         `json:"department,omitempty"`
	Session           string          `json:"session,omitempty"`
	Semester          SemesterLabel   `json:"semester,omitempty"`
	Units             []UnitClearance `json:"units"`
	IssuedAt          time.Time       `json:"issued_at"`
	VerificationToken string          `json:"verification_token,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
}

// StudentClearance couples a student record with its progress, as returned
// by verification lookups.
type StudentClearance struct {
	Student  *Student  `json:"student"`
	Progress *Progress `json:"progress"`
}

// SlipVerification is the result of checking a slip token. StillCleared
// reflects the ledger at verification time, which may differ after a
// semester rollover.
type SlipVerification struct {
	Slip         ClearanceSlip `json:"slip"`
	StillCleared bool          `json:"still_cleared"`
	ExpiresAt    time.Time     `json:"expires_at"`
}
