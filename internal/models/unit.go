package models

// UnitID identifies an administrative unit that clears students.
type UnitID string

const (
	UnitBursary        UnitID = "bursary"
	UnitExams          UnitID = "exams"
	UnitStudentAffairs UnitID = "student_affairs"
	UnitAccounts       UnitID = "accounts"
	UnitDepartment     UnitID = "department"
	UnitFaculty        UnitID = "faculty"
	UnitLibrary        UnitID = "library"
	UnitHospital       UnitID = "hospital"
	UnitAdmissions     UnitID = "admissions"
	UnitICT            UnitID = "ict"
	UnitAlumni         UnitID = "alumni"
)

// Unit is a row of the units table.
type Unit struct {
	ID               UnitID `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	ExcludedFromSlip bool   `db:"excluded_from_slip" json:"excluded_from_slip"`
	SortOrder        int    `db:"sort_order" json:"sort_order"`
}
