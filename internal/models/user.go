package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent          UserRole = "STUDENT"
	RoleLecturer         UserRole = "LECTURER"
	RoleHeadOfDepartment UserRole = "HOD"
)

// User represents a portal account. Student attributes (intake, cohort,
// academic year, program) are empty for staff roles.
type User struct {
	ID           string    `db:"id" json:"id"`
	RegNumber    string    `db:"reg_number" json:"regNumber"`
	FullName     string    `db:"full_name" json:"fullName"`
	Role         UserRole  `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Intake       string    `db:"intake" json:"intake,omitempty"`
	CohortYear   string    `db:"cohort_year" json:"cohortYear,omitempty"`
	AcademicYear string    `db:"academic_year" json:"academicYear,omitempty"`
	Program      string    `db:"program" json:"program,omitempty"`
	Department   string    `db:"department" json:"department,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentGroup identifies a bulk-enrollment cohort. Absent intake or
// cohort values on a student match the "Unknown" sentinel.
type StudentGroup struct {
	Intake     string
	CohortYear string
}

// GroupUnknown is the sentinel shown for students missing intake/cohort data.
const GroupUnknown = "Unknown"

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
