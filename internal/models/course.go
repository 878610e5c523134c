package models

import "time"

// Course represents a single offering of a module, owned by a lecturer.
// TargetYear survives from the coarse pre-sheet enrollment model and only
// feeds the legacy eligibility fallback.
type Course struct {
	ID            string     `db:"id" json:"id"`
	Code          string     `db:"code" json:"code"`
	Name          string     `db:"name" json:"name"`
	Intake        string     `db:"intake" json:"intake,omitempty"`
	CohortYear    string     `db:"cohort_year" json:"cohortYear,omitempty"`
	TargetYear    string     `db:"target_year" json:"targetYear,omitempty"`
	StartDate     *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate       *time.Time `db:"end_date" json:"endDate,omitempty"`
	LecturerID    string     `db:"lecturer_id" json:"lecturerId"`
	ClaimsEnabled bool       `db:"claims_enabled" json:"claimsEnabled"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// Active reports whether the offering is still running at the given
// instant. A course with no end date never completes.
func (c Course) Active(now time.Time) bool {
	return c.EndDate == nil || c.EndDate.After(now)
}

// CourseFilter provides filters for listing the catalog.
type CourseFilter struct {
	LecturerID string
	Code       string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
