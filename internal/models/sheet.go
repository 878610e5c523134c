package models

import "time"

// StudentModuleAssignment is one row of a student's module sheet: an
// explicit authorization to take the given module code, independent of
// intake/cohort matching.
type StudentModuleAssignment struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"studentId"`
	ModuleCode   string    `db:"module_code" json:"moduleCode"`
	AcademicYear string    `db:"academic_year" json:"academicYear,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
