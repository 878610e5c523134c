package models

import "time"

// Enrollment captures a student's membership in a course offering.
// Unique per (studentId, courseId); created and deleted, never mutated.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"studentId"`
	CourseID  string    `db:"course_id" json:"courseId"`
	JoinedAt  time.Time `db:"joined_at" json:"joinedAt"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string     `db:"student_name" json:"studentName"`
	StudentRegNumber string     `db:"student_reg_number" json:"studentRegNumber"`
	CourseCode       string     `db:"course_code" json:"courseCode"`
	CourseName       string     `db:"course_name" json:"courseName"`
	CourseEndDate    *time.Time `db:"course_end_date" json:"courseEndDate,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// BulkEnrollFailure records a student the batch could not enroll.
type BulkEnrollFailure struct {
	StudentID string `json:"studentId"`
	RegNumber string `json:"regNumber,omitempty"`
	Reason    string `json:"reason"`
}

// BulkEnrollResult summarises a partial-success group enrollment.
type BulkEnrollResult struct {
	CourseID     string              `json:"courseId"`
	GroupKey     string              `json:"groupKey"`
	SuccessCount int                 `json:"successCount"`
	FailureCount int                 `json:"failureCount"`
	Failures     []BulkEnrollFailure `json:"failures,omitempty"`
}
