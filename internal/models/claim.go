package models

import "time"

// ClaimStatus captures the dispute workflow states.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// Claim is a student-initiated dispute over one scored component of a
// published mark. OriginalMark snapshots the component value at submission
// time so later edits cannot retroactively alter what was disputed.
// Status moves exactly once from pending to a terminal state.
type Claim struct {
	ID              string      `db:"id" json:"id"`
	StudentID       string      `db:"student_id" json:"studentId"`
	CourseID        string      `db:"course_id" json:"courseId"`
	MarkID          string      `db:"mark_id" json:"markId"`
	AssessmentType  string      `db:"assessment_type" json:"assessmentType"`
	OriginalMark    float64     `db:"original_mark" json:"originalMark"`
	Explanation     string      `db:"explanation" json:"explanation"`
	Status          ClaimStatus `db:"status" json:"status"`
	LecturerComment string      `db:"lecturer_comment" json:"lecturerComment,omitempty"`
	SubmittedAt     time.Time   `db:"submitted_at" json:"submittedAt"`
	ResolvedAt      *time.Time  `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// ClaimDetail enriches a claim with course context for review lists.
type ClaimDetail struct {
	Claim
	CourseCode string `db:"course_code" json:"courseCode"`
	CourseName string `db:"course_name" json:"courseName"`
}

// ClaimFilter provides filters for listing claims.
type ClaimFilter struct {
	StudentID  string
	LecturerID string
	Status     ClaimStatus
}
