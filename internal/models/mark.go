package models

import "time"

// Assessment component names. These are the exact tokens accepted as a
// claim's assessmentType and as targeted component updates.
const (
	AssessmentCAT                  = "cat"
	AssessmentFAT                  = "fat"
	AssessmentIndividualAssignment = "individualAssignment"
	AssessmentGroupAssignment      = "groupAssignment"
	AssessmentQuiz                 = "quiz"
	AssessmentAttendance           = "attendance"
)

// AssessmentTypes lists the six component names in display order.
func AssessmentTypes() []string {
	return []string{
		AssessmentCAT,
		AssessmentFAT,
		AssessmentIndividualAssignment,
		AssessmentGroupAssignment,
		AssessmentQuiz,
		AssessmentAttendance,
	}
}

// IsAssessmentType reports whether name is a known component.
func IsAssessmentType(name string) bool {
	switch name {
	case AssessmentCAT, AssessmentFAT, AssessmentIndividualAssignment,
		AssessmentGroupAssignment, AssessmentQuiz, AssessmentAttendance:
		return true
	}
	return false
}

// MarkComponents holds the six raw assessment scores of a mark.
type MarkComponents struct {
	CAT                  float64 `db:"cat" json:"cat"`
	FAT                  float64 `db:"fat" json:"fat"`
	IndividualAssignment float64 `db:"individual_assignment" json:"individualAssignment"`
	GroupAssignment      float64 `db:"group_assignment" json:"groupAssignment"`
	Quiz                 float64 `db:"quiz" json:"quiz"`
	Attendance           float64 `db:"attendance" json:"attendance"`
}

// Component returns the named component score.
func (m MarkComponents) Component(name string) (float64, bool) {
	switch name {
	case AssessmentCAT:
		return m.CAT, true
	case AssessmentFAT:
		return m.FAT, true
	case AssessmentIndividualAssignment:
		return m.IndividualAssignment, true
	case AssessmentGroupAssignment:
		return m.GroupAssignment, true
	case AssessmentQuiz:
		return m.Quiz, true
	case AssessmentAttendance:
		return m.Attendance, true
	}
	return 0, false
}

// SetComponent writes the named component score.
func (m *MarkComponents) SetComponent(name string, value float64) bool {
	switch name {
	case AssessmentCAT:
		m.CAT = value
	case AssessmentFAT:
		m.FAT = value
	case AssessmentIndividualAssignment:
		m.IndividualAssignment = value
	case AssessmentGroupAssignment:
		m.GroupAssignment = value
	case AssessmentQuiz:
		m.Quiz = value
	case AssessmentAttendance:
		m.Attendance = value
	default:
		return false
	}
	return true
}

// Mark stores the assessment record for one (student, course) pair.
// Drafts (isPublished = false) are visible only to grading staff.
type Mark struct {
	ID        string `db:"id" json:"id"`
	StudentID string `db:"student_id" json:"studentId"`
	CourseID  string `db:"course_id" json:"courseId"`
	MarkComponents
	Total       float64   `db:"total" json:"total"`
	IsPublished bool      `db:"is_published" json:"isPublished"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// MarkDetail enriches a mark with its course for student-facing views
// and retake detection.
type MarkDetail struct {
	Mark
	CourseCode string `db:"course_code" json:"courseCode"`
	CourseName string `db:"course_name" json:"courseName"`
}

// MarkFilter provides filters for listing marks.
type MarkFilter struct {
	StudentID     string
	CourseID      string
	IncludeDrafts bool
}

// MarkHistory is one append-only audit entry per mark mutation. Entries
// are never updated or deleted.
type MarkHistory struct {
	ID           string    `db:"id" json:"id"`
	MarkID       string    `db:"mark_id" json:"markId"`
	OldValues    []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues    []byte    `db:"new_values" json:"newValues"`
	ChangeReason string    `db:"change_reason" json:"changeReason"`
	ChangedBy    string    `db:"changed_by" json:"changedBy"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Change reasons recorded in mark history.
const (
	MarkChangeReasonCreation        = "Creation"
	MarkChangeReasonUpdate          = "Update"
	MarkChangeReasonClaimResolution = "Claim resolution"
)
