package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
)

type markRepo interface {
	FindByID(ctx context.Context, id string) (*models.Mark, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Mark, error)
	List(ctx context.Context, filter models.MarkFilter) ([]models.MarkDetail, error)
	Create(ctx context.Context, mark *models.Mark) error
	Update(ctx context.Context, mark *models.Mark) error
	AppendHistory(ctx context.Context, entry *models.MarkHistory) error
	ListHistory(ctx context.Context, markID string) ([]models.MarkHistory, error)
}

type markCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// UpsertMarkRequest carries the full component set for one student in one
// course. Every save rewrites all six components.
type UpsertMarkRequest struct {
	StudentID            string  `json:"student_id" validate:"required"`
	CourseID             string  `json:"course_id" validate:"required"`
	CAT                  float64 `json:"cat" validate:"min=0,max=100"`
	FAT                  float64 `json:"fat" validate:"min=0,max=100"`
	IndividualAssignment float64 `json:"individualAssignment" validate:"min=0,max=100"`
	GroupAssignment      float64 `json:"groupAssignment" validate:"min=0,max=100"`
	Quiz                 float64 `json:"quiz" validate:"min=0,max=100"`
	Attendance           float64 `json:"attendance" validate:"min=0,max=100"`
	IsPublished          bool    `json:"is_published"`
}

// BulkMarkItem is one grading-sheet row within a bulk payload.
type BulkMarkItem struct {
	StudentID            string  `json:"student_id" validate:"required"`
	CAT                  float64 `json:"cat" validate:"min=0,max=100"`
	FAT                  float64 `json:"fat" validate:"min=0,max=100"`
	IndividualAssignment float64 `json:"individualAssignment" validate:"min=0,max=100"`
	GroupAssignment      float64 `json:"groupAssignment" validate:"min=0,max=100"`
	Quiz                 float64 `json:"quiz" validate:"min=0,max=100"`
	Attendance           float64 `json:"attendance" validate:"min=0,max=100"`
}

// BulkMarksRequest saves a whole grading sheet for one course. Rows are
// validated individually so one bad row cannot block the sheet.
type BulkMarksRequest struct {
	CourseID    string         `json:"course_id" validate:"required"`
	IsPublished bool           `json:"is_published"`
	Items       []BulkMarkItem `json:"items" validate:"required"`
}

// BulkMarkFailure captures one rejected grading-sheet row.
type BulkMarkFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// BulkMarksResult summarises a partial-success sheet save.
type BulkMarksResult struct {
	SuccessCount int               `json:"success_count"`
	Failures     []BulkMarkFailure `json:"failures,omitempty"`
}

// markSnapshot is the JSON shape stored in mark_history old/new values.
type markSnapshot struct {
	CAT                  float64 `json:"cat"`
	FAT                  float64 `json:"fat"`
	IndividualAssignment float64 `json:"individualAssignment"`
	GroupAssignment      float64 `json:"groupAssignment"`
	Quiz                 float64 `json:"quiz"`
	Attendance           float64 `json:"attendance"`
	Total                float64 `json:"total"`
	IsPublished          bool    `json:"is_published"`
}

// MarkService owns the mark ledger: component writes, total derivation
// and the append-only mutation history.
type MarkService struct {
	marks     markRepo
	courses   markCourseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs MarkService.
func NewMarkService(marks markRepo, courses markCourseReader, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{marks: marks, courses: courses, validator: validate, logger: logger}
}

// round2 truncates a derived total to two decimals, rounding half away
// from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTotal derives the stored total from the six components.
func ComputeTotal(c models.MarkComponents) float64 {
	return round2(c.CAT + c.FAT + c.IndividualAssignment + c.GroupAssignment + c.Quiz + c.Attendance)
}

// List returns marks for a scope. Drafts are included only when the
// caller has grading rights over the course.
func (s *MarkService) List(ctx context.Context, filter models.MarkFilter) ([]models.MarkDetail, error) {
	marks, err := s.marks.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// FindByID returns one mark row.
func (s *MarkService) FindByID(ctx context.Context, id string) (*models.Mark, error) {
	mark, err := s.marks.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}
	return mark, nil
}

// Upsert writes the full component set for one (student, course) pair.
// The total is always recomputed server-side; a client-supplied total is
// ignored. Each successful write appends exactly one history entry.
func (s *MarkService) Upsert(ctx context.Context, req UpsertMarkRequest, changedBy string) (*models.Mark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	components := models.MarkComponents{
		CAT:                  req.CAT,
		FAT:                  req.FAT,
		IndividualAssignment: req.IndividualAssignment,
		GroupAssignment:      req.GroupAssignment,
		Quiz:                 req.Quiz,
		Attendance:           req.Attendance,
	}

	existing, err := s.marks.FindByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}

	if existing == nil {
		mark := &models.Mark{
			StudentID:      req.StudentID,
			CourseID:       req.CourseID,
			MarkComponents: components,
			Total:          ComputeTotal(components),
			IsPublished:    req.IsPublished,
		}
		if err := s.marks.Create(ctx, mark); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mark")
		}
		s.appendHistory(ctx, mark.ID, nil, mark, models.MarkChangeReasonCreation, changedBy)
		return mark, nil
	}

	before := *existing
	existing.MarkComponents = components
	existing.Total = ComputeTotal(components)
	existing.IsPublished = req.IsPublished
	if err := s.marks.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mark")
	}
	s.appendHistory(ctx, existing.ID, &before, existing, models.MarkChangeReasonUpdate, changedBy)
	return existing, nil
}

// BulkUpsert saves a grading sheet row by row. A bad row is recorded as a
// failure and does not block the rest of the sheet.
func (s *MarkService) BulkUpsert(ctx context.Context, req BulkMarksRequest, changedBy string) (*BulkMarksResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading sheet payload")
	}
	result := &BulkMarksResult{}
	for _, item := range req.Items {
		_, err := s.Upsert(ctx, UpsertMarkRequest{
			StudentID:            item.StudentID,
			CourseID:             req.CourseID,
			CAT:                  item.CAT,
			FAT:                  item.FAT,
			IndividualAssignment: item.IndividualAssignment,
			GroupAssignment:      item.GroupAssignment,
			Quiz:                 item.Quiz,
			Attendance:           item.Attendance,
			IsPublished:          req.IsPublished,
		}, changedBy)
		if err != nil {
			result.Failures = append(result.Failures, BulkMarkFailure{StudentID: item.StudentID, Reason: err.Error()})
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// UpdateComponent rewrites a single component on an existing mark and
// recomputes the total. Claim resolution goes through here.
func (s *MarkService) UpdateComponent(ctx context.Context, markID, component string, value float64, reason, changedBy string) (*models.Mark, error) {
	if !models.IsAssessmentType(component) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assessment type %q", component))
	}
	if value < 0 || value > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mark value out of range")
	}
	mark, err := s.marks.FindByID(ctx, markID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}
	before := *mark
	mark.SetComponent(component, value)
	mark.Total = ComputeTotal(mark.MarkComponents)
	if err := s.marks.Update(ctx, mark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mark")
	}
	s.appendHistory(ctx, mark.ID, &before, mark, reason, changedBy)
	return mark, nil
}

// History returns the audit trail of one mark, oldest first.
func (s *MarkService) History(ctx context.Context, markID string) ([]models.MarkHistory, error) {
	if _, err := s.FindByID(ctx, markID); err != nil {
		return nil, err
	}
	entries, err := s.marks.ListHistory(ctx, markID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark history")
	}
	return entries, nil
}

// appendHistory records one mutation. A failed append must not undo the
// primary write, so it is logged and swallowed.
func (s *MarkService) appendHistory(ctx context.Context, markID string, before, after *models.Mark, reason, changedBy string) {
	entry := &models.MarkHistory{
		MarkID:       markID,
		NewValues:    marshalSnapshot(after),
		ChangeReason: reason,
		ChangedBy:    changedBy,
	}
	if before != nil {
		entry.OldValues = marshalSnapshot(before)
	}
	if err := s.marks.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("mark history append failed",
			zap.String("mark_id", markID),
			zap.String("reason", reason),
			zap.Error(err))
	}
}

func marshalSnapshot(mark *models.Mark) []byte {
	snap := markSnapshot{
		CAT:                  mark.CAT,
		FAT:                  mark.FAT,
		IndividualAssignment: mark.IndividualAssignment,
		GroupAssignment:      mark.GroupAssignment,
		Quiz:                 mark.Quiz,
		Attendance:           mark.Attendance,
		Total:                mark.Total,
		IsPublished:          mark.IsPublished,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	return data
}
