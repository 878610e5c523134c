package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadrecords/portal-api/internal/models"
	"github.com/acadrecords/portal-api/internal/repository"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
)

type enrollmentRepo interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	HasActiveEnrollment(ctx context.Context, studentID string, now time.Time) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, studentID, courseID string) error
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListStudentsByGroup(ctx context.Context, group models.StudentGroup) ([]models.User, error)
}

type eligibilityInvalidator interface {
	Invalidate(ctx context.Context, studentID string)
}

// EnrollmentRequest asks to join a student to a course. Override must be
// set explicitly; it is never inferred from the caller's role.
type EnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Override  bool   `json:"override"`
}

// EnrollmentResult reports the enrollment and whether this call created it.
type EnrollmentResult struct {
	Enrollment *models.Enrollment `json:"enrollment"`
	Created    bool               `json:"created"`
}

// BulkEnrollRequest enrolls a whole intake/cohort group into a course.
// GroupKey has the form "intake|cohortYear"; either side may be the
// "Unknown" sentinel.
type BulkEnrollRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	GroupKey string `json:"group_key" validate:"required"`
}

// EnrollmentService is the admission controller: it owns the
// single-active-enrollment policy and the administrative overrides.
type EnrollmentService struct {
	enrollments enrollmentRepo
	courses     enrollmentCourseReader
	users       enrollmentUserReader
	eligibility eligibilityInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. eligibility may be
// nil when no cache invalidation is wanted.
func NewEnrollmentService(enrollments enrollmentRepo, courses enrollmentCourseReader, users enrollmentUserReader, eligibility eligibilityInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		courses:     courses,
		users:       users,
		eligibility: eligibility,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics attaches enrollment outcome instrumentation.
func (s *EnrollmentService) WithMetrics(metrics *MetricsService) *EnrollmentService {
	s.metrics = metrics
	return s
}

// List returns enrollments filtered by student and/or course.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, total, nil
}

// RequestEnrollment joins a student to a course. Joining a course the
// student already holds returns the existing enrollment unchanged. A
// second active enrollment is rejected unless Override is set.
func (s *EnrollmentService) RequestEnrollment(ctx context.Context, req EnrollmentRequest) (*EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only students can be enrolled")
	}

	existing, err := s.enrollments.FindByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if existing != nil {
		s.metrics.RecordEnrollment("existing")
		return &EnrollmentResult{Enrollment: existing, Created: false}, nil
	}

	// Advisory fast path only; the unique constraint below is the real
	// guard against concurrent joins.
	if !req.Override {
		active, err := s.enrollments.HasActiveEnrollment(ctx, req.StudentID, s.now())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active enrollment")
		}
		if active {
			s.metrics.RecordEnrollment("rejected")
			return nil, appErrors.Clone(appErrors.ErrActiveEnrollment, "student already has an active enrollment")
		}
	}

	enrollment := &models.Enrollment{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		JoinedAt:  s.now(),
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			winner, ferr := s.enrollments.FindByStudentAndCourse(ctx, req.StudentID, req.CourseID)
			if ferr != nil {
				return nil, appErrors.Wrap(ferr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing enrollment")
			}
			s.metrics.RecordEnrollment("existing")
			return &EnrollmentResult{Enrollment: winner, Created: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if s.eligibility != nil {
		s.eligibility.Invalidate(ctx, req.StudentID)
	}
	s.metrics.RecordEnrollment("created")
	s.logger.Info("enrollment created",
		zap.String("student_id", req.StudentID),
		zap.String("course_id", course.ID),
		zap.Bool("override", req.Override))
	return &EnrollmentResult{Enrollment: enrollment, Created: true}, nil
}

// BulkEnroll joins every student in an intake/cohort group to a course
// with override semantics. Individual failures are collected, never
// propagated; the batch always runs to completion.
func (s *EnrollmentService) BulkEnroll(ctx context.Context, req BulkEnrollRequest) (*models.BulkEnrollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk enrollment payload")
	}
	group, err := parseGroupKey(req.GroupKey)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	students, err := s.users.ListStudentsByGroup(ctx, group)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student group")
	}

	result := &models.BulkEnrollResult{CourseID: req.CourseID, GroupKey: req.GroupKey}
	for _, student := range students {
		_, err := s.RequestEnrollment(ctx, EnrollmentRequest{
			StudentID: student.ID,
			CourseID:  req.CourseID,
			Override:  true,
		})
		if err != nil {
			result.FailureCount++
			result.Failures = append(result.Failures, models.BulkEnrollFailure{
				StudentID: student.ID,
				RegNumber: student.RegNumber,
				Reason:    err.Error(),
			})
			continue
		}
		result.SuccessCount++
	}
	s.logger.Info("bulk enrollment completed",
		zap.String("course_id", req.CourseID),
		zap.String("group_key", req.GroupKey),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailureCount))
	return result, nil
}

// RemoveEnrollment deletes the enrollment for a pair. Removing a missing
// enrollment is a no-op.
func (s *EnrollmentService) RemoveEnrollment(ctx context.Context, studentID, courseID string) error {
	if studentID == "" || courseID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student and course ids are required")
	}
	if err := s.enrollments.Delete(ctx, studentID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}
	if s.eligibility != nil {
		s.eligibility.Invalidate(ctx, studentID)
	}
	s.metrics.RecordEnrollment("removed")
	return nil
}

// parseGroupKey splits "intake|cohortYear". Both sides are required; the
// "Unknown" sentinel stands in for students with missing data.
func parseGroupKey(key string) (models.StudentGroup, error) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return models.StudentGroup{}, errors.New(`group key must have the form "intake|cohortYear"`)
	}
	return models.StudentGroup{
		Intake:     strings.TrimSpace(parts[0]),
		CohortYear: strings.TrimSpace(parts[1]),
	}, nil
}
