package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
	"github.com/acadrecords/portal-api/pkg/normalize"
)

type eligibilityUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type eligibilityCourseReader interface {
	ListAll(ctx context.Context) ([]models.Course, error)
}

type eligibilitySheetReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentModuleAssignment, error)
}

type eligibilityMarkReader interface {
	List(ctx context.Context, filter models.MarkFilter) ([]models.MarkDetail, error)
}

type eligibilityEnrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type eligibilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// EligibleCourse is one joinable course with the rule that admitted it.
type EligibleCourse struct {
	Course models.Course `json:"course"`
	Reason string        `json:"reason"`
}

// Eligibility reasons, in evaluation order.
const (
	EligibilityReasonSheet  = "sheet"
	EligibilityReasonRetake = "retake"
	EligibilityReasonIntake = "intake"
	EligibilityReasonLegacy = "legacy_year"
)

// EligibilityService decides which courses a student may join. The policy
// layers a per-student module sheet over the older intake/cohort and
// target-year models, with a retake path for failed modules.
type EligibilityService struct {
	users            eligibilityUserReader
	courses          eligibilityCourseReader
	sheets           eligibilitySheetReader
	marks            eligibilityMarkReader
	enrollments      eligibilityEnrollmentReader
	cache            eligibilityCache
	metrics          *MetricsService
	passingThreshold float64
	cacheTTL         time.Duration
	logger           *zap.Logger
}

// NewEligibilityService constructs EligibilityService. cache may be nil.
func NewEligibilityService(
	users eligibilityUserReader,
	courses eligibilityCourseReader,
	sheets eligibilitySheetReader,
	marks eligibilityMarkReader,
	enrollments eligibilityEnrollmentReader,
	cache eligibilityCache,
	passingThreshold float64,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if passingThreshold <= 0 {
		passingThreshold = 50
	}
	return &EligibilityService{
		users:            users,
		courses:          courses,
		sheets:           sheets,
		marks:            marks,
		enrollments:      enrollments,
		cache:            cache,
		passingThreshold: passingThreshold,
		cacheTTL:         cacheTTL,
		logger:           logger,
	}
}

// WithMetrics attaches cache hit/miss instrumentation.
func (s *EligibilityService) WithMetrics(metrics *MetricsService) *EligibilityService {
	s.metrics = metrics
	return s
}

func eligibilityCacheKey(studentID string) string {
	return fmt.Sprintf("eligibility:student:%s", studentID)
}

// EligibleCourses returns the courses the student may join, excluding
// courses already enrolled in. Results are cached per student.
func (s *EligibilityService) EligibleCourses(ctx context.Context, studentID string) ([]EligibleCourse, error) {
	if s.cache != nil {
		var cached []EligibleCourse
		if err := s.cache.Get(ctx, eligibilityCacheKey(studentID), &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "eligibility applies to students only")
	}

	catalog, err := s.courses.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course catalog")
	}
	sheet, err := s.sheets.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module sheet")
	}
	marks, err := s.marks.List(ctx, models.MarkFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	enrolled := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		enrolled[e.CourseID] = struct{}{}
	}
	sheetCodes := make(map[string]struct{}, len(sheet))
	for _, entry := range sheet {
		sheetCodes[normalizeCode(entry.ModuleCode)] = struct{}{}
	}
	// Course codes with a published failing total. Only published rows are
	// listed here, so drafts never open the retake path.
	failedCodes := make(map[string]struct{})
	for _, mark := range marks {
		if mark.Total < s.passingThreshold {
			failedCodes[normalizeCode(mark.CourseCode)] = struct{}{}
		}
	}

	studentIntake := normalize.Intake(student.Intake)
	studentCohort := normalize.Year(student.CohortYear)
	studentYear := normalize.Year(student.AcademicYear)

	eligible := make([]EligibleCourse, 0)
	for _, course := range catalog {
		if _, ok := enrolled[course.ID]; ok {
			continue
		}
		code := normalizeCode(course.Code)

		if _, ok := sheetCodes[code]; ok {
			eligible = append(eligible, EligibleCourse{Course: course, Reason: EligibilityReasonSheet})
			continue
		}
		if _, ok := failedCodes[code]; ok {
			eligible = append(eligible, EligibleCourse{Course: course, Reason: EligibilityReasonRetake})
			continue
		}

		courseIntake := normalize.Intake(course.Intake)
		courseCohort := normalize.Year(course.CohortYear)
		intakeMatch := courseIntake != "" && studentIntake != "" && courseIntake == studentIntake &&
			courseCohort != "" && studentCohort != "" && courseCohort == studentCohort
		if intakeMatch {
			eligible = append(eligible, EligibleCourse{Course: course, Reason: EligibilityReasonIntake})
			continue
		}

		// The coarse target-year model only applies to students with no
		// sheet data at all; an absent year on either side auto-matches.
		if len(sheetCodes) == 0 {
			courseYear := normalize.Year(course.TargetYear)
			if courseYear == "" || studentYear == "" || courseYear == studentYear {
				eligible = append(eligible, EligibleCourse{Course: course, Reason: EligibilityReasonLegacy})
			}
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, eligibilityCacheKey(studentID), eligible, s.cacheTTL); err != nil {
			s.logger.Warn("eligibility cache set failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return eligible, nil
}

// Invalidate drops the cached eligibility result for a student. Called by
// the admission controller whenever enrollments change.
func (s *EligibilityService) Invalidate(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, eligibilityCacheKey(studentID)); err != nil {
		s.logger.Warn("eligibility cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
