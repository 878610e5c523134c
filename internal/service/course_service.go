package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
)

type courseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetClaimsEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
}

// CreateCourseRequest describes a new course offering.
type CreateCourseRequest struct {
	Code       string     `json:"code" validate:"required"`
	Name       string     `json:"name" validate:"required"`
	Intake     string     `json:"intake"`
	CohortYear string     `json:"cohortYear"`
	TargetYear string     `json:"targetYear"`
	StartDate  *time.Time `json:"startDate"`
	EndDate    *time.Time `json:"endDate"`
	LecturerID string     `json:"lecturerId" validate:"required"`
}

// UpdateCourseRequest carries a full rewrite of the mutable fields.
type UpdateCourseRequest struct {
	Code       string     `json:"code" validate:"required"`
	Name       string     `json:"name" validate:"required"`
	Intake     string     `json:"intake"`
	CohortYear string     `json:"cohortYear"`
	TargetYear string     `json:"targetYear"`
	StartDate  *time.Time `json:"startDate"`
	EndDate    *time.Time `json:"endDate"`
}

// Actor identifies the caller for ownership checks.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// canManage reports whether the actor may mutate the course: its owning
// lecturer or a head of department.
func (a Actor) canManage(course *models.Course) bool {
	return a.Role == models.RoleHeadOfDepartment || course.LecturerID == a.UserID
}

// CourseService owns the course catalog and the claims-enabled gate.
type CourseService struct {
	courses   courseRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseRepo, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, validator: validate, logger: logger}
}

// List returns the catalog, optionally scoped to a lecturer.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, total, nil
}

// FindByID returns a course.
func (s *CourseService) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new offering. Lecturers may only create courses they
// own; a head of department may assign any lecturer.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, actor Actor) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if actor.Role != models.RoleHeadOfDepartment && req.LecturerID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lecturers can only create their own courses")
	}

	course := &models.Course{
		Code:       req.Code,
		Name:       req.Name,
		Intake:     req.Intake,
		CohortYear: req.CohortYear,
		TargetYear: req.TargetYear,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		LecturerID: req.LecturerID,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update rewrites a course's mutable fields.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest, actor Actor) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning lecturer or a head of department can update a course")
	}

	course.Code = req.Code
	course.Name = req.Name
	course.Intake = req.Intake
	course.CohortYear = req.CohortYear
	course.TargetYear = req.TargetYear
	course.StartDate = req.StartDate
	course.EndDate = req.EndDate
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// SetClaimsEnabled toggles the dispute gate for a course.
func (s *CourseService) SetClaimsEnabled(ctx context.Context, id string, enabled bool, actor Actor) (*models.Course, error) {
	course, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning lecturer or a head of department can toggle claims")
	}
	if err := s.courses.SetClaimsEnabled(ctx, id, enabled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle claims")
	}
	course.ClaimsEnabled = enabled
	s.logger.Info("course claims toggled", zap.String("course_id", id), zap.Bool("enabled", enabled))
	return course, nil
}

// Delete removes a course offering.
func (s *CourseService) Delete(ctx context.Context, id string, actor Actor) error {
	course, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.canManage(course) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owning lecturer or a head of department can delete a course")
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}
