package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
)

type sheetRepo interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentModuleAssignment, error)
	Create(ctx context.Context, assignment *models.StudentModuleAssignment) error
	Delete(ctx context.Context, id string) error
}

// AssignModuleRequest authorizes a student to take a module code.
type AssignModuleRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	ModuleCode   string `json:"module_code" validate:"required"`
	AcademicYear string `json:"academic_year"`
}

// SheetService manages per-student module assignment sheets. The sheet is
// the primary eligibility source; entries are created by administrators.
type SheetService struct {
	sheets      sheetRepo
	eligibility eligibilityInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSheetService constructs SheetService. eligibility may be nil.
func NewSheetService(sheets sheetRepo, eligibility eligibilityInvalidator, validate *validator.Validate, logger *zap.Logger) *SheetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetService{sheets: sheets, eligibility: eligibility, validator: validate, logger: logger}
}

// ListByStudent returns the student's sheet entries. An unknown student
// yields an empty sheet.
func (s *SheetService) ListByStudent(ctx context.Context, studentID string) ([]models.StudentModuleAssignment, error) {
	entries, err := s.sheets.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module sheet")
	}
	return entries, nil
}

// Assign adds a sheet entry and refreshes the student's eligibility.
func (s *SheetService) Assign(ctx context.Context, req AssignModuleRequest) (*models.StudentModuleAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sheet payload")
	}
	assignment := &models.StudentModuleAssignment{
		StudentID:    req.StudentID,
		ModuleCode:   req.ModuleCode,
		AcademicYear: req.AcademicYear,
	}
	if err := s.sheets.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sheet entry")
	}
	if s.eligibility != nil {
		s.eligibility.Invalidate(ctx, req.StudentID)
	}
	return assignment, nil
}

// Remove deletes a sheet entry.
func (s *SheetService) Remove(ctx context.Context, id, studentID string) error {
	if err := s.sheets.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sheet entry")
	}
	if s.eligibility != nil && studentID != "" {
		s.eligibility.Invalidate(ctx, studentID)
	}
	return nil
}
