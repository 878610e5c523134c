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

type claimRepo interface {
	FindByID(ctx context.Context, id string) (*models.Claim, error)
	List(ctx context.Context, filter models.ClaimFilter) ([]models.ClaimDetail, error)
	Create(ctx context.Context, claim *models.Claim) error
	Resolve(ctx context.Context, id string, status models.ClaimStatus, comment string, resolvedAt time.Time) (bool, error)
}

type claimMarkWriter interface {
	FindByID(ctx context.Context, id string) (*models.Mark, error)
	UpdateComponent(ctx context.Context, markID, component string, value float64, reason, changedBy string) (*models.Mark, error)
}

type claimCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// Resolution comments applied when the resolver leaves the field blank.
const (
	defaultApproveComment = "Mark updated."
	defaultRejectComment  = "No errors found in marking."
)

// SubmitClaimRequest disputes one component of a published mark.
type SubmitClaimRequest struct {
	StudentID      string `json:"student_id" validate:"required"`
	MarkID         string `json:"mark_id" validate:"required"`
	AssessmentType string `json:"assessment_type" validate:"required"`
	Explanation    string `json:"explanation" validate:"required"`
}

// ResolveClaimRequest settles a pending claim. CorrectedValue is required
// on approval and ignored on rejection.
type ResolveClaimRequest struct {
	Decision       string   `json:"decision" validate:"required,oneof=approve reject"`
	Comment        string   `json:"comment"`
	CorrectedValue *float64 `json:"corrected_value"`
}

// ClaimService runs the mark dispute state machine. Approval writes the
// corrected value back through the mark ledger before the claim turns
// terminal.
type ClaimService struct {
	claims    claimRepo
	marks     claimMarkWriter
	courses   claimCourseReader
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// WithMetrics attaches claim transition instrumentation.
func (s *ClaimService) WithMetrics(metrics *MetricsService) *ClaimService {
	s.metrics = metrics
	return s
}

// NewClaimService constructs ClaimService.
func NewClaimService(claims claimRepo, marks claimMarkWriter, courses claimCourseReader, validate *validator.Validate, logger *zap.Logger) *ClaimService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{
		claims:    claims,
		marks:     marks,
		courses:   courses,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns claims for a student or for a lecturer's courses.
func (s *ClaimService) List(ctx context.Context, filter models.ClaimFilter) ([]models.ClaimDetail, error) {
	claims, err := s.claims.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list claims")
	}
	return claims, nil
}

// FindByID returns one claim.
func (s *ClaimService) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	claim, err := s.claims.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "claim not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load claim")
	}
	return claim, nil
}

// Submit opens a dispute. The mark must be published and its course must
// have claims enabled. The disputed component's current value is
// snapshotted so later edits cannot change what was contested.
func (s *ClaimService) Submit(ctx context.Context, req SubmitClaimRequest) (*models.Claim, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid claim payload")
	}
	if !models.IsAssessmentType(req.AssessmentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assessment type")
	}

	mark, err := s.marks.FindByID(ctx, req.MarkID)
	if err != nil {
		return nil, err
	}
	if mark.StudentID != req.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "mark does not belong to student")
	}
	if !mark.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only published marks can be disputed")
	}

	course, err := s.courses.FindByID(ctx, mark.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.ClaimsEnabled {
		return nil, appErrors.Clone(appErrors.ErrClaimsDisabled, "claims are disabled for this course")
	}

	original, _ := mark.Component(req.AssessmentType)
	claim := &models.Claim{
		StudentID:      req.StudentID,
		CourseID:       mark.CourseID,
		MarkID:         mark.ID,
		AssessmentType: req.AssessmentType,
		OriginalMark:   original,
		Explanation:    req.Explanation,
		Status:         models.ClaimStatusPending,
		SubmittedAt:    s.now(),
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create claim")
	}

	s.metrics.RecordClaim(string(models.ClaimStatusPending))
	s.logger.Info("claim submitted",
		zap.String("claim_id", claim.ID),
		zap.String("mark_id", mark.ID),
		zap.String("assessment_type", req.AssessmentType))
	return claim, nil
}

// Resolve settles a pending claim. Approval writes the corrected value
// into the disputed component first; if the terminal transition then
// loses a race, the claim was already settled and the caller gets a
// conflict.
func (s *ClaimService) Resolve(ctx context.Context, claimID string, req ResolveClaimRequest, actedBy string) (*models.Claim, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}

	claim, err := s.FindByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimStatusPending {
		return nil, appErrors.Clone(appErrors.ErrClaimResolved, "claim has already been resolved")
	}

	approved := req.Decision == "approve"
	comment := req.Comment
	status := models.ClaimStatusRejected
	if approved {
		status = models.ClaimStatusApproved
		if req.CorrectedValue == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "corrected value is required to approve a claim")
		}
		if comment == "" {
			comment = defaultApproveComment
		}
		if _, err := s.marks.UpdateComponent(ctx, claim.MarkID, claim.AssessmentType, *req.CorrectedValue, models.MarkChangeReasonClaimResolution, actedBy); err != nil {
			return nil, err
		}
	} else if comment == "" {
		comment = defaultRejectComment
	}

	resolvedAt := s.now()
	settled, err := s.claims.Resolve(ctx, claim.ID, status, comment, resolvedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve claim")
	}
	if !settled {
		return nil, appErrors.Clone(appErrors.ErrClaimResolved, "claim has already been resolved")
	}

	claim.Status = status
	claim.LecturerComment = comment
	claim.ResolvedAt = &resolvedAt
	s.metrics.RecordClaim(string(status))
	s.logger.Info("claim resolved",
		zap.String("claim_id", claim.ID),
		zap.String("status", string(status)),
		zap.String("acted_by", actedBy))
	return claim, nil
}
