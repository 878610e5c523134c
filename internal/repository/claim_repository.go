package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadrecords/portal-api/internal/models"
)

// ClaimRepository handles persistence of mark disputes.
type ClaimRepository struct {
	db *sqlx.DB
}

// NewClaimRepository constructs the repository.
func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

const claimColumns = `id, student_id, course_id, mark_id, assessment_type, original_mark, explanation, status, lecturer_comment, submitted_at, resolved_at`

// FindByID returns a claim by its ID.
func (r *ClaimRepository) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM claims WHERE id = $1`, claimColumns)
	var claim models.Claim
	if err := r.db.GetContext(ctx, &claim, query, id); err != nil {
		return nil, err
	}
	return &claim, nil
}

// List returns claims with course context. Filtering by lecturer scopes
// the result to claims raised against that lecturer's courses.
func (r *ClaimRepository) List(ctx context.Context, filter models.ClaimFilter) ([]models.ClaimDetail, error) {
	base := `SELECT cl.id, cl.student_id, cl.course_id, cl.mark_id, cl.assessment_type, cl.original_mark,
        cl.explanation, cl.status, cl.lecturer_comment, cl.submitted_at, cl.resolved_at,
        c.code AS course_code, c.name AS course_name
        FROM claims cl
        JOIN courses c ON c.id = cl.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("cl.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.LecturerID != "" {
		conditions = append(conditions, fmt.Sprintf("c.lecturer_id = $%d", len(args)+1))
		args = append(args, filter.LecturerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("cl.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY cl.submitted_at DESC"

	var claims []models.ClaimDetail
	if err := r.db.SelectContext(ctx, &claims, query, args...); err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// Create persists a new pending claim.
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	if claim.SubmittedAt.IsZero() {
		claim.SubmittedAt = time.Now().UTC()
	}
	if claim.Status == "" {
		claim.Status = models.ClaimStatusPending
	}
	const query = `INSERT INTO claims (id, student_id, course_id, mark_id, assessment_type, original_mark, explanation, status, lecturer_comment, submitted_at, resolved_at)
        VALUES (:id, :student_id, :course_id, :mark_id, :assessment_type, :original_mark, :explanation, :status, :lecturer_comment, :submitted_at, :resolved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, claim); err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

// Resolve moves a pending claim to a terminal state. The WHERE guard on
// status makes concurrent double-resolution lose cleanly: zero rows
// affected means someone else resolved it first.
func (r *ClaimRepository) Resolve(ctx context.Context, id string, status models.ClaimStatus, comment string, resolvedAt time.Time) (bool, error) {
	const query = `UPDATE claims SET status = $2, lecturer_comment = $3, resolved_at = $4
        WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, status, comment, resolvedAt, models.ClaimStatusPending)
	if err != nil {
		return false, fmt.Errorf("resolve claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve claim rows: %w", err)
	}
	return affected > 0, nil
}
