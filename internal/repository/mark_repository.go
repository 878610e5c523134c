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

// MarkRepository handles persistence of marks and their append-only
// mutation history.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs the repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

const markColumns = `id, student_id, course_id, cat, fat, individual_assignment, group_assignment, quiz, attendance, total, is_published, created_at, updated_at`

// FindByID returns a mark by its ID.
func (r *MarkRepository) FindByID(ctx context.Context, id string) (*models.Mark, error) {
	query := fmt.Sprintf(`SELECT %s FROM marks WHERE id = $1`, markColumns)
	var mark models.Mark
	if err := r.db.GetContext(ctx, &mark, query, id); err != nil {
		return nil, err
	}
	return &mark, nil
}

// FindByStudentAndCourse returns the mark for a pair, if any.
func (r *MarkRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Mark, error) {
	query := fmt.Sprintf(`SELECT %s FROM marks WHERE student_id = $1 AND course_id = $2`, markColumns)
	var mark models.Mark
	if err := r.db.GetContext(ctx, &mark, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &mark, nil
}

// List returns marks joined with their course, filtered by student,
// course and draft visibility. Unknown ids yield an empty result.
func (r *MarkRepository) List(ctx context.Context, filter models.MarkFilter) ([]models.MarkDetail, error) {
	base := `SELECT m.id, m.student_id, m.course_id, m.cat, m.fat, m.individual_assignment,
        m.group_assignment, m.quiz, m.attendance, m.total, m.is_published, m.created_at, m.updated_at,
        c.code AS course_code, c.name AS course_name
        FROM marks m
        LEFT JOIN courses c ON c.id = m.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("m.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("m.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if !filter.IncludeDrafts {
		conditions = append(conditions, "m.is_published = TRUE")
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY m.updated_at DESC"

	var marks []models.MarkDetail
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// Create persists a new mark row.
func (r *MarkRepository) Create(ctx context.Context, mark *models.Mark) error {
	now := time.Now().UTC()
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO marks (id, student_id, course_id, cat, fat, individual_assignment, group_assignment, quiz, attendance, total, is_published, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :cat, :fat, :individual_assignment, :group_assignment, :quiz, :attendance, :total, :is_published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("create mark: %w", err)
	}
	return nil
}

// Update rewrites the component scores, total and publish flag of a mark.
func (r *MarkRepository) Update(ctx context.Context, mark *models.Mark) error {
	mark.UpdatedAt = time.Now().UTC()
	const query = `UPDATE marks SET cat = :cat, fat = :fat, individual_assignment = :individual_assignment,
        group_assignment = :group_assignment, quiz = :quiz, attendance = :attendance,
        total = :total, is_published = :is_published, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("update mark: %w", err)
	}
	return nil
}

// AppendHistory inserts one audit entry for a mark mutation. History rows
// are never updated or deleted.
func (r *MarkRepository) AppendHistory(ctx context.Context, entry *models.MarkHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO mark_history (id, mark_id, old_values, new_values, change_reason, changed_by, created_at)
        VALUES (:id, :mark_id, :old_values, :new_values, :change_reason, :changed_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append mark history: %w", err)
	}
	return nil
}

// ListHistory returns the audit trail of one mark, oldest first.
func (r *MarkRepository) ListHistory(ctx context.Context, markID string) ([]models.MarkHistory, error) {
	const query = `SELECT id, mark_id, old_values, new_values, change_reason, changed_by, created_at
        FROM mark_history WHERE mark_id = $1 ORDER BY created_at ASC`
	var entries []models.MarkHistory
	if err := r.db.SelectContext(ctx, &entries, query, markID); err != nil {
		return nil, fmt.Errorf("list mark history: %w", err)
	}
	return entries, nil
}
