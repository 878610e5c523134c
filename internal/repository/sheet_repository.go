package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadrecords/portal-api/internal/models"
)

// SheetRepository handles persistence of per-student module sheets.
type SheetRepository struct {
	db *sqlx.DB
}

// NewSheetRepository constructs the repository.
func NewSheetRepository(db *sqlx.DB) *SheetRepository {
	return &SheetRepository{db: db}
}

// ListByStudent returns a student's module sheet. An unknown student
// yields an empty sheet.
func (r *SheetRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentModuleAssignment, error) {
	const query = `SELECT id, student_id, module_code, academic_year, created_at
        FROM student_modules WHERE student_id = $1 ORDER BY module_code`
	var assignments []models.StudentModuleAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, studentID); err != nil {
		return nil, fmt.Errorf("list module sheet: %w", err)
	}
	return assignments, nil
}

// Create persists one sheet entry.
func (r *SheetRepository) Create(ctx context.Context, assignment *models.StudentModuleAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_modules (id, student_id, module_code, academic_year, created_at)
        VALUES (:id, :student_id, :module_code, :academic_year, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create sheet entry: %w", err)
	}
	return nil
}

// Delete removes one sheet entry.
func (r *SheetRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM student_modules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete sheet entry: %w", err)
	}
	return nil
}
