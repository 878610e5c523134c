package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/acadrecords/portal-api/internal/models"
)

func TestMarkRepositoryListHidesDrafts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectQuery(`m\.is_published = TRUE`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "total", "is_published"}).
			AddRow("mrk-1", "stu-1", "crs-1", 72.5, true))

	marks, err := repo.List(context.Background(), models.MarkFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, marks, 1)
	require.True(t, marks[0].IsPublished)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryListIncludeDrafts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectQuery(`SELECT m\.id, .+ FROM marks m`).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "total", "is_published"}).
			AddRow("mrk-1", "stu-1", "crs-1", 40, false).
			AddRow("mrk-2", "stu-2", "crs-1", 61, true))

	marks, err := repo.List(context.Background(), models.MarkFilter{CourseID: "crs-1", IncludeDrafts: true})
	require.NoError(t, err)
	require.Len(t, marks, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectExec("INSERT INTO marks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mark := &models.Mark{StudentID: "stu-1", CourseID: "crs-1", Total: 80.8}
	require.NoError(t, repo.Create(context.Background(), mark))
	require.NotEmpty(t, mark.ID)
	require.False(t, mark.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryAppendHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectExec("INSERT INTO mark_history").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.MarkHistory{
		MarkID:       "mrk-1",
		OldValues:    []byte(`{"fat":30}`),
		NewValues:    []byte(`{"fat":35}`),
		ChangeReason: models.MarkChangeReasonUpdate,
		ChangedBy:    "lec-1",
	}
	require.NoError(t, repo.AppendHistory(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
