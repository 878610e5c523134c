package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadrecords/portal-api/internal/models"
)

type mockMarkRepo struct {
	marks      map[string]models.Mark
	history    []models.MarkHistory
	historyErr error
}

func (m *mockMarkRepo) FindByID(ctx context.Context, id string) (*models.Mark, error) {
	if mark, ok := m.marks[id]; ok {
		return &mark, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMarkRepo) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Mark, error) {
	for _, mark := range m.marks {
		if mark.StudentID == studentID && mark.CourseID == courseID {
			return &mark, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockMarkRepo) List(ctx context.Context, filter models.MarkFilter) ([]models.MarkDetail, error) {
	var out []models.MarkDetail
	for _, mark := range m.marks {
		if filter.StudentID != "" && mark.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && mark.CourseID != filter.CourseID {
			continue
		}
		if !filter.IncludeDrafts && !mark.IsPublished {
			continue
		}
		out = append(out, models.MarkDetail{Mark: mark})
	}
	return out, nil
}

func (m *mockMarkRepo) Create(ctx context.Context, mark *models.Mark) error {
	if m.marks == nil {
		m.marks = make(map[string]models.Mark)
	}
	if mark.ID == "" {
		mark.ID = "new-mark"
	}
	m.marks[mark.ID] = *mark
	return nil
}

func (m *mockMarkRepo) Update(ctx context.Context, mark *models.Mark) error {
	m.marks[mark.ID] = *mark
	return nil
}

func (m *mockMarkRepo) AppendHistory(ctx context.Context, entry *models.MarkHistory) error {
	if m.historyErr != nil {
		return m.historyErr
	}
	m.history = append(m.history, *entry)
	return nil
}

func (m *mockMarkRepo) ListHistory(ctx context.Context, markID string) ([]models.MarkHistory, error) {
	var out []models.MarkHistory
	for _, entry := range m.history {
		if entry.MarkID == markID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type mockCourseReader struct {
	courses map[string]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return &course, nil
	}
	return nil, sql.ErrNoRows
}

func TestComputeTotalRoundsToTwoDecimals(t *testing.T) {
	total := ComputeTotal(models.MarkComponents{
		CAT:                  10.1,
		FAT:                  20.2,
		IndividualAssignment: 10.1,
		GroupAssignment:      10.1,
		Quiz:                 15.15,
		Attendance:           15.15,
	})
	assert.Equal(t, 80.8, total)

	// Repeated calls with identical input must yield identical output.
	assert.Equal(t, total, ComputeTotal(models.MarkComponents{
		CAT:                  10.1,
		FAT:                  20.2,
		IndividualAssignment: 10.1,
		GroupAssignment:      10.1,
		Quiz:                 15.15,
		Attendance:           15.15,
	}))

	assert.Equal(t, 0.0, ComputeTotal(models.MarkComponents{}))
}

func TestMarkServiceUpsertCreatesWithHistory(t *testing.T) {
	repo := &mockMarkRepo{}
	courses := &mockCourseReader{courses: map[string]models.Course{"crs-1": {ID: "crs-1"}}}
	svc := NewMarkService(repo, courses, nil, nil)

	mark, err := svc.Upsert(context.Background(), UpsertMarkRequest{
		StudentID: "stu-1",
		CourseID:  "crs-1",
		CAT:       12.5,
		FAT:       30,
	}, "lec-1")
	require.NoError(t, err)
	assert.Equal(t, 42.5, mark.Total)
	assert.False(t, mark.IsPublished)

	require.Len(t, repo.history, 1)
	assert.Equal(t, models.MarkChangeReasonCreation, repo.history[0].ChangeReason)
	assert.Equal(t, "lec-1", repo.history[0].ChangedBy)
	assert.Nil(t, repo.history[0].OldValues)
	assert.NotEmpty(t, repo.history[0].NewValues)
}

func TestMarkServiceUpsertUpdatesExisting(t *testing.T) {
	repo := &mockMarkRepo{marks: map[string]models.Mark{
		"mrk-1": {
			ID:             "mrk-1",
			StudentID:      "stu-1",
			CourseID:       "crs-1",
			MarkComponents: models.MarkComponents{CAT: 10},
			Total:          10,
		},
	}}
	courses := &mockCourseReader{courses: map[string]models.Course{"crs-1": {ID: "crs-1"}}}
	svc := NewMarkService(repo, courses, nil, nil)

	mark, err := svc.Upsert(context.Background(), UpsertMarkRequest{
		StudentID:   "stu-1",
		CourseID:    "crs-1",
		CAT:         15,
		FAT:         40,
		IsPublished: true,
	}, "lec-1")
	require.NoError(t, err)
	assert.Equal(t, "mrk-1", mark.ID)
	assert.Equal(t, 55.0, mark.Total)
	assert.True(t, mark.IsPublished)

	require.Len(t, repo.history, 1)
	assert.Equal(t, models.MarkChangeReasonUpdate, repo.history[0].ChangeReason)
	assert.NotEmpty(t, repo.history[0].OldValues)
}

func TestMarkServiceUpsertSurvivesHistoryFailure(t *testing.T) {
	repo := &mockMarkRepo{historyErr: errors.New("audit store down")}
	courses := &mockCourseReader{courses: map[string]models.Course{"crs-1": {ID: "crs-1"}}}
	svc := NewMarkService(repo, courses, nil, nil)

	mark, err := svc.Upsert(context.Background(), UpsertMarkRequest{
		StudentID: "stu-1",
		CourseID:  "crs-1",
		CAT:       20,
	}, "lec-1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, mark.Total)
	assert.Empty(t, repo.history)
}

func TestMarkServiceUpsertUnknownCourse(t *testing.T) {
	svc := NewMarkService(&mockMarkRepo{}, &mockCourseReader{}, nil, nil)

	_, err := svc.Upsert(context.Background(), UpsertMarkRequest{
		StudentID: "stu-1",
		CourseID:  "ghost",
	}, "lec-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "course not found")
}

func TestMarkServiceListVisibility(t *testing.T) {
	repo := &mockMarkRepo{marks: map[string]models.Mark{
		"mrk-1": {ID: "mrk-1", StudentID: "stu-1", CourseID: "crs-1", IsPublished: true},
		"mrk-2": {ID: "mrk-2", StudentID: "stu-1", CourseID: "crs-2", IsPublished: false},
	}}
	svc := NewMarkService(repo, &mockCourseReader{}, nil, nil)

	published, err := svc.List(context.Background(), models.MarkFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, published, 1)

	all, err := svc.List(context.Background(), models.MarkFilter{StudentID: "stu-1", IncludeDrafts: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := svc.List(context.Background(), models.MarkFilter{StudentID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMarkServiceUpdateComponent(t *testing.T) {
	repo := &mockMarkRepo{marks: map[string]models.Mark{
		"mrk-1": {
			ID:             "mrk-1",
			StudentID:      "stu-1",
			CourseID:       "crs-1",
			MarkComponents: models.MarkComponents{CAT: 10, FAT: 20},
			Total:          30,
			IsPublished:    true,
		},
	}}
	svc := NewMarkService(repo, &mockCourseReader{}, nil, nil)

	mark, err := svc.UpdateComponent(context.Background(), "mrk-1", models.AssessmentFAT, 35, models.MarkChangeReasonClaimResolution, "lec-1")
	require.NoError(t, err)
	assert.Equal(t, 35.0, mark.FAT)
	assert.Equal(t, 45.0, mark.Total)

	require.Len(t, repo.history, 1)
	assert.Equal(t, models.MarkChangeReasonClaimResolution, repo.history[0].ChangeReason)

	_, err = svc.UpdateComponent(context.Background(), "mrk-1", "midterm", 10, models.MarkChangeReasonUpdate, "lec-1")
	require.Error(t, err)

	_, err = svc.UpdateComponent(context.Background(), "mrk-1", models.AssessmentCAT, 140, models.MarkChangeReasonUpdate, "lec-1")
	require.Error(t, err)
}

func TestMarkServiceBulkUpsertPartialFailure(t *testing.T) {
	repo := &mockMarkRepo{}
	courses := &mockCourseReader{courses: map[string]models.Course{"crs-1": {ID: "crs-1"}}}
	svc := NewMarkService(repo, courses, nil, nil)

	result, err := svc.BulkUpsert(context.Background(), BulkMarksRequest{
		CourseID: "crs-1",
		Items: []BulkMarkItem{
			{StudentID: "stu-1", CAT: 40},
			{StudentID: "", CAT: 10},
			{StudentID: "stu-2", FAT: 50},
		},
	}, "lec-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	require.Len(t, result.Failures, 1)
}
