package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
)

type mockCourseRepo struct {
	courses map[string]models.Course
	deleted []string
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return &course, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, course := range m.courses {
		if filter.LecturerID != "" && course.LecturerID != filter.LecturerID {
			continue
		}
		out = append(out, course)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) SetClaimsEnabled(ctx context.Context, id string, enabled bool) error {
	course := m.courses[id]
	course.ClaimsEnabled = enabled
	m.courses[id] = course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func ownedCourse() map[string]models.Course {
	return map[string]models.Course{
		"crs-1": {ID: "crs-1", Code: "CS101", Name: "Intro", LecturerID: "lec-1"},
	}
}

func TestCourseCreateOwnershipRules(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Code: "CS101", Name: "Intro", LecturerID: "lec-2",
	}, Actor{UserID: "lec-1", Role: models.RoleLecturer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Code: "CS101", Name: "Intro", LecturerID: "lec-2",
	}, Actor{UserID: "hod-1", Role: models.RoleHeadOfDepartment})
	require.NoError(t, err)
	assert.Equal(t, "lec-2", course.LecturerID)
}

func TestCourseUpdateRequiresOwnerOrHOD(t *testing.T) {
	repo := &mockCourseRepo{courses: ownedCourse()}
	svc := NewCourseService(repo, nil, nil)
	req := UpdateCourseRequest{Code: "CS101", Name: "Intro v2"}

	_, err := svc.Update(context.Background(), "crs-1", req, Actor{UserID: "lec-2", Role: models.RoleLecturer})
	require.Error(t, err)

	updated, err := svc.Update(context.Background(), "crs-1", req, Actor{UserID: "lec-1", Role: models.RoleLecturer})
	require.NoError(t, err)
	assert.Equal(t, "Intro v2", updated.Name)

	updated, err = svc.Update(context.Background(), "crs-1", UpdateCourseRequest{Code: "CS101", Name: "Intro v3"}, Actor{UserID: "hod-1", Role: models.RoleHeadOfDepartment})
	require.NoError(t, err)
	assert.Equal(t, "Intro v3", updated.Name)
}

func TestCourseClaimsToggle(t *testing.T) {
	repo := &mockCourseRepo{courses: ownedCourse()}
	svc := NewCourseService(repo, nil, nil)

	course, err := svc.SetClaimsEnabled(context.Background(), "crs-1", true, Actor{UserID: "lec-1", Role: models.RoleLecturer})
	require.NoError(t, err)
	assert.True(t, course.ClaimsEnabled)
	assert.True(t, repo.courses["crs-1"].ClaimsEnabled)

	_, err = svc.SetClaimsEnabled(context.Background(), "crs-1", false, Actor{UserID: "stu-1", Role: models.RoleStudent})
	require.Error(t, err)
}

func TestCourseDelete(t *testing.T) {
	repo := &mockCourseRepo{courses: ownedCourse()}
	svc := NewCourseService(repo, nil, nil)

	err := svc.Delete(context.Background(), "crs-1", Actor{UserID: "lec-2", Role: models.RoleLecturer})
	require.Error(t, err)

	require.NoError(t, svc.Delete(context.Background(), "crs-1", Actor{UserID: "hod-1", Role: models.RoleHeadOfDepartment}))
	assert.Equal(t, []string{"crs-1"}, repo.deleted)

	err = svc.Delete(context.Background(), "ghost", Actor{UserID: "hod-1", Role: models.RoleHeadOfDepartment})
	require.Error(t, err)
}
