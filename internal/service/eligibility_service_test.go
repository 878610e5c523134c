package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
)

type mockUserReader struct {
	users map[string]models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

type mockCatalogReader struct {
	courses []models.Course
}

func (m *mockCatalogReader) ListAll(ctx context.Context) ([]models.Course, error) {
	return m.courses, nil
}

type mockSheetReader struct {
	entries map[string][]models.StudentModuleAssignment
}

func (m *mockSheetReader) ListByStudent(ctx context.Context, studentID string) ([]models.StudentModuleAssignment, error) {
	return m.entries[studentID], nil
}

type mockEligibilityMarkReader struct {
	marks []models.MarkDetail
}

func (m *mockEligibilityMarkReader) List(ctx context.Context, filter models.MarkFilter) ([]models.MarkDetail, error) {
	return m.marks, nil
}

type mockEnrollmentReader struct {
	enrollments []models.Enrollment
}

func (m *mockEnrollmentReader) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return m.enrollments, nil
}

type mockEligibilityCache struct {
	store       map[string][]EligibleCourse
	invalidated []string
}

func (m *mockEligibilityCache) Get(ctx context.Context, key string, dest interface{}) error {
	if cached, ok := m.store[key]; ok {
		*dest.(*[]EligibleCourse) = cached
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *mockEligibilityCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]EligibleCourse)
	}
	m.store[key] = value.([]EligibleCourse)
	return nil
}

func (m *mockEligibilityCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.store, key)
		m.invalidated = append(m.invalidated, key)
	}
	return nil
}

func newEligibilityFixture(t *testing.T, student models.User, courses []models.Course, sheet []models.StudentModuleAssignment, marks []models.MarkDetail, enrolled []models.Enrollment) *EligibilityService {
	t.Helper()
	users := &mockUserReader{users: map[string]models.User{student.ID: student}}
	return NewEligibilityService(
		users,
		&mockCatalogReader{courses: courses},
		&mockSheetReader{entries: map[string][]models.StudentModuleAssignment{student.ID: sheet}},
		&mockEligibilityMarkReader{marks: marks},
		&mockEnrollmentReader{enrollments: enrolled},
		nil,
		50,
		time.Minute,
		nil,
	)
}

func TestEligibilitySheetMatchWins(t *testing.T) {
	student := models.User{ID: "stu-1", Role: models.RoleStudent, Intake: "Sept", CohortYear: "2024"}
	courses := []models.Course{{ID: "crs-1", Code: "CS101"}}
	sheet := []models.StudentModuleAssignment{{StudentID: "stu-1", ModuleCode: "  cs101 "}}

	svc := newEligibilityFixture(t, student, courses, sheet, nil, nil)
	eligible, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, EligibilityReasonSheet, eligible[0].Reason)
}

func TestEligibilityRetakeBypassesSheet(t *testing.T) {
	student := models.User{ID: "stu-1", Role: models.RoleStudent}
	courses := []models.Course{{ID: "crs-1", Code: "CS101"}}
	// Sheet names a different module, so only the failed published mark
	// admits the course.
	sheet := []models.StudentModuleAssignment{{StudentID: "stu-1", ModuleCode: "MA200"}}
	marks := []models.MarkDetail{{
		Mark:       models.Mark{StudentID: "stu-1", CourseID: "old-crs", Total: 42, IsPublished: true},
		CourseCode: "CS101",
	}}

	svc := newEligibilityFixture(t, student, courses, sheet, marks, nil)
	eligible, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, EligibilityReasonRetake, eligible[0].Reason)
}

func TestEligibilityPassingMarkDoesNotRetake(t *testing.T) {
	student := models.User{ID: "stu-1", Role: models.RoleStudent}
	courses := []models.Course{{ID: "crs-1", Code: "CS101", TargetYear: "Year 2"}}
	sheet := []models.StudentModuleAssignment{{StudentID: "stu-1", ModuleCode: "MA200"}}
	marks := []models.MarkDetail{{
		Mark:       models.Mark{StudentID: "stu-1", CourseID: "old-crs", Total: 65, IsPublished: true},
		CourseCode: "CS101",
	}}

	svc := newEligibilityFixture(t, student, courses, sheet, marks, nil)
	eligible, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestEligibilityIntakeCohortMatch(t *testing.T) {
	student := models.User{ID: "stu-1", Role: models.RoleStudent, Intake: "September", CohortYear: "2024"}
	courses := []models.Course{
		{ID: "crs-1", Code: "CS101", Intake: "Sept", CohortYear: "2024"},
		{ID: "crs-2", Code: "CS102", Intake: "Jan", CohortYear: "2024"},
		{ID: "crs-3", Code: "CS103", Intake: "", CohortYear: "2024"},
	}
	// A non-empty sheet suppresses the legacy fallback, so only the
	// intake/cohort rule can admit anything here.
	sheet := []models.StudentModuleAssignment{{StudentID: "stu-1", ModuleCode: "XX000"}}

	svc := newEligibilityFixture(t, student, courses, sheet, nil, nil)
	eligible, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "crs-1", eligible[0].Course.ID)
	assert.Equal(t, EligibilityReasonIntake, eligible[0].Reason)
}

func TestEligibilityLegacyFallbackRequiresEmptySheet(t *testing.T) {
	student := models.User{ID: "stu-1", Role: models.RoleStudent, AcademicYear: "Year 2"}
	courses := []models.Course{
		{ID: "crs-1", Code: "CS201", TargetYear: "2"},
		{ID: "crs-2", Code: "CS301", TargetYear: "Year 3"},
		{ID: "crs-3", Code: "CS999"}, // absent target year auto-matches
	}

	svc := newEligibilityFixture(t, student, courses, nil, nil, nil)
	eligible, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, EligibilityReasonLegacy, eligible[0].Reason)
	assert.Equal(t, "crs-1", eligible[0].Course.ID)
	assert.Equal(t, "crs-3", eligible[1].Course.ID)

	// The same student with any sheet entry loses the fallback path.
	withSheet := newEligibilityFixture(t, student, courses,
		[]models.StudentModuleAssignment{{StudentID: "stu-1", ModuleCode: "ZZ100"}}, nil, nil)
	eligible, err = withSheet.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestEligibilityExcludesEnrolledCourses(t *testing.T) {
	student := models.User{ID: "stu-1", Role: models.RoleStudent}
	courses := []models.Course{{ID: "crs-1", Code: "CS101"}}
	sheet := []models.StudentModuleAssignment{{StudentID: "stu-1", ModuleCode: "CS101"}}
	enrolled := []models.Enrollment{{StudentID: "stu-1", CourseID: "crs-1"}}

	svc := newEligibilityFixture(t, student, courses, sheet, nil, enrolled)
	eligible, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestEligibilityCachesPerStudent(t *testing.T) {
	student := models.User{ID: "stu-1", Role: models.RoleStudent}
	cache := &mockEligibilityCache{}
	users := &mockUserReader{users: map[string]models.User{"stu-1": student}}
	catalog := &mockCatalogReader{courses: []models.Course{{ID: "crs-1", Code: "CS101"}}}
	sheets := &mockSheetReader{entries: map[string][]models.StudentModuleAssignment{
		"stu-1": {{StudentID: "stu-1", ModuleCode: "CS101"}},
	}}
	svc := NewEligibilityService(users, catalog, sheets, &mockEligibilityMarkReader{}, &mockEnrollmentReader{}, cache, 50, time.Minute, nil)

	first, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Contains(t, cache.store, eligibilityCacheKey("stu-1"))

	// A catalog change is not seen until the cache is invalidated.
	catalog.courses = nil
	second, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, second, 1)

	svc.Invalidate(context.Background(), "stu-1")
	third, err := svc.EligibleCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestEligibilityRejectsNonStudent(t *testing.T) {
	lecturer := models.User{ID: "lec-1", Role: models.RoleLecturer}
	svc := newEligibilityFixture(t, lecturer, nil, nil, nil, nil)

	_, err := svc.EligibleCourses(context.Background(), "lec-1")
	require.Error(t, err)
}
