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

type mockClaimRepo struct {
	claims map[string]models.Claim
}

func (m *mockClaimRepo) FindByID(ctx context.Context, id string) (*models.Claim, error) {
	if claim, ok := m.claims[id]; ok {
		return &claim, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClaimRepo) List(ctx context.Context, filter models.ClaimFilter) ([]models.ClaimDetail, error) {
	var out []models.ClaimDetail
	for _, claim := range m.claims {
		if filter.StudentID != "" && claim.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && claim.Status != filter.Status {
			continue
		}
		out = append(out, models.ClaimDetail{Claim: claim})
	}
	return out, nil
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *models.Claim) error {
	if m.claims == nil {
		m.claims = make(map[string]models.Claim)
	}
	if claim.ID == "" {
		claim.ID = "new-claim"
	}
	m.claims[claim.ID] = *claim
	return nil
}

func (m *mockClaimRepo) Resolve(ctx context.Context, id string, status models.ClaimStatus, comment string, resolvedAt time.Time) (bool, error) {
	claim, ok := m.claims[id]
	if !ok || claim.Status != models.ClaimStatusPending {
		return false, nil
	}
	claim.Status = status
	claim.LecturerComment = comment
	claim.ResolvedAt = &resolvedAt
	m.claims[id] = claim
	return true, nil
}

func newClaimFixture(markRepo *mockMarkRepo, claimRepo *mockClaimRepo, claimsEnabled bool) *ClaimService {
	courses := &mockCourseReader{courses: map[string]models.Course{
		"crs-1": {ID: "crs-1", Code: "CS101", ClaimsEnabled: claimsEnabled},
	}}
	marks := NewMarkService(markRepo, courses, nil, nil)
	return NewClaimService(claimRepo, marks, courses, nil, nil)
}

func publishedMark() map[string]models.Mark {
	return map[string]models.Mark{
		"mrk-1": {
			ID:             "mrk-1",
			StudentID:      "stu-1",
			CourseID:       "crs-1",
			MarkComponents: models.MarkComponents{CAT: 10, FAT: 28},
			Total:          38,
			IsPublished:    true,
		},
	}
}

func TestClaimSubmitSnapshotsOriginalMark(t *testing.T) {
	markRepo := &mockMarkRepo{marks: publishedMark()}
	claimRepo := &mockClaimRepo{}
	svc := newClaimFixture(markRepo, claimRepo, true)

	claim, err := svc.Submit(context.Background(), SubmitClaimRequest{
		StudentID:      "stu-1",
		MarkID:         "mrk-1",
		AssessmentType: models.AssessmentFAT,
		Explanation:    "question 4 was marked wrong",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusPending, claim.Status)
	assert.Equal(t, 28.0, claim.OriginalMark)
	assert.Equal(t, "crs-1", claim.CourseID)
	assert.False(t, claim.SubmittedAt.IsZero())
}

func TestClaimSubmitRequiresClaimsEnabled(t *testing.T) {
	svc := newClaimFixture(&mockMarkRepo{marks: publishedMark()}, &mockClaimRepo{}, false)

	_, err := svc.Submit(context.Background(), SubmitClaimRequest{
		StudentID:      "stu-1",
		MarkID:         "mrk-1",
		AssessmentType: models.AssessmentFAT,
		Explanation:    "x",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrClaimsDisabled.Code, appErrors.FromError(err).Code)
}

func TestClaimSubmitRequiresPublishedMark(t *testing.T) {
	marks := publishedMark()
	draft := marks["mrk-1"]
	draft.IsPublished = false
	marks["mrk-1"] = draft
	svc := newClaimFixture(&mockMarkRepo{marks: marks}, &mockClaimRepo{}, true)

	_, err := svc.Submit(context.Background(), SubmitClaimRequest{
		StudentID:      "stu-1",
		MarkID:         "mrk-1",
		AssessmentType: models.AssessmentFAT,
		Explanation:    "x",
	})
	require.Error(t, err)
}

func TestClaimSubmitRejectsForeignMark(t *testing.T) {
	svc := newClaimFixture(&mockMarkRepo{marks: publishedMark()}, &mockClaimRepo{}, true)

	_, err := svc.Submit(context.Background(), SubmitClaimRequest{
		StudentID:      "stu-2",
		MarkID:         "mrk-1",
		AssessmentType: models.AssessmentFAT,
		Explanation:    "x",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestClaimResolveApproveWritesCorrection(t *testing.T) {
	markRepo := &mockMarkRepo{marks: publishedMark()}
	claimRepo := &mockClaimRepo{claims: map[string]models.Claim{
		"clm-1": {
			ID:             "clm-1",
			StudentID:      "stu-1",
			MarkID:         "mrk-1",
			AssessmentType: models.AssessmentFAT,
			OriginalMark:   28,
			Status:         models.ClaimStatusPending,
		},
	}}
	svc := newClaimFixture(markRepo, claimRepo, true)

	corrected := 35.0
	claim, err := svc.Resolve(context.Background(), "clm-1", ResolveClaimRequest{
		Decision:       "approve",
		CorrectedValue: &corrected,
	}, "lec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusApproved, claim.Status)
	assert.Equal(t, "Mark updated.", claim.LecturerComment)
	require.NotNil(t, claim.ResolvedAt)

	mark := markRepo.marks["mrk-1"]
	assert.Equal(t, 35.0, mark.FAT)
	assert.Equal(t, 45.0, mark.Total)
	require.Len(t, markRepo.history, 1)
	assert.Equal(t, models.MarkChangeReasonClaimResolution, markRepo.history[0].ChangeReason)
	assert.Equal(t, "lec-1", markRepo.history[0].ChangedBy)
}

func TestClaimResolveApproveRequiresCorrectedValue(t *testing.T) {
	claimRepo := &mockClaimRepo{claims: map[string]models.Claim{
		"clm-1": {ID: "clm-1", MarkID: "mrk-1", AssessmentType: models.AssessmentFAT, Status: models.ClaimStatusPending},
	}}
	markRepo := &mockMarkRepo{marks: publishedMark()}
	svc := newClaimFixture(markRepo, claimRepo, true)

	_, err := svc.Resolve(context.Background(), "clm-1", ResolveClaimRequest{Decision: "approve"}, "lec-1")
	require.Error(t, err)
	assert.Equal(t, models.ClaimStatusPending, claimRepo.claims["clm-1"].Status)
	assert.Empty(t, markRepo.history)
}

func TestClaimResolveRejectLeavesMarkUntouched(t *testing.T) {
	markRepo := &mockMarkRepo{marks: publishedMark()}
	claimRepo := &mockClaimRepo{claims: map[string]models.Claim{
		"clm-1": {ID: "clm-1", MarkID: "mrk-1", AssessmentType: models.AssessmentFAT, Status: models.ClaimStatusPending},
	}}
	svc := newClaimFixture(markRepo, claimRepo, true)

	claim, err := svc.Resolve(context.Background(), "clm-1", ResolveClaimRequest{Decision: "reject"}, "lec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusRejected, claim.Status)
	assert.Equal(t, "No errors found in marking.", claim.LecturerComment)
	assert.Empty(t, markRepo.history)
	assert.Equal(t, 28.0, markRepo.marks["mrk-1"].FAT)
}

func TestClaimResolveTwiceConflicts(t *testing.T) {
	markRepo := &mockMarkRepo{marks: publishedMark()}
	claimRepo := &mockClaimRepo{claims: map[string]models.Claim{
		"clm-1": {ID: "clm-1", MarkID: "mrk-1", AssessmentType: models.AssessmentFAT, Status: models.ClaimStatusPending},
	}}
	svc := newClaimFixture(markRepo, claimRepo, true)

	_, err := svc.Resolve(context.Background(), "clm-1", ResolveClaimRequest{Decision: "reject"}, "lec-1")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "clm-1", ResolveClaimRequest{Decision: "reject"}, "lec-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrClaimResolved.Code, appErrors.FromError(err).Code)
}
