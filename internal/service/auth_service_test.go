package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
)

type mockAuthUserRepo struct {
	byReg   map[string]models.User
	created *models.User
}

func (m *mockAuthUserRepo) FindByRegNumber(ctx context.Context, regNumber string) (*models.User, error) {
	if user, ok := m.byReg[regNumber]; ok {
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, user := range m.byReg {
		if user.ID == id {
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "new-user"
	}
	if m.byReg == nil {
		m.byReg = make(map[string]models.User)
	}
	m.byReg[user.RegNumber] = *user
	m.created = user
	return nil
}

func newAuthFixture(t *testing.T, users map[string]models.User) *AuthService {
	t.Helper()
	return NewAuthService(&mockAuthUserRepo{byReg: users}, nil, nil, AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "portal-api",
	})
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthLoginIssuesValidToken(t *testing.T) {
	svc := newAuthFixture(t, map[string]models.User{
		"R-001": {ID: "usr-1", RegNumber: "R-001", FullName: "Test Student", Role: models.RoleStudent, PasswordHash: hashFor(t, "secret1")},
	})

	resp, err := svc.Login(context.Background(), models.LoginRequest{RegNumber: "R-001", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "usr-1", resp.User.ID)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, "R-001", claims.RegNumber)
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthFixture(t, map[string]models.User{
		"R-001": {ID: "usr-1", RegNumber: "R-001", PasswordHash: hashFor(t, "secret1")},
	})

	_, err := svc.Login(context.Background(), models.LoginRequest{RegNumber: "R-001", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{RegNumber: "ghost", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsTampering(t *testing.T) {
	svc := newAuthFixture(t, map[string]models.User{
		"R-001": {ID: "usr-1", RegNumber: "R-001", PasswordHash: hashFor(t, "secret1")},
	})
	resp, err := svc.Login(context.Background(), models.LoginRequest{RegNumber: "R-001", Password: "secret1"})
	require.NoError(t, err)

	other := NewAuthService(&mockAuthUserRepo{}, nil, nil, AuthConfig{TokenSecret: "different", TokenExpiry: time.Hour})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestAuthRegisterHashesPassword(t *testing.T) {
	repo := &mockAuthUserRepo{}
	svc := NewAuthService(repo, nil, nil, AuthConfig{TokenSecret: "s", TokenExpiry: time.Hour})

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		RegNumber: "R-100",
		FullName:  "New Student",
		Password:  "secret1",
		Role:      models.RoleStudent,
		Intake:    "Sept",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		RegNumber: "R-100",
		FullName:  "Duplicate",
		Password:  "secret2",
		Role:      models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
