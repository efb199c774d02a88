package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pvflow/internal/config"
	"pvflow/internal/dto"
	"pvflow/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── In-memory UserRepository stub ────────────────────────────────────────────

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) && u.Active {
			return u, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return u, nil
}

func (r *stubUserRepo) List(_ context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) ListAll(_ context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) TouchLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := r.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (r *stubUserRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (r *stubUserRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.Active = true
	}
	return nil
}

// ── Tests ────────────────────────────────────────────────────────────────────

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 8, JWTRefreshHours: 24}
}

func TestAuthService_LoginIssuesClaims(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, testConfig())
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, dto.CreateUserRequest{
		Email: "Ana@PV.test", Name: "Ana", Password: "segredo123", Role: "USER", Department: "ESTOQUE",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@pv.test", created.Email)

	resp, err := svc.Login(ctx, dto.LoginRequest{Email: "ana@pv.test", Password: "segredo123"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 8*3600, resp.ExpiresIn)
	assert.Equal(t, "ESTOQUE", resp.User.Department)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims["user_id"])
	assert.Equal(t, "ESTOQUE", claims["department"])
	assert.Equal(t, "USER", claims["role"])
	assert.Equal(t, "Ana", claims["name"])

	uid := uuid.MustParse(created.ID)
	assert.NotNil(t, repo.users[uid].LastLoginAt)
}

func TestAuthService_LoginRejectsBadPassword(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), testConfig())
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, dto.CreateUserRequest{Email: "a@pv.test", Name: "A", Password: "segredo123", Role: "USER", Department: "COMPRAS"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "a@pv.test", Password: "errada"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "b@pv.test", Password: "segredo123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, testConfig())
	ctx := context.Background()
	created, err := svc.CreateUser(ctx, dto.CreateUserRequest{Email: "r@pv.test", Name: "R", Password: "segredo123", Role: "ADMIN", Department: "ADMIN"})
	require.NoError(t, err)
	login, err := svc.Login(ctx, dto.LoginRequest{Email: "r@pv.test", Password: "segredo123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.DeactivateUser(ctx, uuid.MustParse(created.ID)))
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_UpdateAndList(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), testConfig())
	ctx := context.Background()
	created, err := svc.CreateUser(ctx, dto.CreateUserRequest{Email: "u@pv.test", Name: "U", Password: "segredo123", Role: "USER", Department: "COMPRAS"})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	updated, err := svc.UpdateUser(ctx, id, dto.UpdateUserRequest{Department: "FINANCEIRO", Password: "novasenha1"})
	require.NoError(t, err)
	assert.Equal(t, "FINANCEIRO", updated.Department)
	assert.Equal(t, "USER", updated.Role)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "u@pv.test", Password: "novasenha1"})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, uuid.New(), dto.UpdateUserRequest{Name: "X"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, svc.DeactivateUser(ctx, id))
	active, _ := svc.ListUsers(ctx, false)
	all, _ := svc.ListUsers(ctx, true)
	assert.Empty(t, active)
	assert.Len(t, all, 1)

	require.NoError(t, svc.ReactivateUser(ctx, id))
	active, _ = svc.ListUsers(ctx, false)
	assert.Len(t, active, 1)
}
