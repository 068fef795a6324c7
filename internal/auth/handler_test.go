package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-crm/meridian/internal/auth"
	"github.com/meridian-crm/meridian/internal/shared"
	_ "github.com/meridian-crm/meridian/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID string, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func TestLoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{
		ID:           "user-1",
		Email:        "owner@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"owner@example.com","password":"correct-horse"}`))
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload struct {
		UserID    string `json:"user_id"`
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, "user-1", payload.UserID)
	assert.NotEmpty(t, payload.CSRFToken)
	assert.Equal(t, "user-1", sess.User())
}

func TestLoginInvalidCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{
		ID:           "user-1",
		Email:        "owner@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"owner@example.com","password":"wrong-password"}`))
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Empty(t, sess.User())
}

func TestLoginInactiveAccount(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{
		ID:           "user-1",
		Email:        "owner@example.com",
		PasswordHash: string(hash),
		IsActive:     false,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"owner@example.com","password":"correct-horse"}`))
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
