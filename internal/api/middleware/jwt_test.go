package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/services"
	"github.com/educlove/educlove-backend/internal/utils"
)

type stubUserRepo struct {
	lastIdentity models.Identity
}

func (s *stubUserRepo) UpsertFromIdentity(_ context.Context, id models.Identity) (*models.User, error) {
	s.lastIdentity = id
	return &models.User{ID: "user-1", Sub: id.Sub, Email: id.Email}, nil
}

func (s *stubUserRepo) GetBySub(context.Context, string) (*models.User, error) {
	return nil, utils.ErrNotFound
}

func (s *stubUserRepo) GetByID(context.Context, string) (*models.User, error) {
	return nil, utils.ErrNotFound
}

func (s *stubUserRepo) GetByProfileID(context.Context, string) (*models.User, error) {
	return nil, utils.ErrNotFound
}

func (s *stubUserRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, utils.ErrNotFound
}

func (s *stubUserRepo) LinkProfile(context.Context, string, string) error { return nil }

func (s *stubUserRepo) SetEmailVerified(context.Context, string, bool) error { return nil }

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func authTestRouter(t *testing.T, cfg AuthConfig) (*gin.Engine, *stubUserRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	repo := &stubUserRepo{}
	r := gin.New()
	r.GET("/whoami", Auth(cfg, services.NewUserService(repo, log), log), func(c *gin.Context) {
		u := c.MustGet(CtxUserKey).(*models.User)
		c.JSON(http.StatusOK, gin.H{"id": u.ID})
	})
	return r, repo
}

func TestAuth_ValidToken(t *testing.T) {
	secret := []byte("test-secret")
	r, repo := authTestRouter(t, AuthConfig{Secret: secret})

	token := signToken(t, secret, jwt.MapClaims{
		"sub":            "auth0|abc",
		"email":          "claire@example.org",
		"name":           "Claire",
		"email_verified": true,
		"exp":            time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "auth0|abc", repo.lastIdentity.Sub)
	assert.Equal(t, "claire@example.org", repo.lastIdentity.Email)
	assert.True(t, repo.lastIdentity.EmailVerified)
}

func TestAuth_MissingToken(t *testing.T) {
	r, _ := authTestRouter(t, AuthConfig{Secret: []byte("test-secret")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_WrongSecret(t *testing.T) {
	r, _ := authTestRouter(t, AuthConfig{Secret: []byte("right-secret")})

	token := signToken(t, []byte("wrong-secret"), jwt.MapClaims{
		"sub": "auth0|abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	r, _ := authTestRouter(t, AuthConfig{Secret: secret})

	token := signToken(t, secret, jwt.MapClaims{
		"sub": "auth0|abc",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_TokenFromQueryParam(t *testing.T) {
	secret := []byte("test-secret")
	r, _ := authTestRouter(t, AuthConfig{Secret: secret})

	token := signToken(t, secret, jwt.MapClaims{
		"sub": "auth0|abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_SubjectRequired(t *testing.T) {
	secret := []byte("test-secret")
	r, _ := authTestRouter(t, AuthConfig{Secret: secret})

	token := signToken(t, secret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
