package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educlove/educlove-backend/internal/api/middleware"
	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/utils"
)

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code, body.Error.Message
}

func TestWriteError_MapsCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", utils.E(utils.CodeNotFound, "Op", "profile not found", nil), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", utils.E(utils.CodeConflict, "Op", "already exists", nil), http.StatusConflict, "CONFLICT"},
		{"forbidden", utils.E(utils.CodeForbidden, "Op", "not a participant", nil), http.StatusForbidden, "FORBIDDEN"},
		{"invalid", utils.E(utils.CodeInvalidArgument, "Op", "bad input", nil), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"plain error", assert.AnError, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext(t)
			writeError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			code, _ := decodeError(t, w)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	c, w := testContext(t)
	writeError(c, utils.E(utils.CodeInternal, "Op", "mongo exploded with credentials", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	_, msg := decodeError(t, w)
	assert.Equal(t, "internal error", msg)
}

func TestRequireUser(t *testing.T) {
	c, w := testContext(t)
	_, ok := requireUser(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, _ = testContext(t)
	c.Set(middleware.CtxUserKey, &models.User{ID: "user-1"})
	u, ok := requireUser(c)
	require.True(t, ok)
	assert.Equal(t, "user-1", u.ID)
}

func TestRequireProfile(t *testing.T) {
	c, w := testContext(t)
	c.Set(middleware.CtxUserKey, &models.User{ID: "user-1"})
	_, _, ok := requireProfile(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	profileID := "65f000000000000000000001"
	c, _ = testContext(t)
	c.Set(middleware.CtxUserKey, &models.User{ID: "user-1", ProfileID: &profileID})
	_, got, ok := requireProfile(c)
	require.True(t, ok)
	assert.Equal(t, profileID, got)
}
