package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/educlove/educlove-backend/internal/api/middleware"
	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/utils"
)

// writeError renders the unified error payload. Internal details never
// reach the client; the request logger has the full chain.
func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	code := "INTERNAL"
	msg := "internal error"
	var ae *utils.AppError
	if errors.As(err, &ae) {
		code = string(ae.Code)
		if ae.Message != "" {
			msg = ae.Message
		}
	}
	if status >= 500 {
		msg = "internal error"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": msg},
	})
}

func writeInvalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": gin.H{"code": "INVALID_ARGUMENT", "message": msg},
	})
}

// requireUser returns the authenticated user placed by the auth
// middleware, writing 401 when it is absent.
func requireUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(middleware.CtxUserKey)
	if ok {
		if u, ok := v.(*models.User); ok {
			return u, true
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "UNAUTHORIZED", "message": "authentication required"},
	})
	return nil, false
}

// requireProfile additionally demands a completed profile and returns its id.
func requireProfile(c *gin.Context) (*models.User, string, bool) {
	u, ok := requireUser(c)
	if !ok {
		return nil, "", false
	}
	if u.ProfileID == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "INVALID_ARGUMENT", "message": "complete your profile first"},
		})
		return nil, "", false
	}
	return u, *u.ProfileID, true
}

func profilePayload(p *models.Profile) gin.H {
	return gin.H{"profile": p, "age": p.Age()}
}
