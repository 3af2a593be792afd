package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/services"
)

// Context keys set by the auth middleware.
const (
	CtxIdentityKey = "auth.identity"
	CtxUserKey     = "auth.user"
)

type AuthConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
}

func AuthConfigFromEnv() (AuthConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return AuthConfig{}, errors.New("JWT_SECRET is not set")
	}
	return AuthConfig{
		Secret:   []byte(secret),
		Issuer:   os.Getenv("JWT_ISSUER"),
		Audience: os.Getenv("JWT_AUDIENCE"),
	}, nil
}

// Auth validates the bearer token, mirrors the identity into the users
// table, and stores both on the request context.
func Auth(cfg AuthConfig, users *services.UserService, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
		if cfg.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(cfg.Issuer))
		}
		if cfg.Audience != "" {
			opts = append(opts, jwt.WithAudience(cfg.Audience))
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return cfg.Secret, nil
		}, opts...)
		if err != nil || !token.Valid {
			log.WithError(err).Debug("token rejected")
			unauthorized(c, "invalid token")
			return
		}

		id := identityFromClaims(claims)
		if id.Sub == "" {
			unauthorized(c, "token has no subject")
			return
		}

		u, err := users.EnsureUser(c.Request.Context(), id)
		if err != nil {
			log.WithError(err).WithField("sub", id.Sub).Error("identity mirror upsert failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"code": "INTERNAL", "message": "authentication failed"},
			})
			return
		}

		c.Set(CtxIdentityKey, id)
		c.Set(CtxUserKey, u)
		c.Next()
	}
}

func identityFromClaims(claims jwt.MapClaims) models.Identity {
	id := models.Identity{
		Sub:      strClaim(claims, "sub"),
		Email:    strClaim(claims, "email"),
		Name:     strClaim(claims, "name"),
		Picture:  strClaim(claims, "picture"),
		Provider: strClaim(claims, "iss"),
	}
	if v, ok := claims["email_verified"].(bool); ok {
		id.EmailVerified = v
	}
	return id
}

func strClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	// websocket clients cannot set headers from the browser
	return c.Query("token")
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "UNAUTHORIZED", "message": msg},
	})
}
