package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/models"
	"github.com/saxenaaman628/election-observer/internal/utils"
)

const (
	userIDKey = "userID"
	userKey   = "user"
	roleKey   = "role"
)

type UserLoader interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// JWTAuthMiddleware requires a bearer access token whose user still exists
// and is active.
func JWTAuthMiddleware(tokens *utils.TokenManager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			abort(c, apperr.Unauthorized("Access token required"))
			return
		}

		claims, err := tokens.ParseAccessToken(strings.TrimSpace(raw))
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				abort(c, apperr.Unauthorized("Token expired"))
				return
			}
			abort(c, apperr.Unauthorized("Invalid token"))
			return
		}

		user, err := users.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperr.StatusOf(err) == http.StatusNotFound || apperr.IsNotFound(err) {
				abort(c, apperr.Unauthorized("User not found or inactive"))
				return
			}
			abort(c, err)
			return
		}
		if !user.IsActive {
			abort(c, apperr.Unauthorized("User not found or inactive"))
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(userKey, user)
		c.Set(roleKey, string(user.Role))
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil on public routes.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RequireRoles answers 403 unless the caller holds one of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abort(c, apperr.Unauthorized("Authentication required"))
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		abort(c, apperr.Forbidden("Insufficient permissions"))
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.AdminRoles...)
}

func RequireSuperAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleSuperAdmin)
}

// RequireDevice limits field submissions to users with a registered IMEI.
func RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abort(c, apperr.Unauthorized("Authentication required"))
			return
		}
		if !user.HasDevice() {
			abort(c, apperr.Forbidden("IMEI registration required for this operation"))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
