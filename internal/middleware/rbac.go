package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-report-api/internal/models"
	appErrors "github.com/noah-isme/lms-report-api/pkg/errors"
	"github.com/noah-isme/lms-report-api/pkg/response"
)

// RequireRoles only lets callers with one of the roles through. When the request carries an
// admin_id query parameter it must name the caller.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		if adminID := strings.TrimSpace(c.Query("admin_id")); adminID != "" && adminID != claims.AdminID() {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin_id does not match token"))
			c.Abort()
			return
		}

		c.Next()
	}
}
