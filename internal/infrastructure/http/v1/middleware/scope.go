package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "reportengine/internal/core/context"
)

const (
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserID         = "X-User-ID"
	HeaderUserRoles      = "X-User-Roles"
)

// Scope puts the caller identity forwarded by the gateway into the request
// context. Authentication happens upstream; a missing organization is not
// rejected here, report execution refuses to run without one.
func Scope() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := strings.TrimSpace(c.GetHeader(HeaderOrganizationID))
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))

		if orgID != "" || userID != "" {
			user := &appctx.UserContext{
				UserID:         userID,
				OrganizationID: orgID,
				Roles:          splitRoles(c.GetHeader(HeaderUserRoles)),
			}
			for _, r := range user.Roles {
				if r == "admin" {
					user.IsAdmin = true
				}
			}

			c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
			c.Set("organization_id", orgID)
		}
		c.Next()
	}
}

func splitRoles(h string) []string {
	var roles []string
	for _, r := range strings.Split(h, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
