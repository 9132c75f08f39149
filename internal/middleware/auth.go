package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/pluvial233/WHU-teamwork/internal/models"
)

// Session keys shared with the handlers.
const (
	SessionUserID = "user_id"
	SessionRole   = "role"
)

// RequireLogin redirects unauthenticated requests to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		if sess.Get(SessionUserID) == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests whose session role is not admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		role, _ := sess.Get(SessionRole).(string)
		if role != string(models.UserRoleAdmin) {
			c.String(http.StatusForbidden, "无权限访问此功能")
			c.Abort()
			return
		}
		c.Next()
	}
}
