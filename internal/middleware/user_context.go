package middleware

import (
	"lawdesk/internal/database"
	"lawdesk/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "CurrentUser"

// InjectUser loads the session's user, if any, so pages and handlers can
// read it with CurrentUser. Inactive users are treated as anonymous.
func InjectUser(store *database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uid, ok := sess.Get(SessionUserID).(uint); ok && uid > 0 {
			if user, err := store.GetUser(c.Request.Context(), uid); err == nil && user.Active {
				c.Set(currentUserKey, user)
			}
		}

		c.Next()
	}
}

// CurrentUser returns the user stored by InjectUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// SetCurrentUser replaces the request's user, e.g. right after login.
func SetCurrentUser(c *gin.Context, u *models.User) {
	c.Set(currentUserKey, u)
}
