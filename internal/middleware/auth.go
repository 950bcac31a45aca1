package middleware

import (
	"net/http"
	"strings"

	"lawdesk/internal/cache"
	"lawdesk/internal/database"
	"lawdesk/internal/logging"
	"lawdesk/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Cookie session keys.
const (
	SessionUserID   = "user_id"
	SessionRole     = "role"
	SessionLoggedIn = "logged_in"
	SessionToken    = "session_token"
)

// IsAPI reports whether the request targets the JSON API.
func IsAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

func deny(c *gin.Context, status int, code, message string) {
	if IsAPI(c) {
		c.AbortWithStatusJSON(status, gin.H{
			"success": false,
			"error":   gin.H{"code": code, "message": message},
		})
		return
	}
	if status == http.StatusUnauthorized {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}
	c.String(status, message)
	c.Abort()
}

// RequireAuth lets the request through only with a logged-in cookie whose
// session token is still live and whose user is still active. With Redis
// the mirror decides on the token, otherwise the sessions table does.
func RequireAuth(store *database.Store, mirror *cache.SessionMirror) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		uid, _ := sess.Get(SessionUserID).(uint)
		token, _ := sess.Get(SessionToken).(string)
		if uid == 0 || token == "" {
			deny(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.")
			return
		}

		ctx := c.Request.Context()
		live := false
		if mirror.Enabled() {
			mirrored, ok, err := mirror.Lookup(ctx, token)
			if err != nil {
				logging.FromContext(ctx).Warn("session mirror lookup failed", "err", err)
			}
			live = ok && mirrored == uid
		} else if s, err := store.GetSession(ctx, token); err == nil {
			live = s.UserID == uid && s.Active(store.Now())
		}
		// a deactivated or deleted account drops out in InjectUser
		if user := CurrentUser(c); user == nil || user.ID != uid {
			live = false
		}
		if !live {
			sess.Clear()
			_ = sess.Save()
			deny(c, http.StatusUnauthorized, "UNAUTHORIZED", "Session expired.")
			return
		}
		c.Next()
	}
}

// RequireRole checks the role of the user loaded by InjectUser, so role
// changes apply on the next request instead of the next login.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			deny(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.")
			return
		}
		if _, ok := roleSet[user.Role]; !ok {
			deny(c, http.StatusForbidden, "FORBIDDEN", "access denied")
			return
		}
		c.Next()
	}
}
