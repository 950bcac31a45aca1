package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lawdesk/internal/apperr"
	"lawdesk/internal/database"
	"lawdesk/internal/logging"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"

	"github.com/gin-gonic/gin"
)

const dashboardCacheKey = "reports:dashboard"

// render wraps c.HTML and passes CurrentUser to every template.
func render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if u := middleware.CurrentUser(c); u != nil {
		data["CurrentUser"] = u
		data["CurrentUserRole"] = u.Role
		data["IsBilling"] = isBilling(u)
		data["IsAdmin"] = u.Role == models.RoleAdmin
	}
	c.HTML(status, tmpl, data)
}

// renderError shows a classified error on the generic error page.
func renderError(c *gin.Context, err error) {
	info := apperr.Classify(err)
	if info.Status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("page failed", "path", c.Request.URL.Path, "err", err)
	}
	render(c, info.Status, "error.html", gin.H{"error": info})
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// fail writes the error envelope for err.
func fail(c *gin.Context, err error) {
	info := apperr.Classify(err)
	if info.Status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.AbortWithStatusJSON(info.Status, gin.H{"success": false, "error": info})
}

// disabled answers 503 with a feature-specific code such as AI_DISABLED.
func disabled(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": apperr.Info{
		Code:       code,
		Status:     http.StatusServiceUnavailable,
		Message:    message,
		Suggestion: "Ask an administrator to configure this integration.",
	}})
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, apperr.ErrInvalid)...)
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid %s", name)
	}
	return uint(id), nil
}

func queryID(c *gin.Context, name string) uint {
	id, _ := strconv.ParseUint(c.Query(name), 10, 64)
	return uint(id)
}

func formID(c *gin.Context, name string) *uint {
	id, err := strconv.ParseUint(strings.TrimSpace(c.PostForm(name)), 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

// parseDate accepts 2006-01-02 and RFC 3339.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q", s)
	}
	return t.UTC(), nil
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, badRequest("invalid request body: %v", err))
		return false
	}
	return true
}

func currentUserID(c *gin.Context) uint {
	if u := middleware.CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}

func isBilling(u *models.User) bool {
	if u == nil {
		return false
	}
	for _, r := range models.BillingRoles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// audit records a mutation. Failures are logged, never returned: the
// change itself already happened.
func (h *Handler) audit(c *gin.Context, action, resource string, id uint, oldV, newV any) {
	err := h.Store.WriteAudit(c.Request.Context(), database.AuditEntry{
		UserID:       currentUserID(c),
		Action:       action,
		ResourceType: resource,
		ResourceID:   id,
		Old:          oldV,
		New:          newV,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	if err != nil {
		logging.FromContext(c.Request.Context()).Warn("audit write failed", "resource", resource, "id", id, "err", err)
	}
}

// invalidateReports drops cached report data after a write that changes it.
func (h *Handler) invalidateReports(ctx context.Context) {
	if err := h.Cache.Delete(ctx, dashboardCacheKey); err != nil {
		logging.FromContext(ctx).Warn("cache invalidation failed", "err", err)
	}
}
