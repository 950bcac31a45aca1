package handlers

import (
	"net/http"

	"lawdesk/internal/logging"
	"lawdesk/internal/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) IndexPage(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	render(c, http.StatusOK, "index.html", gin.H{
		"aiEnabled":       h.Assistant.Enabled(),
		"paymentsEnabled": h.Payments != nil,
	})
}

// Health reports database and Redis reachability.
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "disabled"}
	if err := h.Store.Ping(ctx); err != nil {
		logging.FromContext(ctx).Error("health: database", "err", err)
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	}
	if h.Cache.Enabled() {
		checks["redis"] = "ok"
		if err := h.Cache.Ping(ctx); err != nil {
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}
