package handlers

import (
	"net/http"
	"time"

	"lawdesk/internal/billing"
	"lawdesk/internal/database"
	"lawdesk/internal/logging"

	"github.com/gin-gonic/gin"
)

// dashboard serves the stats from Redis when cached; writes that change
// them call invalidateReports.
func (h *Handler) dashboard(c *gin.Context) (*database.DashboardStats, error) {
	ctx := c.Request.Context()
	var stats database.DashboardStats
	hit, err := h.Cache.GetJSON(ctx, dashboardCacheKey, &stats)
	if err != nil {
		logging.FromContext(ctx).Warn("dashboard cache read failed", "err", err)
	}
	if hit {
		return &stats, nil
	}

	if _, err := h.Store.MarkOverdue(ctx); err != nil {
		return nil, err
	}
	fresh, err := h.Store.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.Cache.SetJSON(ctx, dashboardCacheKey, fresh); err != nil {
		logging.FromContext(ctx).Warn("dashboard cache write failed", "err", err)
	}
	return fresh, nil
}

func (h *Handler) ShowDashboard(c *gin.Context) {
	stats, err := h.dashboard(c)
	if err != nil {
		renderError(c, err)
		return
	}
	aging, err := h.Store.ARAging(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, "dashboard.html", gin.H{
		"stats":   stats,
		"aging":   aging,
		"buckets": billing.AgingBuckets,
		"connect": c.Query("connect"),
	})
}

func (h *Handler) APIDashboard(c *gin.Context) {
	stats, err := h.dashboard(c)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// APIBillableHours reports per-user hours; the default window is the
// current calendar month.
func (h *Handler) APIBillableHours(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		fail(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}
	now := h.Store.Now()
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, 0)
	}
	if !to.After(from) {
		fail(c, badRequest("to must be after from"))
		return
	}
	rows, err := h.Store.BillableHours(c.Request.Context(), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"from": from, "to": to, "rows": rows})
}

func (h *Handler) APIARAging(c *gin.Context) {
	if _, err := h.Store.MarkOverdue(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	report, err := h.Store.ARAging(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, report)
}
