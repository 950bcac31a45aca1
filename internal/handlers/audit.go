package handlers

import (
	"net/http"
	"strconv"

	"lawdesk/internal/database"

	"github.com/gin-gonic/gin"
)

func auditFilter(c *gin.Context) database.AuditFilter {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return database.AuditFilter{
		ResourceType: c.Query("resource_type"),
		ResourceID:   queryID(c, "resource_id"),
		UserID:       queryID(c, "user_id"),
		Limit:        limit,
	}
}

func (h *Handler) ListAuditLogs(c *gin.Context) {
	logs, err := h.Store.ListAudit(c.Request.Context(), auditFilter(c))
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, "audit_list.html", gin.H{
		"logs":         logs,
		"resourceType": c.Query("resource_type"),
	})
}

func (h *Handler) APIListAudit(c *gin.Context) {
	logs, err := h.Store.ListAudit(c.Request.Context(), auditFilter(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, logs)
}
