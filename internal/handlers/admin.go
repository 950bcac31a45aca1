package handlers

import (
	"fmt"
	"net/http"

	"lawdesk/internal/apperr"
	"lawdesk/internal/logging"
	"lawdesk/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) APIListUsers(c *gin.Context) {
	var roles []models.UserRole
	if r := c.Query("role"); r != "" {
		roles = append(roles, models.UserRole(r))
	}
	users, err := h.Store.ListUsers(c.Request.Context(), roles...)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, users)
}

func (h *Handler) APICreateUser(c *gin.Context) {
	var body struct {
		Email      string          `json:"email"`
		FullName   string          `json:"full_name"`
		Password   string          `json:"password"`
		Role       models.UserRole `json:"role"`
		HourlyRate float64         `json:"hourly_rate"`
	}
	if !bindJSON(c, &body) {
		return
	}
	u := models.User{
		Email:      body.Email,
		FullName:   body.FullName,
		Role:       body.Role,
		HourlyRate: body.HourlyRate,
		Active:     true,
	}
	if err := h.Store.CreateUser(c.Request.Context(), &u, body.Password); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "create", "user", u.ID, nil, u)
	ok(c, http.StatusCreated, u)
}

func (h *Handler) APIChangeRole(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var body struct {
		Role models.UserRole `json:"role" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if id == currentUserID(c) && body.Role != models.RoleAdmin {
		fail(c, fmt.Errorf("demote yourself: %w", apperr.ErrForbidden))
		return
	}
	ctx := c.Request.Context()
	before, err := h.Store.GetUser(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	u, err := h.Store.UpdateUserRole(ctx, id, body.Role)
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "role_change", "user", id, gin.H{"role": before.Role}, gin.H{"role": u.Role})
	ok(c, http.StatusOK, u)
}

// APISetUserActive disables or re-enables an account; a disabled user can
// no longer log in and existing sessions stop resolving.
func (h *Handler) APISetUserActive(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if id == currentUserID(c) && !*body.Active {
		fail(c, fmt.Errorf("disable yourself: %w", apperr.ErrForbidden))
		return
	}
	u, err := h.Store.SetUserActive(c.Request.Context(), id, *body.Active)
	if err != nil {
		fail(c, err)
		return
	}
	if !u.Active {
		h.revokeSessions(c, id)
	}
	h.audit(c, "set_active", "user", id, nil, gin.H{"active": u.Active})
	ok(c, http.StatusOK, u)
}

func (h *Handler) revokeSessions(c *gin.Context, userID uint) {
	ctx := c.Request.Context()
	log := logging.FromContext(ctx)
	tokens, err := h.Store.RevokeUserSessions(ctx, userID)
	if err != nil {
		log.Warn("revoke sessions failed", "user_id", userID, "err", err)
		return
	}
	for _, token := range tokens {
		if err := h.Sessions.Delete(ctx, token); err != nil {
			log.Warn("session mirror delete failed", "user_id", userID, "err", err)
		}
	}
}
