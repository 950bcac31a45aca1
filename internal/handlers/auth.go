package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"lawdesk/internal/apperr"
	"lawdesk/internal/cache"
	"lawdesk/internal/logging"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// selfServiceRoles may be picked on the registration form; partners and
// admins are appointed through the admin API.
var selfServiceRoles = []models.UserRole{models.RoleAttorney, models.RoleAssociate, models.RoleParalegal}

func (h *Handler) ShowRegister(c *gin.Context) {
	render(c, http.StatusOK, "register.html", gin.H{"error": "", "roles": selfServiceRoles})
}

type registerForm struct {
	FullName string `form:"full_name"`
	Email    string `form:"email"`
	Password string `form:"password"`
	Role     string `form:"role"`
}

func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		render(c, http.StatusBadRequest, "register.html", gin.H{"error": "Invalid form data", "roles": selfServiceRoles})
		return
	}

	role := models.UserRole(form.Role)
	allowed := false
	for _, r := range selfServiceRoles {
		allowed = allowed || r == role
	}
	if !allowed {
		render(c, http.StatusBadRequest, "register.html", gin.H{"error": "Invalid role", "roles": selfServiceRoles})
		return
	}

	user := models.User{
		Email:    form.Email,
		FullName: strings.TrimSpace(form.FullName),
		Role:     role,
		Active:   true,
	}
	if err := h.Store.CreateUser(c.Request.Context(), &user, form.Password); err != nil {
		info := apperr.Classify(err)
		render(c, info.Status, "register.html", gin.H{"error": info.Message, "roles": selfServiceRoles})
		return
	}
	h.audit(c, "register", "user", user.ID, nil, user)

	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) ShowLogin(c *gin.Context) {
	render(c, http.StatusOK, "login.html", gin.H{"error": ""})
}

type loginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Invalid form data"})
		return
	}
	if !h.Limiter.Allow(c.Request.Context(), "login:"+c.ClientIP()) {
		render(c, http.StatusTooManyRequests, "login.html", gin.H{"error": "Too many login attempts, wait a minute"})
		return
	}

	user, err := h.Store.Authenticate(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Invalid email or password"})
		return
	}
	if err := h.startSession(c, user); err != nil {
		renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) Logout(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusFound, "/login")
}

// startSession records the login, mirrors the token into Redis and writes
// the cookie.
func (h *Handler) startSession(c *gin.Context, user *models.User) error {
	ctx := c.Request.Context()
	rec, err := h.Store.CreateSession(ctx, user.ID, c.ClientIP(), c.Request.UserAgent(), cache.SessionTTL)
	if err != nil {
		return err
	}
	if err := h.Sessions.Put(ctx, rec.Token, user.ID); err != nil {
		return err
	}

	sess := sessions.Default(c)
	sess.Clear()
	sess.Set(middleware.SessionUserID, user.ID)
	sess.Set(middleware.SessionRole, string(user.Role))
	sess.Set(middleware.SessionLoggedIn, true)
	sess.Set(middleware.SessionToken, rec.Token)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}

	middleware.SetCurrentUser(c, user)
	h.audit(c, "login", "user", user.ID, nil, gin.H{"ip": c.ClientIP()})
	return nil
}

func (h *Handler) endSession(c *gin.Context) {
	ctx := c.Request.Context()
	sess := sessions.Default(c)
	if token, _ := sess.Get(middleware.SessionToken).(string); token != "" {
		if err := h.Store.RevokeSession(ctx, token); err != nil {
			logging.FromContext(ctx).Warn("revoke session failed", "err", err)
		}
		if err := h.Sessions.Delete(ctx, token); err != nil {
			logging.FromContext(ctx).Warn("drop mirrored session failed", "err", err)
		}
	}
	if uid, _ := sess.Get(middleware.SessionUserID).(uint); uid != 0 {
		h.audit(c, "logout", "user", uid, nil, nil)
	}
	sess.Clear()
	_ = sess.Save()
}

func (h *Handler) APILogin(c *gin.Context) {
	var form loginForm
	if !bindJSON(c, &form) {
		return
	}
	if !h.Limiter.Allow(c.Request.Context(), "login:"+c.ClientIP()) {
		fail(c, fmt.Errorf("login rate limit exceeded"))
		return
	}
	user, err := h.Store.Authenticate(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.startSession(c, user); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}

func (h *Handler) APILogout(c *gin.Context) {
	h.endSession(c)
	ok(c, http.StatusOK, gin.H{"logged_out": true})
}

func (h *Handler) APIMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		fail(c, apperr.ErrUnauthorized)
		return
	}
	ok(c, http.StatusOK, user)
}
