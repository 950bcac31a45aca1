package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"lawdesk/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(user *models.User, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.Use(func(c *gin.Context) {
		if user != nil {
			SetCurrentUser(c, user)
		}
		c.Next()
	})
	r.Use(mw...)
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/api/thing", ok)
	r.GET("/page", ok)
	return r
}

func get(r http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRole(t *testing.T) {
	gate := RequireRole(models.BillingRoles...)

	w := get(newEngine(nil, gate), "/api/thing")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	w = get(newEngine(nil, gate), "/page")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	para := &models.User{Role: models.RoleParalegal}
	w = get(newEngine(para, gate), "/api/thing")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	partner := &models.User{Role: models.RolePartner}
	w = get(newEngine(partner, gate), "/api/thing")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	r := newEngine(nil, RequestID(), SecurityHeaders())

	w := get(r, "/page", RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = get(r, "/page")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	w = get(r, "/page", "X-Forwarded-Proto", "https")
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRecoveryAnswersJSONForAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/api/boom", func(*gin.Context) { panic("boom") })

	w := get(r, "/api/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
