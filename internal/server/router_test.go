package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"lawdesk/internal/ai"
	"lawdesk/internal/cache"
	"lawdesk/internal/config"
	"lawdesk/internal/database"
	"lawdesk/internal/extract"
	"lawdesk/internal/handlers"
	"lawdesk/internal/models"
	"lawdesk/internal/payments"
	"lawdesk/internal/realtime"
	"lawdesk/internal/storage"
	"lawdesk/internal/translate"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@lawdesk.local"
	adminPassword = "admin-pass-1"
	webhookSecret = "whsec_test"
)

type testApp struct {
	srv   *httptest.Server
	store *database.Store
	fake  *payments.Fake
	redis *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureAdmin(ctx, adminEmail, adminPassword))
	require.NoError(t, store.Seed(ctx))

	mr := miniredis.RunT(t)
	rdb, err := cache.Connect(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	files, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	translator, err := translate.New(nil)
	require.NoError(t, err)

	cfg := &config.Config{
		SessionSecret:           "test-session-secret-0123456789",
		LoginRateLimitPerMinute: 3,
		MaxUploadBytes:          1 << 20,
		PublicBaseURL:           "http://lawdesk.test",
		StripeCurrency:          "usd",
	}
	fake := &payments.Fake{Secret: webhookSecret}

	h := handlers.New(handlers.Deps{
		Config:     cfg,
		Store:      store,
		Cache:      cache.New(rdb, "lawdesk", cache.DefaultTTL),
		Sessions:   cache.NewSessionMirror(rdb, cache.SessionTTL),
		Limiter:    cache.NewRateLimiter(rdb, "ratelimit", cfg.LoginRateLimitPerMinute, time.Minute),
		Files:      files,
		Extractor:  extract.New("", "", ""),
		Assistant:  ai.NewAssistant(nil, false),
		Translator: translator,
		Payments:   fake,
		Hub:        realtime.NewHub(8),
	})
	r, err := NewRouter(cfg, h)
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, store: store, fake: fake, redis: mr}
}

// client returns an HTTP client with its own cookie jar that does not
// follow redirects.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path string, body any) (*http.Response, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(t, c, req)
}

func (a *testApp) send(t *testing.T, c *http.Client, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func (a *testApp) login(t *testing.T, email, password string) *http.Client {
	t.Helper()
	c := a.client(t)
	resp, env := a.do(t, c, http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)
	return c
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp, err := http.Get(app.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "ok", body.Checks["redis"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAnonymousAccess(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp, _ := app.do(t, c, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, env := app.do(t, c, http.MethodGet, "/api/clients", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = app.do(t, c, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPagesRenderForPartner(t *testing.T) {
	app := newTestApp(t)
	c := app.login(t, "partner@lawdesk.local", database.FixturePassword)

	pages := []string{
		"/dashboard", "/clients", "/clients/new", "/clients/1", "/clients/1/edit",
		"/cases", "/cases/new", "/cases/1", "/documents", "/time",
		"/invoices", "/invoices/1", "/calendar", "/audit",
	}
	for _, p := range pages {
		resp, _ := app.do(t, c, http.MethodGet, p, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}

	resp, _ := app.do(t, c, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestRoleGates(t *testing.T) {
	app := newTestApp(t)
	para := app.login(t, "paralegal@lawdesk.local", database.FixturePassword)

	resp, _ := app.do(t, para, http.MethodGet, "/api/clients", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := app.do(t, para, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = app.do(t, para, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	partner := app.login(t, "partner@lawdesk.local", database.FixturePassword)
	resp, _ = app.do(t, partner, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := app.login(t, adminEmail, adminPassword)
	resp, env = app.do(t, admin, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var users []models.User
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.GreaterOrEqual(t, len(users), 4)
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	for i := 0; i < 3; i++ {
		resp, _ := app.do(t, c, http.MethodPost, "/api/auth/login", gin.H{"email": "partner@lawdesk.local", "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ := app.do(t, c, http.MethodPost, "/api/auth/login", gin.H{"email": "partner@lawdesk.local", "password": database.FixturePassword})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	c := app.login(t, "associate@lawdesk.local", database.FixturePassword)

	resp, env := app.do(t, c, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, models.RoleAssociate, me.Role)

	// keep the old cookie around to replay after logout
	old := c.Jar.Cookies(mustURL(t, app.srv.URL))
	require.NotEmpty(t, old)

	resp, _ = app.do(t, c, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	replay := app.client(t)
	replay.Jar.SetCookies(mustURL(t, app.srv.URL), old)
	resp, _ = app.do(t, replay, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeactivatedUserLosesSession(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	assoc := app.login(t, "associate@lawdesk.local", database.FixturePassword)

	resp, env := app.do(t, assoc, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))

	admin := app.login(t, adminEmail, adminPassword)
	resp, env = app.do(t, admin, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var adminUser models.User
	require.NoError(t, json.Unmarshal(env.Data, &adminUser))

	// deactivated behind the API's back: the live token alone is not enough
	_, err := app.store.SetUserActive(ctx, me.ID, false)
	require.NoError(t, err)
	resp, _ = app.do(t, assoc, http.MethodPost, "/api/messages", gin.H{"recipient_id": adminUser.ID, "body": "still here?"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	msgs, err := app.store.ListMessages(ctx, adminUser.ID, false)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// through the admin API the sessions are revoked as well
	_, err = app.store.SetUserActive(ctx, me.ID, true)
	require.NoError(t, err)
	assoc = app.login(t, "associate@lawdesk.local", database.FixturePassword)
	live, err := app.store.ListActiveSessions(ctx, me.ID)
	require.NoError(t, err)
	require.NotEmpty(t, live)
	for _, s := range live {
		assert.True(t, app.redis.Exists("session:"+s.Token))
	}
	revoked := live

	resp, env = app.do(t, admin, http.MethodPatch, "/api/admin/users/"+itoa(me.ID)+"/active", gin.H{"active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)

	live, err = app.store.ListActiveSessions(ctx, me.ID)
	require.NoError(t, err)
	assert.Empty(t, live)
	for _, s := range revoked {
		assert.False(t, app.redis.Exists("session:"+s.Token))
	}
	resp, _ = app.do(t, assoc, http.MethodGet, "/api/messages", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBillingFlowWithWebhook(t *testing.T) {
	app := newTestApp(t)
	c := app.login(t, "partner@lawdesk.local", database.FixturePassword)

	resp, env := app.do(t, c, http.MethodPost, "/api/clients", gin.H{
		"type": "business", "company_name": "Initech", "email": "ap@initech.example",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)
	var client models.Client
	require.NoError(t, json.Unmarshal(env.Data, &client))
	assert.Equal(t, "Initech", client.Name)

	resp, env = app.do(t, c, http.MethodPost, "/api/cases", gin.H{"title": "Initech v. Chotchkie's", "client_id": client.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)
	var kase models.Case
	require.NoError(t, json.Unmarshal(env.Data, &kase))
	assert.NotEmpty(t, kase.CaseNumber)

	resp, env = app.do(t, c, http.MethodPost, "/api/time-entries", gin.H{
		"case_id": kase.ID, "hours": 2, "hourly_rate": 300, "description": "Draft complaint",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)
	var entry models.TimeEntry
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.InDelta(t, 600, entry.Amount, 0.001)

	for _, st := range []string{"submitted", "approved"} {
		resp, env = app.do(t, c, http.MethodPatch, "/api/time-entries/"+itoa(entry.ID)+"/status", gin.H{"status": st})
		require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)
	}

	resp, env = app.do(t, c, http.MethodPost, "/api/invoices", gin.H{
		"client_id": client.ID, "case_id": kase.ID, "time_entry_ids": []uint{entry.ID}, "tax_rate": 0.1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)
	var inv models.Invoice
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.InDelta(t, 660, inv.TotalAmount, 0.001)
	assert.Equal(t, models.InvoiceDraft, inv.Status)

	resp, env = app.do(t, c, http.MethodPatch, "/api/invoices/"+itoa(inv.ID)+"/status", gin.H{"status": "sent"})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)

	resp, env = app.do(t, c, http.MethodPost, "/api/invoices/"+itoa(inv.ID)+"/checkout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)
	require.Len(t, app.fake.Sessions, 1)
	assert.Equal(t, inv.ID, app.fake.Sessions[0].InvoiceID)

	resp, env = app.do(t, c, http.MethodPost, "/api/invoices/"+itoa(inv.ID)+"/payments", gin.H{"amount": 160, "reference": "check 1001"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)

	event := payments.WebhookEvent{
		ID: "evt_1", Type: payments.EventPaymentIntentSucceeded,
		InvoiceID: inv.ID, PaymentIntentID: "pi_1", Amount: 500,
	}
	post := func(ev payments.WebhookEvent, sig string) (*http.Response, envelope) {
		raw, err := json.Marshal(ev)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, app.srv.URL+"/api/billing/webhook", bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Stripe-Signature", sig)
		return app.send(t, app.client(t), req)
	}

	resp, _ = post(event, "wrong")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = post(event, webhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error.Message)

	resp, env = post(event, webhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "duplicate")

	resp, _ = post(payments.WebhookEvent{ID: "evt_2", Type: payments.EventCheckoutCompleted}, webhookSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := app.store.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, got.Status)
	assert.InDelta(t, 660, got.AmountPaid, 0.001)
	assert.Len(t, got.Payments, 2)
}

func TestDocumentUploadAndDownload(t *testing.T) {
	app := newTestApp(t)
	c := app.login(t, "associate@lawdesk.local", database.FixturePassword)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "engagement.txt")
	require.NoError(t, err)
	content := "Engagement letter between Acme Corp and the firm."
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("case_id", "1"))
	require.NoError(t, mw.WriteField("tags", "engagement, Signed"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, app.srv.URL+"/api/documents", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, env := app.send(t, c, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error.Message)

	var out struct {
		Document models.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "engagement.txt", out.Document.Filename)
	assert.Contains(t, out.Document.ExtractedText, "Engagement letter")
	require.Len(t, out.Document.Tags, 2)

	dl, err := c.Get(app.srv.URL + "/api/documents/" + itoa(out.Document.ID) + "/download")
	require.NoError(t, err)
	defer dl.Body.Close()
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Equal(t, content, string(body))
}

func TestAIDisabledAndTools(t *testing.T) {
	app := newTestApp(t)
	c := app.login(t, "associate@lawdesk.local", database.FixturePassword)

	resp, env := app.do(t, c, http.MethodPost, "/api/ai/chat", gin.H{"message": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "AI_DISABLED", env.Error.Code)

	resp, env = app.do(t, c, http.MethodPost, "/api/tools/anonymize", gin.H{"text": "Mail jane@example.com today"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var anon struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &anon))
	assert.Equal(t, "Mail [EMAIL_1] today", anon.Text)

	resp, env = app.do(t, c, http.MethodPost, "/api/tools/detect-language", gin.H{"text": "El contrato de arrendamiento es válido para el inquilino"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"language":"es"}`, string(env.Data))
}

func TestMaskHelpers(t *testing.T) {
	assert.Equal(t, "jo***@example.com", maskEmail("john@example.com"))
	assert.Equal(t, "a***@x.io", maskEmail("a@x.io"))
	assert.Equal(t, "***", maskEmail("nobody"))
	assert.Equal(t, "*****00", maskPhone("5550100"))
	assert.Equal(t, "***", maskPhone("123"))
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
