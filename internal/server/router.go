package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"lawdesk/internal/config"
	"lawdesk/internal/handlers"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionCookie = "lawdesk_session"

func maskEmail(email string) string {
	runes := []rune(email)
	atIdx := -1
	for i, r := range runes {
		if r == '@' {
			atIdx = i
			break
		}
	}
	if atIdx <= 0 {
		return "***"
	}
	if atIdx <= 2 {
		return string(runes[:atIdx]) + "***" + string(runes[atIdx:])
	}
	return string(runes[0:2]) + "***" + string(runes[atIdx:])
}

func maskPhone(phone string) string {
	runes := []rune(phone)
	n := len(runes)
	if n <= 4 {
		return "***"
	}
	masked := make([]rune, n)
	for i := range runes {
		if i >= n-2 {
			masked[i] = runes[i]
		} else {
			masked[i] = '*'
		}
	}
	return string(masked)
}

var funcs = template.FuncMap{
	"maskEmail": maskEmail,
	"maskPhone": maskPhone,
	"money":     func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"hours":     func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"deref": func(id *uint) uint {
		if id == nil {
			return 0
		}
		return *id
	},
	"split": strings.Fields,
	"label": func(v any) string {
		s := strings.ReplaceAll(fmt.Sprint(v), "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(web.FS, "templates/*.html")
}

func NewRouter(cfg *config.Config, h *handlers.Handler) (*gin.Engine, error) {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(
		middleware.RequestID(),
		middleware.RequestLog(),
		middleware.Recovery(),
		middleware.SecurityHeaders(),
	)

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	r.StaticFS("/static", http.FS(static))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookie, store))

	r.Use(middleware.InjectUser(h.Store))

	billing := middleware.RequireRole(models.BillingRoles...)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// public
	r.GET("/", h.IndexPage)
	r.GET("/health", h.Health)
	r.GET("/register", h.ShowRegister)
	r.POST("/register", h.Register)
	r.GET("/login", h.ShowLogin)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.POST("/api/auth/login", h.APILogin)
	r.POST("/api/billing/webhook", h.StripeWebhook)

	requireAuth := middleware.RequireAuth(h.Store, h.Sessions)

	// any signed-in user, clients included
	self := r.Group("/")
	self.Use(requireAuth)
	self.POST("/api/auth/logout", h.APILogout)
	self.GET("/api/auth/me", h.APIMe)
	self.GET("/api/messages", h.APIListMessages)
	self.POST("/api/messages", h.APISendMessage)
	self.POST("/api/messages/:id/read", h.APIMarkMessageRead)

	// firm staff
	staff := r.Group("/")
	staff.Use(requireAuth, middleware.RequireRole(models.StaffRoles...))

	staff.GET("/dashboard", h.ShowDashboard)

	staff.GET("/clients", h.ListClients)
	staff.GET("/clients/new", h.ShowNewClient)
	staff.POST("/clients/new", h.CreateClient)
	staff.GET("/clients/:id", h.ShowClientDetail)
	staff.GET("/clients/:id/edit", h.ShowEditClient)
	staff.POST("/clients/:id/edit", h.UpdateClient)

	staff.GET("/cases", h.ListCases)
	staff.GET("/cases/new", h.ShowNewCase)
	staff.POST("/cases/new", h.CreateCase)
	staff.GET("/cases/:id", h.ShowCaseDetail)
	staff.POST("/cases/:id/status", h.ChangeCaseStatus)

	staff.GET("/documents", h.ListDocuments)
	staff.POST("/documents", h.UploadDocument)

	staff.GET("/time", h.ListTimeEntries)
	staff.POST("/time", h.CreateTimeEntry)
	staff.POST("/time/:id/status", h.ChangeTimeEntryStatus)

	staff.GET("/calendar", h.ShowCalendar)
	staff.POST("/calendar", h.CreateEventForm)

	staff.GET("/invoices", billing, h.ListInvoices)
	staff.GET("/invoices/:id", billing, h.ShowInvoice)
	staff.POST("/invoices/:id/status", billing, h.ChangeInvoiceStatus)
	staff.POST("/invoices/:id/checkout", billing, h.StartCheckout)

	staff.GET("/audit", billing, h.ListAuditLogs)

	api := staff.Group("/api")

	api.GET("/clients", h.APIListClients)
	api.POST("/clients", h.APICreateClient)
	api.GET("/clients/:id", h.APIGetClient)
	api.PUT("/clients/:id", h.APIUpdateClient)
	api.DELETE("/clients/:id", h.APIArchiveClient)

	api.GET("/cases", h.APIListCases)
	api.POST("/cases", h.APICreateCase)
	api.GET("/cases/:id", h.APIGetCase)
	api.PUT("/cases/:id", h.APIUpdateCase)
	api.PATCH("/cases/:id/status", h.APISetCaseStatus)
	api.PUT("/cases/:id/attorneys", h.APIAssignAttorneys)
	api.GET("/cases/:id/tasks", h.APIListTasks)
	api.POST("/cases/:id/tasks", h.APICreateTask)
	api.PUT("/tasks/:id", h.APIUpdateTask)

	api.GET("/documents", h.APIListDocuments)
	api.POST("/documents", h.APIUploadDocument)
	api.GET("/documents/:id", h.APIGetDocument)
	api.GET("/documents/:id/download", h.DownloadDocument)
	api.POST("/documents/:id/versions", h.APIAddVersion)
	api.POST("/documents/:id/tags", h.APITagDocument)
	api.DELETE("/documents/:id", h.APIArchiveDocument)
	api.POST("/documents/:id/translate", h.APITranslateDocument)
	api.POST("/documents/:id/anonymize", h.APIAnonymizeDocument)

	api.GET("/tags", h.APIListTags)
	api.POST("/tags", h.APICreateTag)

	api.GET("/time-entries", h.APIListTimeEntries)
	api.POST("/time-entries", h.APICreateTimeEntry)
	api.PUT("/time-entries/:id", h.APIUpdateTimeEntry)
	api.PATCH("/time-entries/:id/status", h.APISetTimeEntryStatus)
	api.DELETE("/time-entries/:id", h.APIWriteOffTimeEntry)

	api.GET("/expenses", h.APIListExpenses)
	api.POST("/expenses", h.APICreateExpense)
	api.POST("/expenses/:id/write-off", billing, h.APIWriteOffExpense)

	api.GET("/invoices", billing, h.APIListInvoices)
	api.POST("/invoices", billing, h.APICreateInvoice)
	api.GET("/invoices/:id", billing, h.APIGetInvoice)
	api.PATCH("/invoices/:id/status", billing, h.APISetInvoiceStatus)
	api.POST("/invoices/:id/payments", billing, h.APIRecordPayment)
	api.POST("/invoices/:id/checkout", billing, h.APICheckout)

	api.POST("/billing/payment-intents", billing, h.APICreatePaymentIntent)
	api.POST("/billing/refunds", billing, h.APIRefund)
	api.POST("/billing/connect/onboard", billing, h.APIConnectOnboard)

	api.GET("/events", h.APIListEvents)
	api.POST("/events", h.APICreateEvent)
	api.PUT("/events/:id", h.APIUpdateEvent)
	api.DELETE("/events/:id", h.APICancelEvent)

	api.POST("/ai/chat", h.APIChat)
	api.POST("/ai/analyze-contract", h.APIAnalyzeContract)
	api.POST("/ai/research", h.APIResearch)
	api.POST("/ai/compare", h.APICompare)
	api.POST("/ai/summarize", h.APISummarize)
	api.POST("/ai/batch-analyze", h.APIBatchAnalyze)
	api.GET("/ai/batch/:id/events", h.BatchEvents)

	api.POST("/tools/extract", h.APIExtract)
	api.POST("/tools/anonymize", h.APIAnonymize)
	api.POST("/tools/restore", h.APIRestore)
	api.POST("/tools/translate", h.APITranslate)
	api.POST("/tools/detect-language", h.APIDetectLanguage)

	api.GET("/reports/dashboard", h.APIDashboard)
	api.GET("/reports/billable-hours", billing, h.APIBillableHours)
	api.GET("/reports/ar-aging", billing, h.APIARAging)

	api.GET("/audit", billing, h.APIListAudit)

	admin := api.Group("/admin", adminOnly)
	admin.GET("/users", h.APIListUsers)
	admin.POST("/users", h.APICreateUser)
	admin.PATCH("/users/:id/role", h.APIChangeRole)
	admin.PATCH("/users/:id/active", h.APISetUserActive)

	return r, nil
}
