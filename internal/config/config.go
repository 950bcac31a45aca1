package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DataSourcePostgres = "postgres"
	DataSourceFixtures = "fixtures"
)

type Config struct {
	ServerPort    string
	SessionSecret string
	SecureCookies bool
	LogLevel      string

	DataSource        string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisURL                string
	LoginRateLimitPerMinute int

	UploadDir      string
	MaxUploadBytes int64
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool

	PDFToTextCommand string
	OCRCommand       string
	OCRLanguage      string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string
	StripeTimeout       time.Duration
	PublicBaseURL       string

	LLMBaseURL  string
	LLMAPIKey   string
	LLMModel    string
	LLMTimeout  time.Duration
	PrivacyMode bool

	AdminEmail     string
	AdminPassword  string
	DefaultTaxRate float64
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:    envString("SERVER_PORT", "8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SecureCookies: envBool("SECURE_COOKIES", false),
		LogLevel:      envString("LOG_LEVEL", "info"),

		DataSource:        strings.ToLower(envString("DATA_SOURCE", DataSourcePostgres)),
		DBDSN:             os.Getenv("DB_DSN"),
		DBMaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		RedisURL:                os.Getenv("REDIS_URL"),
		LoginRateLimitPerMinute: envInt("LOGIN_RATE_LIMIT_PER_MINUTE", 10),

		UploadDir:      envString("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_MB", 60)) << 20,
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3Bucket:       envString("S3_BUCKET", "lawdesk-documents"),
		S3UseSSL:       envBool("S3_USE_SSL", false),

		PDFToTextCommand: envString("PDFTOTEXT_COMMAND", "pdftotext"),
		OCRCommand:       envString("OCR_COMMAND", "tesseract"),
		OCRLanguage:      envString("OCR_LANGUAGE", "eng"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      strings.ToLower(envString("STRIPE_CURRENCY", "usd")),
		StripeTimeout:       envDuration("STRIPE_TIMEOUT", 30*time.Second),
		PublicBaseURL:       strings.TrimRight(envString("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		LLMBaseURL:  os.Getenv("LLM_BASE_URL"),
		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		LLMModel:    envString("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:  envDuration("LLM_TIMEOUT", 60*time.Second),
		PrivacyMode: envBool("PRIVACY_MODE", true),

		AdminEmail:     envString("ADMIN_EMAIL", "admin@lawdesk.local"),
		AdminPassword:  envString("ADMIN_PASSWORD", "Admin123!"),
		DefaultTaxRate: envFloat("DEFAULT_TAX_RATE", 0),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is not set")
	}
	switch c.DataSource {
	case DataSourcePostgres:
		if c.DBDSN == "" {
			return errors.New("DB_DSN is not set")
		}
	case DataSourceFixtures:
	default:
		return fmt.Errorf("unsupported DATA_SOURCE %q", c.DataSource)
	}
	if c.DefaultTaxRate < 0 || c.DefaultTaxRate >= 1 {
		return fmt.Errorf("DEFAULT_TAX_RATE must be in [0,1), got %v", c.DefaultTaxRate)
	}
	return nil
}

func (c *Config) PaymentsEnabled() bool { return c.StripeSecretKey != "" }

// AIEnabled reports whether an LLM endpoint is configured. Local
// OpenAI-compatible servers may run without a key.
func (c *Config) AIEnabled() bool { return c.LLMBaseURL != "" }

func (c *Config) ObjectStorageEnabled() bool { return c.S3Endpoint != "" }

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
