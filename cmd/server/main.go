package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lawdesk/internal/ai"
	"lawdesk/internal/cache"
	"lawdesk/internal/config"
	"lawdesk/internal/database"
	"lawdesk/internal/extract"
	"lawdesk/internal/handlers"
	"lawdesk/internal/logging"
	"lawdesk/internal/payments"
	"lawdesk/internal/realtime"
	"lawdesk/internal/server"
	"lawdesk/internal/storage"
	"lawdesk/internal/translate"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		slog.Warn("REDIS_URL not set, caching and login rate limiting are off")
	}

	files, err := openObjectStore(cfg)
	if err != nil {
		return err
	}

	var gen ai.TextGenerator
	if cfg.AIEnabled() {
		gen = ai.NewOpenAICompatGenerator(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		slog.Info("ai assistant enabled", "model", cfg.LLMModel, "privacy_mode", cfg.PrivacyMode)
	} else {
		slog.Warn("LLM_BASE_URL not set, ai endpoints are disabled")
	}
	translator, err := translate.New(gen)
	if err != nil {
		return fmt.Errorf("load dictionaries: %w", err)
	}

	var processor payments.Provider
	if cfg.PaymentsEnabled() {
		processor = payments.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeCurrency, cfg.StripeTimeout)
		slog.Info("online payments enabled", "currency", cfg.StripeCurrency)
	} else {
		slog.Warn("STRIPE_SECRET_KEY not set, online payments are disabled")
	}

	h := handlers.New(handlers.Deps{
		Config:     cfg,
		Store:      store,
		Cache:      cache.New(redisClient, "lawdesk", cache.DefaultTTL),
		Sessions:   cache.NewSessionMirror(redisClient, cache.SessionTTL),
		Limiter:    cache.NewRateLimiter(redisClient, "ratelimit", cfg.LoginRateLimitPerMinute, time.Minute),
		Files:      files,
		Extractor:  extract.New(cfg.PDFToTextCommand, cfg.OCRCommand, cfg.OCRLanguage),
		Assistant:  ai.NewAssistant(gen, cfg.PrivacyMode),
		Translator: translator,
		Payments:   processor,
		Hub:        realtime.NewHub(32),
	})

	r, err := server.NewRouter(cfg, h)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "data_source", cfg.DataSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (*database.Store, error) {
	switch cfg.DataSource {
	case config.DataSourceFixtures:
		return database.OpenFixtures(cfg)
	default:
		return database.OpenPostgres(cfg)
	}
}

func openObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.ObjectStorageEnabled() {
		s, err := storage.NewMinioStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		return s, nil
	}
	s, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return s, nil
}
