package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idscan/internal/config"
	"idscan/internal/db"
	"idscan/internal/extraction"
	"idscan/internal/gemini"
	"idscan/internal/googlevision"
	"idscan/internal/handlers"
	"idscan/internal/ratelimit"
	"idscan/internal/router"
	"idscan/internal/session"
	"idscan/internal/students"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Missing key is reported per request, not at startup.
	var model extraction.Model
	if cfg.HasAPIKey() {
		gc, err := gemini.New(ctx, gemini.Config{
			APIKey:          cfg.Gemini.APIKey,
			Model:           cfg.Gemini.Model,
			Temperature:     cfg.Gemini.Temperature,
			TopP:            cfg.Gemini.TopP,
			TopK:            cfg.Gemini.TopK,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		}, logger)
		if err != nil {
			logger.Error("gemini.init_failed", "error", err)
			os.Exit(1)
		}
		defer gc.Close()
		model = gc
	} else {
		logger.Warn("gemini.disabled", "reason", config.ErrMissingAPIKey.Error())
	}

	opts := extraction.Options{
		Mode:    extraction.Mode(cfg.Extract.Mode),
		Timeout: cfg.Gemini.Timeout,
		Logger:  logger,
	}
	if cfg.Extract.PDFOCR == "vision" {
		reader, err := googlevision.NewPDFReader(ctx, cfg.Extract.Credentials, cfg.Extract.PDFPages, logger)
		if err != nil {
			logger.Error("vision.init_failed", "error", err)
			os.Exit(1)
		}
		defer reader.Close()
		opts.PDFReader = reader
	}
	extractor := extraction.New(model, opts)

	var store students.Store
	if cfg.Database.DSN != "" {
		conn, err := db.Open(cfg.Database.DSN, cfg.Database.MaxConnLifetime, logger)
		if err != nil {
			logger.Error("db.open_failed", "error", err)
			os.Exit(1)
		}
		defer db.Close(conn)
		store = students.NewGormStore(conn)
	} else {
		logger.Warn("db.memory_store", "reason", "DB_URL not set; registrations are not persisted")
		store = students.NewMemoryStore()
	}

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Error("session.secret_failed", "error", err)
			os.Exit(1)
		}
		logger.Warn("session.ephemeral_secret", "reason", "SESSION_SECRET not set; sessions end on restart")
	}
	sessions, err := session.NewManager(secret, cfg.Session.TTL)
	if err != nil {
		logger.Error("session.init_failed", "error", err)
		os.Exit(1)
	}

	var limiter ratelimit.Limiter
	if cfg.Redis.URL != "" && cfg.Extract.RateLimit > 0 {
		rl, err := ratelimit.NewRedis(cfg.Redis.URL, cfg.Extract.RateLimit, time.Minute)
		if err != nil {
			logger.Error("redis.init_failed", "error", err)
			os.Exit(1)
		}
		if err := rl.Ping(ctx); err != nil {
			logger.Warn("redis.unreachable", "error", err)
		}
		defer rl.Close()
		limiter = rl
	}

	api := &handlers.API{
		Extractor:      extractor,
		ModelName:      cfg.Gemini.Model,
		APIKeySet:      cfg.HasAPIKey(),
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Students:       students.NewService(store, logger),
		Sessions:       sessions,
		SecureCookie:   cfg.Session.Secure,
		Logger:         logger,
	}
	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: router.RegisterRouter(api, router.Options{
			CORSOrigins:        cfg.Server.CORSOrigins,
			RequireAuthExtract: cfg.Extract.RequireAuth,
			Limiter:            limiter,
			Logger:             logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server.listening", "addr", srv.Addr, "mode", cfg.Extract.Mode, "pdf_ocr", cfg.Extract.PDFOCR)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_failed", "error", err)
	}
	logger.Info("server.stopped")
}
