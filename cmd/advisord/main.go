package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/finwise/advisor/internal/advisor"
	"github.com/finwise/advisor/internal/api/groq"
	"github.com/finwise/advisor/internal/auth"
	"github.com/finwise/advisor/internal/config"
	"github.com/finwise/advisor/internal/server"
	"github.com/finwise/advisor/internal/storage/sqlite"
	"github.com/finwise/advisor/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Groq.APIKey == "" {
		log.Fatal("Missing Groq API key (set FINADV_GROQ__API_KEY or groq.api_key)")
	}

	shutdownTracer, err := telemetry.InitTracer("advisor", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	var clientOpts []groq.ClientOption
	if cfg.Groq.BaseURL != "" {
		clientOpts = append(clientOpts, groq.WithBaseURL(cfg.Groq.BaseURL))
	}
	upstream := groq.NewClient(cfg.Groq.APIKey, clientOpts...)

	limiter := advisor.NewLimiter(store, cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowHours)*time.Hour)
	persister := advisor.NewPersister(store, cfg.Groq.Model, cfg.Pricing.PerMillionTokens, logger)
	handler := advisor.NewHandler(store, upstream, limiter, persister, cfg.Groq.Model, logger)

	authenticator := auth.NewAuthenticator(cfg.Auth.TokenHashes())

	srv := server.New(cfg.Server.Port, logger)
	srv.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	srv.Router.Group(func(r chi.Router) {
		r.Use(server.AuthMiddleware(authenticator))

		// The streaming route carries no deadline: the relay runs for as
		// long as the provider streams. History reads get a normal timeout.
		r.Post("/v1/advice", handler.HandleCreateAdvice)
		r.With(server.TimeoutMiddleware(30 * time.Second)).Get("/v1/advice", handler.HandleListAdvice)
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case <-sigCh:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	// Drain fire-and-forget persistence before closing the store.
	persister.Wait()
	logger.Info("shutdown complete")
}

func configPath() string {
	if p := os.Getenv("FINADV_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
