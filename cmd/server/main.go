package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
	"github.com/pressroom-io/pressroom/pkg/pressroom/api"
	"github.com/pressroom-io/pressroom/pkg/pressroom/config"
	"github.com/pressroom-io/pressroom/pkg/pressroom/reconcile"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(
		config.WithDotenv(""),
		config.WithEnv(),
	)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := cfg.BuildStores(ctx)
	if err != nil {
		logger.Error("failed to build stores", "error", err)
		os.Exit(1)
	}
	defer stores.Index.Close()

	svc, err := cfg.BuildService(stores, logger)
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	// Background repair of mirror and search index
	if cfg.ReconcileInterval > 0 {
		reconciler, err := reconcile.New(stores.Primary, reconcile.Options{
			Mirror: stores.Mirror,
			Index:  stores.Index,
			Logger: logger,
		})
		if err != nil {
			logger.Error("failed to build reconciler", "error", err)
			os.Exit(1)
		}
		go reconciler.Start(ctx, cfg.Tenants, cfg.ReconcileInterval)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: routes(svc, cfg),
	}

	go func() {
		logger.Info("pressroom server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", cfg.DatabaseType,
			"mirror", cfg.MirrorType,
			"tenants", cfg.Tenants)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exiting")
}

func routes(svc pressroom.Service, cfg *config.ServerConfig) http.Handler {
	tenants := make(map[string]pressroom.TenantContext, len(cfg.Tenants))
	for _, id := range cfg.Tenants {
		tenants[id] = pressroom.TenantContext{ID: id, Name: id}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	articles := api.NewArticleHandler(svc)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(api.WithTenant(tenants))
		r.Use(api.WithActor)
		r.Mount("/articles", articles.Routes())
	})

	return r
}
