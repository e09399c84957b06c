// Command server runs the tracker HTTP API.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/questforge/tracker/internal/app"
	"github.com/questforge/tracker/internal/app/httpapi"
	"github.com/questforge/tracker/internal/app/metrics"
	"github.com/questforge/tracker/internal/app/services/auth"
	"github.com/questforge/tracker/internal/app/storage/postgres"
	"github.com/questforge/tracker/internal/config"
	"github.com/questforge/tracker/internal/middleware"
	"github.com/questforge/tracker/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: environment)")
	flag.Parse()

	// A local .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.NewDefault("server").WithError(err).Error("load configuration")
		os.Exit(1)
	}

	log := logger.New("server", cfg.Log.Level)

	application, cleanup, err := buildApplication(cfg, log)
	if err != nil {
		log.WithError(err).Error("initialise application")
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      buildHandler(cfg, application, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown HTTP server")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("stop application")
	}
	log.Info("server stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// buildApplication selects the persistence backend from the configuration
// and wires the domain services. The returned cleanup closes the database
// connection, if any.
func buildApplication(cfg *config.Config, log *logger.Logger) (*app.Application, func(), error) {
	stores := app.Stores{}
	cleanup := func() {}

	if cfg.Database.URL != "" {
		store, err := postgres.Open(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		stores.Users = store
		stores.Tasks = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("close database")
			}
		}
		log.Info("using postgres store")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store; data will not survive restarts")
	}

	application, err := app.New(app.Config{
		Auth: auth.Config{
			Secret:     []byte(cfg.Auth.Secret),
			TokenTTL:   cfg.Auth.TokenTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		},
	}, stores, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return application, cleanup, nil
}

// buildHandler composes the middleware chain around the API router:
// CORS -> metrics -> rate limiting -> authentication -> routes.
func buildHandler(cfg *config.Config, application *app.Application, log *logger.Logger) http.Handler {
	api := httpapi.NewHandler(application, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)

	authMW := middleware.NewAuthMiddleware(application.Auth, log, append([]string{"/metrics"}, httpapi.PublicPaths...))
	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, log)
	rateLimiter.StartCleanup(10 * time.Minute)
	cors := middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins)

	var handler http.Handler = mux
	handler = authMW.Handler(handler)
	handler = rateLimiter.Handler(handler)
	handler = metrics.InstrumentHandler(handler)
	handler = cors.Handler(handler)
	return handler
}
