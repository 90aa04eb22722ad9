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

	specpkg "github.com/daap14/turnstile/api"
	"github.com/daap14/turnstile/internal/access"
	"github.com/daap14/turnstile/internal/analytics"
	"github.com/daap14/turnstile/internal/api"
	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/clock"
	"github.com/daap14/turnstile/internal/config"
	"github.com/daap14/turnstile/internal/event"
	"github.com/daap14/turnstile/internal/store"
	"github.com/daap14/turnstile/internal/team"
	"github.com/daap14/turnstile/internal/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	venue, err := cfg.Location()
	if err != nil {
		slog.Error("invalid venue timezone", "error", err, "timezone", cfg.VenueTimezone)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := store.New(ctx, cfg.DatabaseURL, store.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db.Pool()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	clk := clock.NewSystem()

	userRepo := auth.NewRepository(db.Pool())
	eventRepo := event.NewRepository(db.Pool())
	teamRepo := team.NewRepository(db.Pool())
	ticketRepo := ticket.NewRepository(db.Pool())

	authService := auth.NewService(userRepo, auth.NewTokenVerifier(cfg.JWTSecret), cfg.BcryptCost)
	if _, err := authService.BootstrapAdmin(ctx, cfg.AdminEmail); err != nil {
		slog.Error("failed to bootstrap admin", "error", err)
		os.Exit(1)
	}

	resolver := access.NewResolver(eventRepo, teamRepo)
	admission := ticket.NewAdmission(ticketRepo, eventRepo, ticket.NewCodeGenerator(), clk, cfg.SalesCutoff)
	scanner := ticket.NewScanner(ticketRepo, eventRepo, resolver, clk)
	statsService := analytics.NewService(eventRepo, ticketRepo, resolver, clk, venue)
	teamService := team.NewService(teamRepo, userRepo, clk)

	router, err := api.NewRouter(api.RouterDeps{
		DBPinger:      db,
		Version:       cfg.Version,
		OpenAPISpec:   specpkg.OpenAPISpec,
		CORSOrigins:   cfg.CORSOrigins,
		Authenticator: authService,
		Issuer:        admission,
		Scanner:       scanner,
		Tickets:       ticketRepo,
		Stats:         statsService,
		Events:        eventRepo,
		EventGate:     resolver,
		Teams:         teamService,
	})
	if err != nil {
		slog.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting turnstile server", "port", cfg.Port, "version", cfg.Version, "venueTimezone", venue.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
