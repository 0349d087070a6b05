// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	authapi "github.com/turfconnect/turfconnect/internal/api/auth"
	bookingsapi "github.com/turfconnect/turfconnect/internal/api/bookings"
	matchesapi "github.com/turfconnect/turfconnect/internal/api/matches"
	slotsapi "github.com/turfconnect/turfconnect/internal/api/slots"
	turfsapi "github.com/turfconnect/turfconnect/internal/api/turfs"
	"github.com/turfconnect/turfconnect/internal/bookings"
	"github.com/turfconnect/turfconnect/internal/config"
	"github.com/turfconnect/turfconnect/internal/db"
	"github.com/turfconnect/turfconnect/internal/matches"
	"github.com/turfconnect/turfconnect/internal/ratelimit"
	"github.com/turfconnect/turfconnect/internal/scheduler"
	"github.com/turfconnect/turfconnect/internal/slots"
	"github.com/turfconnect/turfconnect/internal/turfs"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	// Domain services
	ledger := slots.NewLedger(database, cfg.Booking.HoldTTL.Std())
	registry := turfs.NewRegistry(database)
	coordinator := bookings.NewCoordinator(database, ledger)
	roster := matches.NewRoster(database)

	limiter := ratelimit.New(nil)
	defer limiter.Close()

	authService := authapi.NewService(database, cfg.Auth, limiter, authapi.LogSender{})

	trustProxy := cfg.App.Environment != "development"
	h := &handlers{
		auth:     authapi.NewHandlers(authService, trustProxy),
		turfs:    turfsapi.NewHandlers(registry, ledger),
		slots:    slotsapi.NewHandlers(ledger, registry),
		bookings: bookingsapi.NewHandlers(coordinator),
		matches:  matchesapi.NewHandlers(roster),
		issuer:   authService.Issuer(),
	}

	// Background hygiene: hold sweeps and auth token purges
	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterHygieneJobs(database, ledger); err != nil {
		log.Fatal().Err(err).Msg("Failed to register background jobs")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown error")
		}
	}()

	server := newServer(cfg, h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("env", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
