package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/turfconnect/turfconnect/internal/db"
	"github.com/turfconnect/turfconnect/internal/slots"
)

const (
	holdSweepCron = "* * * * *"  // every minute
	authPurgeCron = "17 * * * *" // hourly, off the top of the hour
)

// RegisterHygieneJobs schedules the background cleanup work: releasing
// lapsed slot holds and purging expired OTPs and refresh tokens. Holds
// already expire lazily on read; the sweep just keeps listings tidy for
// clients that never touch the held slot again.
func RegisterHygieneJobs(database *db.DB, ledger *slots.Ledger) error {
	if database == nil || ledger == nil {
		return fmt.Errorf("hygiene jobs require database and ledger")
	}

	sweepLogger := log.With().Str("component", "hold_sweep_job").Logger()
	_, err := AddJob("expired_hold_sweep", holdSweepCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		released, err := ledger.SweepExpiredHolds(ctx)
		if err != nil {
			sweepLogger.Error().Err(err).Msg("Failed to sweep expired holds")
			return
		}
		if released > 0 {
			sweepLogger.Info().Int64("released", released).Msg("Released expired slot holds")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add hold sweep job: %w", err)
	}

	purgeLogger := log.With().Str("component", "auth_purge_job").Logger()
	_, err = AddJob("auth_token_purge", authPurgeCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		now := time.Now().UTC()
		otps, err := database.Queries.DeleteExpiredOTPs(ctx, now)
		if err != nil {
			purgeLogger.Error().Err(err).Msg("Failed to purge expired OTPs")
		}
		tokens, err := database.Queries.DeleteExpiredRefreshTokens(ctx, now)
		if err != nil {
			purgeLogger.Error().Err(err).Msg("Failed to purge expired refresh tokens")
		}
		if otps > 0 || tokens > 0 {
			purgeLogger.Info().
				Int64("otps", otps).
				Int64("refresh_tokens", tokens).
				Msg("Purged expired auth records")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add auth purge job: %w", err)
	}

	return nil
}
