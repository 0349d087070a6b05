// Package bookings turns slot holds into confirmed bookings and unwinds them
// on cancellation. Where a flow spans the slot and booking aggregates it
// either compensates (create) or runs in one transaction (cancel), so no
// partial state survives a failure.
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/turfconnect/turfconnect/internal/db"
	"github.com/turfconnect/turfconnect/internal/slots"
)

var (
	ErrValidation       = errors.New("invalid booking request")
	ErrNotFound         = errors.New("booking not found")
	ErrForbidden        = errors.New("not allowed to access this booking")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

// Clock abstracts time for cancellation timestamps in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Coordinator struct {
	store  *db.DB
	ledger *slots.Ledger
	clock  Clock
}

func NewCoordinator(store *db.DB, ledger *slots.Ledger) *Coordinator {
	return &Coordinator{store: store, ledger: ledger, clock: realClock{}}
}

// WithClock replaces the coordinator's clock. Test hook.
func (c *Coordinator) WithClock(clock Clock) *Coordinator {
	c.clock = clock
	return c
}

type CreateInput struct {
	SlotID        string
	BookerID      string
	BookingType   string
	PaymentMethod string
	// HoldToken, when set, confirms a hold the caller already acquired via
	// the hold endpoint. When empty the coordinator acquires its own.
	HoldToken string
}

func (in *CreateInput) validate() error {
	switch in.BookingType {
	case db.BookingTypeFullTurf, db.BookingTypeMatchHost:
	case "":
		return fmt.Errorf("%w: bookingType is required", ErrValidation)
	default:
		return fmt.Errorf("%w: bookingType must be full_turf or match_host", ErrValidation)
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = "wallet"
	}
	return nil
}

// Create books a slot for the caller: hold, price, booking row, confirm. A
// failure after the hold releases it; a failure after the insert deletes the
// row, so a booking never exists without its slot transition and vice versa.
func (c *Coordinator) Create(ctx context.Context, in CreateInput) (db.Booking, error) {
	if err := in.validate(); err != nil {
		return db.Booking{}, err
	}

	holdToken := in.HoldToken
	ownHold := holdToken == ""
	if ownHold {
		hold, err := c.ledger.AcquireHold(ctx, in.SlotID, in.BookerID)
		if err != nil {
			return db.Booking{}, err
		}
		holdToken = hold.Token
	}

	releaseOwnHold := func() {
		if !ownHold {
			return
		}
		if err := c.ledger.ReleaseHold(ctx, in.SlotID, in.BookerID); err != nil {
			log.Error().Err(err).Str("slot_id", in.SlotID).Msg("Failed to release hold after booking failure")
		}
	}

	slot, err := c.ledger.Get(ctx, in.SlotID)
	if err != nil {
		releaseOwnHold()
		return db.Booking{}, err
	}

	totalPrice := slot.BasePrice
	if slot.DynamicPrice.Valid {
		totalPrice = slot.DynamicPrice.Int64
	}

	booking, err := c.store.Queries.CreateBooking(ctx, db.CreateBookingParams{
		ID:            uuid.New().String(),
		SlotID:        in.SlotID,
		TurfID:        slot.TurfID,
		BookerID:      in.BookerID,
		BookingType:   in.BookingType,
		TotalPrice:    totalPrice,
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil {
		releaseOwnHold()
		return db.Booking{}, err
	}

	if err := c.ledger.ConfirmBooking(ctx, in.SlotID, holdToken, booking.ID); err != nil {
		if delErr := c.store.Queries.DeleteBooking(ctx, booking.ID); delErr != nil {
			log.Error().Err(delErr).Str("booking_id", booking.ID).Msg("Failed to delete booking after confirm failure")
		}
		releaseOwnHold()
		return db.Booking{}, err
	}

	return booking, nil
}

type ListInput struct {
	BookerID string
	Status   string
	Page     int64
	Limit    int64
}

// List returns a page of the caller's bookings, newest first, with the total
// count. Page and limit must be positive.
func (c *Coordinator) List(ctx context.Context, in ListInput) ([]db.Booking, int64, error) {
	if in.Page <= 0 {
		return nil, 0, fmt.Errorf("%w: page must be a positive integer", ErrValidation)
	}
	if in.Limit <= 0 {
		return nil, 0, fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
	}
	switch in.Status {
	case "", db.BookingStatusActive, db.BookingStatusCancelled:
	default:
		return nil, 0, fmt.Errorf("%w: status must be active or cancelled", ErrValidation)
	}

	return c.store.Queries.ListBookings(ctx, db.ListBookingsParams{
		BookerID: in.BookerID,
		Status:   in.Status,
		Offset:   (in.Page - 1) * in.Limit,
		Limit:    in.Limit,
	})
}

// Get returns a booking to its booker or an admin.
func (c *Coordinator) Get(ctx context.Context, id, callerID, callerRole string) (db.Booking, error) {
	booking, err := c.store.Queries.GetBooking(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Booking{}, ErrNotFound
	}
	if err != nil {
		return db.Booking{}, err
	}
	if booking.BookerID != callerID && callerRole != db.RoleAdmin {
		return db.Booking{}, ErrForbidden
	}
	return booking, nil
}

// Cancel flips an active booking to cancelled and releases its slot in one
// transaction. A second cancel reports ErrAlreadyCancelled.
func (c *Coordinator) Cancel(ctx context.Context, id, callerID, callerRole, reason string) (db.Booking, error) {
	booking, err := c.Get(ctx, id, callerID, callerRole)
	if err != nil {
		return db.Booking{}, err
	}

	now := c.clock.Now().UTC()
	err = c.store.RunInTx(ctx, func(txdb *db.DB) error {
		cancelled, err := txdb.Queries.CancelBooking(ctx, id, reason, now)
		if err != nil {
			return err
		}
		if !cancelled {
			return ErrAlreadyCancelled
		}
		released, err := txdb.Queries.ReleaseSlotBooking(ctx, booking.SlotID)
		if err != nil {
			return err
		}
		if !released {
			// An active booking whose slot is not booked means the two
			// aggregates diverged; refuse to make it worse.
			return fmt.Errorf("slot %s not in booked state for active booking %s", booking.SlotID, id)
		}
		return nil
	})
	if err != nil {
		return db.Booking{}, err
	}

	return c.store.Queries.GetBooking(ctx, id)
}
