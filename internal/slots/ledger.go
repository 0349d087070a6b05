// Package slots owns the lifecycle of bookable turf slots. Every guarded
// transition is a single conditional write against the store, so the ledger
// stays correct when many server instances race on the same slot.
package slots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turfconnect/turfconnect/internal/db"
)

var (
	ErrValidation  = errors.New("invalid input")
	ErrNotFound    = errors.New("slot not found")
	ErrUnavailable = errors.New("slot not available")
	ErrNoHold      = errors.New("slot not held by a valid hold")
	ErrNotBooked   = errors.New("slot not booked")
	ErrNotBlocked  = errors.New("slot not blocked")
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultHoldTTL = 5 * time.Minute
)

// Clock abstracts time for hold-expiry tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Ledger runs the slot state machine: available -> held -> booked ->
// available, with blocked as an owner-set side state.
type Ledger struct {
	queries *db.Queries
	holdTTL time.Duration
	clock   Clock
}

func NewLedger(database *db.DB, holdTTL time.Duration) *Ledger {
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	return &Ledger{
		queries: database.Queries,
		holdTTL: holdTTL,
		clock:   realClock{},
	}
}

// WithClock replaces the ledger's clock. Test hook.
func (l *Ledger) WithClock(clock Clock) *Ledger {
	l.clock = clock
	return l
}

type CreateInput struct {
	TurfID       string
	SportID      int64
	SlotDate     string
	StartTime    string
	EndTime      string
	BasePrice    int64
	DynamicPrice *int64
}

func (in CreateInput) validate(now time.Time) error {
	date, err := time.Parse(DateLayout, in.SlotDate)
	if err != nil {
		return fmt.Errorf("slotDate must be formatted %s", DateLayout)
	}
	start, err := time.Parse(TimeLayout, in.StartTime)
	if err != nil {
		return fmt.Errorf("startTime must be formatted %s", TimeLayout)
	}
	end, err := time.Parse(TimeLayout, in.EndTime)
	if err != nil {
		return fmt.Errorf("endTime must be formatted %s", TimeLayout)
	}
	if !start.Before(end) {
		return fmt.Errorf("startTime must be before endTime")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return fmt.Errorf("slotDate must not be in the past")
	}
	if in.BasePrice <= 0 {
		return fmt.Errorf("basePrice must be positive")
	}
	return nil
}

// Create publishes a new slot in the available state.
func (l *Ledger) Create(ctx context.Context, in CreateInput) (db.TurfSlot, error) {
	if err := in.validate(l.clock.Now().UTC()); err != nil {
		return db.TurfSlot{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	var dynamicPrice sql.NullInt64
	if in.DynamicPrice != nil {
		dynamicPrice = sql.NullInt64{Int64: *in.DynamicPrice, Valid: true}
	}

	return l.queries.CreateSlot(ctx, db.CreateSlotParams{
		ID:           uuid.New().String(),
		TurfID:       in.TurfID,
		SportID:      in.SportID,
		SlotDate:     in.SlotDate,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		BasePrice:    in.BasePrice,
		DynamicPrice: dynamicPrice,
	})
}

func (l *Ledger) Get(ctx context.Context, slotID string) (db.TurfSlot, error) {
	slot, err := l.queries.GetSlot(ctx, slotID)
	if errors.Is(err, sql.ErrNoRows) {
		return db.TurfSlot{}, ErrNotFound
	}
	return slot, err
}

// Hold is a short-lived claim on a slot pending booking confirmation.
type Hold struct {
	SlotID    string    `json:"slotId"`
	Token     string    `json:"holdToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AcquireHold transitions available->held for holderID, claiming lapsed holds
// as well. Exactly one of any set of concurrent callers wins; the rest get
// ErrUnavailable.
func (l *Ledger) AcquireHold(ctx context.Context, slotID, holderID string) (Hold, error) {
	now := l.clock.Now().UTC()
	hold := Hold{
		SlotID:    slotID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(l.holdTTL),
	}

	won, err := l.queries.AcquireHold(ctx, db.AcquireHoldParams{
		SlotID:    slotID,
		HolderID:  holderID,
		Token:     hold.Token,
		ExpiresAt: hold.ExpiresAt,
		Now:       now,
	})
	if err != nil {
		return Hold{}, err
	}
	if !won {
		if _, err := l.Get(ctx, slotID); err != nil {
			return Hold{}, err
		}
		return Hold{}, ErrUnavailable
	}
	return hold, nil
}

// ReleaseHold returns a held slot to available when the hold belongs to
// holderID or has lapsed. Anything else is a no-op, per contract.
func (l *Ledger) ReleaseHold(ctx context.Context, slotID, holderID string) error {
	if _, err := l.Get(ctx, slotID); err != nil {
		return err
	}
	_, err := l.queries.ReleaseHold(ctx, slotID, holderID, l.clock.Now().UTC())
	return err
}

// ConfirmBooking transitions held->booked, binding the slot to bookingID. The
// presented hold token must still be live.
func (l *Ledger) ConfirmBooking(ctx context.Context, slotID, holdToken, bookingID string) error {
	confirmed, err := l.queries.ConfirmSlotBooking(ctx, db.ConfirmSlotBookingParams{
		SlotID:    slotID,
		Token:     holdToken,
		BookingID: bookingID,
		Now:       l.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if !confirmed {
		if _, err := l.Get(ctx, slotID); err != nil {
			return err
		}
		return ErrNoHold
	}
	return nil
}

// ReleaseBooking transitions booked->available on booking cancellation.
func (l *Ledger) ReleaseBooking(ctx context.Context, slotID string) error {
	released, err := l.queries.ReleaseSlotBooking(ctx, slotID)
	if err != nil {
		return err
	}
	if !released {
		if _, err := l.Get(ctx, slotID); err != nil {
			return err
		}
		return ErrNotBooked
	}
	return nil
}

// Block takes an unclaimed slot out of circulation. A live hold or booking
// wins over the owner's block.
func (l *Ledger) Block(ctx context.Context, slotID string) error {
	blocked, err := l.queries.BlockSlot(ctx, slotID, l.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !blocked {
		if _, err := l.Get(ctx, slotID); err != nil {
			return err
		}
		return ErrUnavailable
	}
	return nil
}

// Unblock returns a blocked slot to available.
func (l *Ledger) Unblock(ctx context.Context, slotID string) error {
	unblocked, err := l.queries.UnblockSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if !unblocked {
		if _, err := l.Get(ctx, slotID); err != nil {
			return err
		}
		return ErrNotBlocked
	}
	return nil
}

// List returns a turf's slots, optionally narrowed to claimable ones.
func (l *Ledger) List(ctx context.Context, turfID, slotDate string, sportID int64, availableOnly bool) ([]db.TurfSlot, error) {
	return l.queries.ListSlots(ctx, db.ListSlotsParams{
		TurfID:        turfID,
		SlotDate:      slotDate,
		SportID:       sportID,
		AvailableOnly: availableOnly,
		Now:           l.clock.Now().UTC(),
	})
}

// SweepExpiredHolds is the hygiene pass behind the scheduler job.
func (l *Ledger) SweepExpiredHolds(ctx context.Context) (int64, error) {
	return l.queries.SweepExpiredHolds(ctx, l.clock.Now().UTC())
}
