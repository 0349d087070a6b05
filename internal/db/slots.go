// internal/db/slots.go
package db

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const slotColumns = `id, turf_id, sport_id, slot_date, start_time, end_time, base_price, dynamic_price,
	state, hold_owner, hold_token, hold_expires_at, booking_id, created_at`

func scanSlot(scanner interface{ Scan(...any) error }) (TurfSlot, error) {
	var s TurfSlot
	err := scanner.Scan(
		&s.ID, &s.TurfID, &s.SportID, &s.SlotDate, &s.StartTime, &s.EndTime,
		&s.BasePrice, &s.DynamicPrice, &s.State, &s.HoldOwner, &s.HoldToken,
		&s.HoldExpiresAt, &s.BookingID, &s.CreatedAt,
	)
	return s, err
}

type CreateSlotParams struct {
	ID           string
	TurfID       string
	SportID      int64
	SlotDate     string
	StartTime    string
	EndTime      string
	BasePrice    int64
	DynamicPrice sql.NullInt64
}

func (q *Queries) CreateSlot(ctx context.Context, arg CreateSlotParams) (TurfSlot, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO turf_slots (id, turf_id, sport_id, slot_date, start_time, end_time, base_price, dynamic_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.TurfID, arg.SportID, arg.SlotDate, arg.StartTime, arg.EndTime,
		arg.BasePrice, arg.DynamicPrice,
	)
	if err != nil {
		return TurfSlot{}, err
	}
	return q.GetSlot(ctx, arg.ID)
}

func (q *Queries) GetSlot(ctx context.Context, id string) (TurfSlot, error) {
	return scanSlot(q.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM turf_slots WHERE id = ?`, id))
}

type ListSlotsParams struct {
	TurfID        string
	SlotDate      string
	SportID       int64
	AvailableOnly bool
	Now           time.Time
}

// ListSlots returns a turf's slots ordered by date and start time. With
// AvailableOnly set it includes held slots whose hold has already lapsed,
// since those are claimable by the next caller.
func (q *Queries) ListSlots(ctx context.Context, arg ListSlotsParams) ([]TurfSlot, error) {
	conds := []string{"turf_id = ?"}
	args := []any{arg.TurfID}
	if arg.SlotDate != "" {
		conds = append(conds, "slot_date = ?")
		args = append(args, arg.SlotDate)
	}
	if arg.SportID > 0 {
		conds = append(conds, "sport_id = ?")
		args = append(args, arg.SportID)
	}
	if arg.AvailableOnly {
		conds = append(conds, "(state = 'available' OR (state = 'held' AND hold_expires_at <= ?))")
		args = append(args, arg.Now)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM turf_slots WHERE `+strings.Join(conds, " AND ")+
			` ORDER BY slot_date, start_time`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []TurfSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

type AcquireHoldParams struct {
	SlotID    string
	HolderID  string
	Token     string
	ExpiresAt time.Time
	Now       time.Time
}

// AcquireHold performs the available->held transition as a single conditional
// write. A lapsed hold counts as released, so it can be claimed here too.
// It reports whether the caller won the slot.
func (q *Queries) AcquireHold(ctx context.Context, arg AcquireHoldParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE turf_slots
		SET state = 'held', hold_owner = ?, hold_token = ?, hold_expires_at = ?
		WHERE id = ?
		  AND (state = 'available' OR (state = 'held' AND hold_expires_at <= ?))`,
		arg.HolderID, arg.Token, arg.ExpiresAt, arg.SlotID, arg.Now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReleaseHold returns a held slot to available if the hold belongs to holderID
// or has lapsed. It reports whether a hold was released.
func (q *Queries) ReleaseHold(ctx context.Context, slotID, holderID string, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE turf_slots
		SET state = 'available', hold_owner = NULL, hold_token = NULL, hold_expires_at = NULL
		WHERE id = ? AND state = 'held' AND (hold_owner = ? OR hold_expires_at <= ?)`,
		slotID, holderID, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type ConfirmSlotBookingParams struct {
	SlotID    string
	Token     string
	BookingID string
	Now       time.Time
}

// ConfirmSlotBooking performs the held->booked transition, guarded by an
// unexpired hold carrying the presented token.
func (q *Queries) ConfirmSlotBooking(ctx context.Context, arg ConfirmSlotBookingParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE turf_slots
		SET state = 'booked', booking_id = ?, hold_owner = NULL, hold_token = NULL, hold_expires_at = NULL
		WHERE id = ? AND state = 'held' AND hold_token = ? AND hold_expires_at > ?`,
		arg.BookingID, arg.SlotID, arg.Token, arg.Now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReleaseSlotBooking performs the booked->available transition on booking
// cancellation.
func (q *Queries) ReleaseSlotBooking(ctx context.Context, slotID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE turf_slots
		SET state = 'available', booking_id = NULL
		WHERE id = ? AND state = 'booked'`,
		slotID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// BlockSlot marks an available slot as blocked by the owner. Held or booked
// slots cannot be blocked out from under a claim.
func (q *Queries) BlockSlot(ctx context.Context, slotID string, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE turf_slots
		SET state = 'blocked', hold_owner = NULL, hold_token = NULL, hold_expires_at = NULL
		WHERE id = ? AND (state = 'available' OR (state = 'held' AND hold_expires_at <= ?))`,
		slotID, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UnblockSlot returns a blocked slot to available.
func (q *Queries) UnblockSlot(ctx context.Context, slotID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE turf_slots SET state = 'available' WHERE id = ? AND state = 'blocked'`,
		slotID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SweepExpiredHolds returns every lapsed hold to available. Correctness never
// depends on this; it is storage hygiene for slots nobody re-requests.
func (q *Queries) SweepExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE turf_slots
		SET state = 'available', hold_owner = NULL, hold_token = NULL, hold_expires_at = NULL
		WHERE state = 'held' AND hold_expires_at <= ?`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
