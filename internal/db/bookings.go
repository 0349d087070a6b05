// internal/db/bookings.go
package db

import (
	"context"
	"strings"
	"time"
)

const bookingColumns = `id, slot_id, turf_id, booker_id, booking_type, total_price, payment_method,
	payment_status, booking_status, cancellation_reason, cancelled_at, created_at`

func scanBooking(scanner interface{ Scan(...any) error }) (Booking, error) {
	var b Booking
	err := scanner.Scan(
		&b.ID, &b.SlotID, &b.TurfID, &b.BookerID, &b.BookingType, &b.TotalPrice,
		&b.PaymentMethod, &b.PaymentStatus, &b.BookingStatus,
		&b.CancellationReason, &b.CancelledAt, &b.CreatedAt,
	)
	return b, err
}

type CreateBookingParams struct {
	ID            string
	SlotID        string
	TurfID        string
	BookerID      string
	BookingType   string
	TotalPrice    int64
	PaymentMethod string
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO bookings (id, slot_id, turf_id, booker_id, booking_type, total_price, payment_method)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.SlotID, arg.TurfID, arg.BookerID, arg.BookingType, arg.TotalPrice, arg.PaymentMethod,
	)
	if err != nil {
		return Booking{}, err
	}
	return q.GetBooking(ctx, arg.ID)
}

func (q *Queries) GetBooking(ctx context.Context, id string) (Booking, error) {
	return scanBooking(q.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

func (q *Queries) DeleteBooking(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return err
}

type ListBookingsParams struct {
	BookerID string
	Status   string
	Offset   int64
	Limit    int64
}

// ListBookings returns a page of the booker's bookings, newest first, plus the
// total count for pagination.
func (q *Queries) ListBookings(ctx context.Context, arg ListBookingsParams) ([]Booking, int64, error) {
	conds := []string{"booker_id = ?"}
	args := []any{arg.BookerID}
	if arg.Status != "" {
		conds = append(conds, "booking_status = ?")
		args = append(args, arg.Status)
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, arg.Limit, arg.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

// CancelBooking flips an active booking to cancelled. The active-state guard
// makes a second cancel attempt report no rows, which callers surface as a
// conflict.
func (q *Queries) CancelBooking(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE bookings
		SET booking_status = 'cancelled', cancellation_reason = ?, cancelled_at = ?
		WHERE id = ? AND booking_status = 'active'`,
		reason, now, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
