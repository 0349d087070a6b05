// internal/db/turfs.go
package db

import (
	"context"
	"database/sql"
	"strings"
)

const turfColumns = `id, owner_id, name, description, address, city, contact_phone, contact_email, amenities, is_active, created_at`

func scanTurf(scanner interface{ Scan(...any) error }) (Turf, error) {
	var t Turf
	err := scanner.Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.Description, &t.Address, &t.City,
		&t.ContactPhone, &t.ContactEmail, &t.Amenities, &t.IsActive, &t.CreatedAt,
	)
	return t, err
}

type CreateTurfParams struct {
	ID           string
	OwnerID      string
	Name         string
	Description  sql.NullString
	Address      string
	City         string
	ContactPhone sql.NullString
	ContactEmail sql.NullString
	Amenities    string
}

func (q *Queries) CreateTurf(ctx context.Context, arg CreateTurfParams) (Turf, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO turfs (id, owner_id, name, description, address, city, contact_phone, contact_email, amenities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.OwnerID, arg.Name, arg.Description, arg.Address, arg.City,
		arg.ContactPhone, arg.ContactEmail, arg.Amenities,
	)
	if err != nil {
		return Turf{}, err
	}
	return q.GetTurf(ctx, arg.ID)
}

func (q *Queries) GetTurf(ctx context.Context, id string) (Turf, error) {
	return scanTurf(q.db.QueryRowContext(ctx, `SELECT `+turfColumns+` FROM turfs WHERE id = ?`, id))
}

type ListTurfsParams struct {
	City    string
	SportID int64
	Offset  int64
	Limit   int64
}

// ListTurfs returns active turfs filtered by city and offered sport, newest
// first, along with the total count for pagination.
func (q *Queries) ListTurfs(ctx context.Context, arg ListTurfsParams) ([]Turf, int64, error) {
	var conds []string
	var args []any
	conds = append(conds, "is_active = 1")
	if arg.City != "" {
		conds = append(conds, "city = ?")
		args = append(args, arg.City)
	}
	if arg.SportID > 0 {
		conds = append(conds, "id IN (SELECT DISTINCT turf_id FROM turf_slots WHERE sport_id = ?)")
		args = append(args, arg.SportID)
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turfs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+turfColumns+` FROM turfs WHERE `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, arg.Limit, arg.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var turfs []Turf
	for rows.Next() {
		t, err := scanTurf(rows)
		if err != nil {
			return nil, 0, err
		}
		turfs = append(turfs, t)
	}
	return turfs, total, rows.Err()
}

type UpdateTurfParams struct {
	ID           string
	Name         string
	Description  sql.NullString
	Address      string
	City         string
	ContactPhone sql.NullString
	ContactEmail sql.NullString
	Amenities    string
	IsActive     bool
}

func (q *Queries) UpdateTurf(ctx context.Context, arg UpdateTurfParams) (Turf, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE turfs
		SET name = ?, description = ?, address = ?, city = ?,
		    contact_phone = ?, contact_email = ?, amenities = ?, is_active = ?
		WHERE id = ?`,
		arg.Name, arg.Description, arg.Address, arg.City,
		arg.ContactPhone, arg.ContactEmail, arg.Amenities, arg.IsActive, arg.ID,
	)
	if err != nil {
		return Turf{}, err
	}
	return q.GetTurf(ctx, arg.ID)
}

// DeactivateTurf soft-deletes a turf. Booking and match rows keep their
// turf_id references, so turfs are never physically removed.
func (q *Queries) DeactivateTurf(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE turfs SET is_active = 0 WHERE id = ?`, id)
	return err
}

// CountActiveBookingsForTurf reports how many active bookings reference any of
// the turf's slots. Turf deletion is refused while this is non-zero.
func (q *Queries) CountActiveBookingsForTurf(ctx context.Context, turfID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings WHERE turf_id = ? AND booking_status = 'active'`,
		turfID,
	).Scan(&n)
	return n, err
}

func (q *Queries) GetSport(ctx context.Context, id int64) (Sport, error) {
	var s Sport
	err := q.db.QueryRowContext(ctx, `SELECT id, name FROM sports WHERE id = ?`, id).Scan(&s.ID, &s.Name)
	return s, err
}

func (q *Queries) ListSports(ctx context.Context) ([]Sport, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name FROM sports ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sports []Sport
	for rows.Next() {
		var s Sport
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		sports = append(sports, s)
	}
	return sports, rows.Err()
}
