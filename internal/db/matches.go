// internal/db/matches.go
package db

import (
	"context"
	"database/sql"
	"strings"
)

const matchColumns = `m.id, m.booking_id, m.host_id, m.sport_id, m.turf_id, m.slot_id,
	m.slot_date, m.start_time, m.end_time, m.total_slots, m.filled_slots, m.price_per_player,
	m.skill_level_required, m.match_type, m.description, m.match_status, m.created_at`

func scanMatch(scanner interface{ Scan(...any) error }) (Match, error) {
	var m Match
	err := scanner.Scan(
		&m.ID, &m.BookingID, &m.HostID, &m.SportID, &m.TurfID, &m.SlotID,
		&m.SlotDate, &m.StartTime, &m.EndTime, &m.TotalSlots, &m.FilledSlots,
		&m.PricePerPlayer, &m.SkillLevelRequired, &m.MatchType, &m.Description,
		&m.MatchStatus, &m.CreatedAt,
	)
	return m, err
}

type CreateMatchParams struct {
	ID                 string
	BookingID          string
	HostID             string
	SportID            int64
	TurfID             string
	SlotID             string
	SlotDate           string
	StartTime          string
	EndTime            string
	TotalSlots         int64
	PricePerPlayer     int64
	SkillLevelRequired sql.NullString
	MatchType          sql.NullString
	Description        sql.NullString
}

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (Match, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO matches (id, booking_id, host_id, sport_id, turf_id, slot_id,
			slot_date, start_time, end_time, total_slots, filled_slots, price_per_player,
			skill_level_required, match_type, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)`,
		arg.ID, arg.BookingID, arg.HostID, arg.SportID, arg.TurfID, arg.SlotID,
		arg.SlotDate, arg.StartTime, arg.EndTime, arg.TotalSlots, arg.PricePerPlayer,
		arg.SkillLevelRequired, arg.MatchType, arg.Description,
	)
	if err != nil {
		return Match{}, err
	}
	return q.GetMatch(ctx, arg.ID)
}

func (q *Queries) GetMatch(ctx context.Context, id string) (Match, error) {
	return scanMatch(q.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.id = ?`, id))
}

type ListMatchesParams struct {
	Status     string
	SportID    int64
	City       string
	SkillLevel string
	Offset     int64
	Limit      int64
}

// ListMatches returns upcoming matches soonest first, with the total count for
// pagination.
func (q *Queries) ListMatches(ctx context.Context, arg ListMatchesParams) ([]Match, int64, error) {
	var conds []string
	var args []any
	if arg.Status != "" {
		conds = append(conds, "m.match_status = ?")
		args = append(args, arg.Status)
	}
	if arg.SportID > 0 {
		conds = append(conds, "m.sport_id = ?")
		args = append(args, arg.SportID)
	}
	if arg.SkillLevel != "" {
		conds = append(conds, "m.skill_level_required = ?")
		args = append(args, arg.SkillLevel)
	}
	if arg.City != "" {
		conds = append(conds, "m.turf_id IN (SELECT id FROM turfs WHERE city = ?)")
		args = append(args, arg.City)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches m`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches m`+where+` ORDER BY m.slot_date, m.start_time LIMIT ? OFFSET ?`,
		append(args, arg.Limit, arg.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, 0, err
		}
		matches = append(matches, m)
	}
	return matches, total, rows.Err()
}

func (q *Queries) AddParticipant(ctx context.Context, matchID, userID, paymentStatus string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO match_participants (match_id, user_id, payment_status) VALUES (?, ?, ?)`,
		matchID, userID, paymentStatus,
	)
	return err
}

func (q *Queries) RemoveParticipant(ctx context.Context, matchID, userID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM match_participants WHERE match_id = ? AND user_id = ?`,
		matchID, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (q *Queries) IsParticipant(ctx context.Context, matchID, userID string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM match_participants WHERE match_id = ? AND user_id = ?)`,
		matchID, userID,
	).Scan(&exists)
	return exists, err
}

func (q *Queries) ListParticipants(ctx context.Context, matchID string) ([]MatchParticipant, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT match_id, user_id, payment_status, joined_at
		FROM match_participants WHERE match_id = ? ORDER BY joined_at`,
		matchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []MatchParticipant
	for rows.Next() {
		var p MatchParticipant
		if err := rows.Scan(&p.MatchID, &p.UserID, &p.PaymentStatus, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (q *Queries) CountParticipants(ctx context.Context, matchID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM match_participants WHERE match_id = ?`, matchID).Scan(&n)
	return n, err
}

// ClaimMatchSeat increments filled_slots guarded by remaining capacity and
// open status, flipping the match to full in the same statement when the last
// seat goes. The guard and the increment being one conditional write is what
// keeps concurrent joins from overfilling the match.
func (q *Queries) ClaimMatchSeat(ctx context.Context, matchID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE matches
		SET filled_slots = filled_slots + 1,
		    match_status = CASE WHEN filled_slots + 1 >= total_slots THEN 'full' ELSE 'open' END
		WHERE id = ? AND match_status = 'open' AND filled_slots < total_slots`,
		matchID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReleaseMatchSeat decrements filled_slots, never below the host's seat, and
// reopens a full match.
func (q *Queries) ReleaseMatchSeat(ctx context.Context, matchID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE matches
		SET filled_slots = filled_slots - 1,
		    match_status = CASE WHEN match_status = 'full' THEN 'open' ELSE match_status END
		WHERE id = ? AND filled_slots > 1`,
		matchID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelMatch marks a match cancelled. The underlying booking is left alone;
// cancelling it is a separate caller decision.
func (q *Queries) CancelMatch(ctx context.Context, id string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE matches SET match_status = 'cancelled'
		WHERE id = ? AND match_status != 'cancelled'`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (q *Queries) GetMatchByBooking(ctx context.Context, bookingID string) (Match, error) {
	return scanMatch(q.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches m WHERE m.booking_id = ?`, bookingID))
}
