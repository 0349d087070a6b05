// Package matches manages pickup matches anchored to bookings and the
// capacity roster of their participants. The capacity check and the seat
// increment are one conditional write, so concurrent joins can never overfill
// a match.
package matches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/turfconnect/turfconnect/internal/db"
)

var (
	ErrValidation      = errors.New("invalid match request")
	ErrNotFound        = errors.New("match not found")
	ErrBookingGone     = errors.New("booking not found")
	ErrForbidden       = errors.New("not allowed to act on this match")
	ErrBookingInactive = errors.New("booking is not active")
	ErrNotOpen         = errors.New("match is not open for joining")
	ErrFull            = errors.New("match is full")
	ErrAlreadyJoined   = errors.New("already joined this match")
	ErrHostCannotLeave = errors.New("host cannot leave match, cancel it instead")
	ErrNotParticipant  = errors.New("not a participant of this match")
)

type Roster struct {
	store *db.DB
}

func NewRoster(store *db.DB) *Roster {
	return &Roster{store: store}
}

type CreateInput struct {
	BookingID          string
	HostID             string
	SportID            int64
	TotalSlots         int64
	PricePerPlayer     int64
	SkillLevelRequired string
	MatchType          string
	Description        string
}

// Create opens a match on the host's active booking. The match row and the
// host's participant row land in one transaction, with filledSlots starting
// at 1 for the host.
func (r *Roster) Create(ctx context.Context, in CreateInput) (db.Match, error) {
	if in.TotalSlots < 2 {
		return db.Match{}, fmt.Errorf("%w: totalSlots must be at least 2", ErrValidation)
	}
	if in.PricePerPlayer < 0 {
		return db.Match{}, fmt.Errorf("%w: pricePerPlayer must not be negative", ErrValidation)
	}

	booking, err := r.store.Queries.GetBooking(ctx, in.BookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Match{}, ErrBookingGone
	}
	if err != nil {
		return db.Match{}, err
	}
	if booking.BookerID != in.HostID {
		return db.Match{}, ErrForbidden
	}
	if booking.BookingStatus != db.BookingStatusActive {
		return db.Match{}, ErrBookingInactive
	}

	slot, err := r.store.Queries.GetSlot(ctx, booking.SlotID)
	if err != nil {
		return db.Match{}, err
	}

	matchID := uuid.New().String()
	err = r.store.RunInTx(ctx, func(txdb *db.DB) error {
		_, err := txdb.Queries.CreateMatch(ctx, db.CreateMatchParams{
			ID:                 matchID,
			BookingID:          in.BookingID,
			HostID:             in.HostID,
			SportID:            in.SportID,
			TurfID:             booking.TurfID,
			SlotID:             booking.SlotID,
			SlotDate:           slot.SlotDate,
			StartTime:          slot.StartTime,
			EndTime:            slot.EndTime,
			TotalSlots:         in.TotalSlots,
			PricePerPlayer:     in.PricePerPlayer,
			SkillLevelRequired: nullString(in.SkillLevelRequired),
			MatchType:          nullString(in.MatchType),
			Description:        nullString(in.Description),
		})
		if err != nil {
			return err
		}
		return txdb.Queries.AddParticipant(ctx, matchID, in.HostID, db.ParticipantPaymentCompleted)
	})
	if err != nil {
		return db.Match{}, err
	}

	return r.store.Queries.GetMatch(ctx, matchID)
}

func (r *Roster) Get(ctx context.Context, id string) (db.Match, []db.MatchParticipant, error) {
	match, err := r.store.Queries.GetMatch(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Match{}, nil, ErrNotFound
	}
	if err != nil {
		return db.Match{}, nil, err
	}
	participants, err := r.store.Queries.ListParticipants(ctx, id)
	if err != nil {
		return db.Match{}, nil, err
	}
	return match, participants, nil
}

type ListInput struct {
	Status     string
	SportID    int64
	City       string
	SkillLevel string
	Page       int64
	Limit      int64
}

func (r *Roster) List(ctx context.Context, in ListInput) ([]db.Match, int64, error) {
	if in.Page <= 0 {
		return nil, 0, fmt.Errorf("%w: page must be a positive integer", ErrValidation)
	}
	if in.Limit <= 0 {
		return nil, 0, fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
	}
	switch in.Status {
	case "", db.MatchStatusOpen, db.MatchStatusFull, db.MatchStatusCancelled:
	default:
		return nil, 0, fmt.Errorf("%w: unknown match status %q", ErrValidation, in.Status)
	}

	return r.store.Queries.ListMatches(ctx, db.ListMatchesParams{
		Status:     in.Status,
		SportID:    in.SportID,
		City:       in.City,
		SkillLevel: in.SkillLevel,
		Offset:     (in.Page - 1) * in.Limit,
		Limit:      in.Limit,
	})
}

// Join admits userID to an open match with capacity. The seat claim is the
// guarded increment; the participant insert rides in the same transaction and
// its primary key rejects double joins.
func (r *Roster) Join(ctx context.Context, matchID, userID string) (db.Match, error) {
	if _, err := r.store.Queries.GetMatch(ctx, matchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.Match{}, ErrNotFound
		}
		return db.Match{}, err
	}

	err := r.store.RunInTx(ctx, func(txdb *db.DB) error {
		joined, err := txdb.Queries.IsParticipant(ctx, matchID, userID)
		if err != nil {
			return err
		}
		if joined {
			return ErrAlreadyJoined
		}

		claimed, err := txdb.Queries.ClaimMatchSeat(ctx, matchID)
		if err != nil {
			return err
		}
		if !claimed {
			current, err := txdb.Queries.GetMatch(ctx, matchID)
			if err != nil {
				return err
			}
			if current.MatchStatus != db.MatchStatusOpen {
				if current.MatchStatus == db.MatchStatusFull {
					return ErrFull
				}
				return ErrNotOpen
			}
			return ErrFull
		}

		if err := txdb.Queries.AddParticipant(ctx, matchID, userID, db.ParticipantPaymentPending); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyJoined
			}
			return err
		}
		return nil
	})
	if err != nil {
		return db.Match{}, err
	}

	return r.store.Queries.GetMatch(ctx, matchID)
}

// Leave removes a non-host participant and frees their seat, reopening a full
// match.
func (r *Roster) Leave(ctx context.Context, matchID, userID string) error {
	match, err := r.store.Queries.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if match.HostID == userID {
		return ErrHostCannotLeave
	}

	return r.store.RunInTx(ctx, func(txdb *db.DB) error {
		removed, err := txdb.Queries.RemoveParticipant(ctx, matchID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotParticipant
		}
		released, err := txdb.Queries.ReleaseMatchSeat(ctx, matchID)
		if err != nil {
			return err
		}
		if !released {
			// A removable participant row with no seat to free means the
			// counter diverged from the roster; refuse to make it worse.
			return fmt.Errorf("seat counter for match %s would drop below host seat", matchID)
		}
		return nil
	})
}

// Cancel marks the match cancelled. Host or admin only. The underlying
// booking stays active; cancelling it is a separate decision.
func (r *Roster) Cancel(ctx context.Context, matchID, callerID, callerRole string) error {
	match, err := r.store.Queries.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if match.HostID != callerID && callerRole != db.RoleAdmin {
		return ErrForbidden
	}

	cancelled, err := r.store.Queries.CancelMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !cancelled {
		return ErrNotOpen
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
