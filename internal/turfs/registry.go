// Package turfs manages venue listings: the turfs owners register and the
// sports catalog they draw from.
package turfs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/turfconnect/turfconnect/internal/db"
)

var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("turf not found")
	ErrForbidden         = errors.New("not allowed")
	ErrHasActiveBookings = errors.New("turf has active bookings")
)

// Registry owns turf CRUD and its ownership rules.
type Registry struct {
	store *db.DB
}

func NewRegistry(store *db.DB) *Registry {
	return &Registry{store: store}
}

type CreateInput struct {
	OwnerID      string   `json:"-"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	ContactPhone string   `json:"contactPhone"`
	ContactEmail string   `json:"contactEmail"`
	Amenities    []string `json:"amenities"`
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(in.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	if strings.TrimSpace(in.City) == "" {
		return fmt.Errorf("%w: city is required", ErrValidation)
	}
	return nil
}

func (r *Registry) Create(ctx context.Context, in CreateInput) (db.Turf, error) {
	if err := in.validate(); err != nil {
		return db.Turf{}, err
	}

	amenities, err := encodeAmenities(in.Amenities)
	if err != nil {
		return db.Turf{}, err
	}
	return r.store.Queries.CreateTurf(ctx, db.CreateTurfParams{
		ID:           uuid.NewString(),
		OwnerID:      in.OwnerID,
		Name:         strings.TrimSpace(in.Name),
		Description:  nullString(strings.TrimSpace(in.Description)),
		Address:      strings.TrimSpace(in.Address),
		City:         strings.TrimSpace(in.City),
		ContactPhone: nullString(strings.TrimSpace(in.ContactPhone)),
		ContactEmail: nullString(strings.TrimSpace(in.ContactEmail)),
		Amenities:    amenities,
	})
}

// Get returns an active turf. Deactivated turfs read as not found.
func (r *Registry) Get(ctx context.Context, id string) (db.Turf, error) {
	turf, err := r.store.Queries.GetTurf(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Turf{}, ErrNotFound
	}
	if err != nil {
		return db.Turf{}, err
	}
	if !turf.IsActive {
		return db.Turf{}, ErrNotFound
	}
	return turf, nil
}

type ListInput struct {
	City    string
	SportID int64
	Page    int64
	Limit   int64
}

func (r *Registry) List(ctx context.Context, in ListInput) ([]db.Turf, int64, error) {
	return r.store.Queries.ListTurfs(ctx, db.ListTurfsParams{
		City:    strings.TrimSpace(in.City),
		SportID: in.SportID,
		Offset:  (in.Page - 1) * in.Limit,
		Limit:   in.Limit,
	})
}

type UpdateInput struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	ContactPhone string   `json:"contactPhone"`
	ContactEmail string   `json:"contactEmail"`
	Amenities    []string `json:"amenities"`
	IsActive     *bool    `json:"isActive"`
}

// Update rewrites a turf owned by the caller. Admins may update any turf.
// Omitted fields keep their stored values.
func (r *Registry) Update(ctx context.Context, id, callerID, callerRole string, in UpdateInput) (db.Turf, error) {
	turf, err := r.requireOwned(ctx, id, callerID, callerRole)
	if err != nil {
		return db.Turf{}, err
	}

	params := db.UpdateTurfParams{
		ID:           turf.ID,
		Name:         turf.Name,
		Description:  turf.Description,
		Address:      turf.Address,
		City:         turf.City,
		ContactPhone: turf.ContactPhone,
		ContactEmail: turf.ContactEmail,
		Amenities:    turf.Amenities,
		IsActive:     turf.IsActive,
	}
	if v := strings.TrimSpace(in.Name); v != "" {
		params.Name = v
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		params.Description = nullString(v)
	}
	if v := strings.TrimSpace(in.Address); v != "" {
		params.Address = v
	}
	if v := strings.TrimSpace(in.City); v != "" {
		params.City = v
	}
	if v := strings.TrimSpace(in.ContactPhone); v != "" {
		params.ContactPhone = nullString(v)
	}
	if v := strings.TrimSpace(in.ContactEmail); v != "" {
		params.ContactEmail = nullString(v)
	}
	if in.Amenities != nil {
		amenities, err := encodeAmenities(in.Amenities)
		if err != nil {
			return db.Turf{}, err
		}
		params.Amenities = amenities
	}
	if in.IsActive != nil {
		params.IsActive = *in.IsActive
	}

	return r.store.Queries.UpdateTurf(ctx, params)
}

// Delete deactivates a turf with no active bookings. The row stays behind
// the bookings and matches that reference it; a deactivated turf disappears
// from Get and List.
func (r *Registry) Delete(ctx context.Context, id, callerID, callerRole string) error {
	if _, err := r.requireOwned(ctx, id, callerID, callerRole); err != nil {
		return err
	}

	active, err := r.store.Queries.CountActiveBookingsForTurf(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrHasActiveBookings
	}
	return r.store.Queries.DeactivateTurf(ctx, id)
}

func (r *Registry) ListSports(ctx context.Context) ([]db.Sport, error) {
	return r.store.Queries.ListSports(ctx)
}

func (r *Registry) requireOwned(ctx context.Context, id, callerID, callerRole string) (db.Turf, error) {
	turf, err := r.store.Queries.GetTurf(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Turf{}, ErrNotFound
	}
	if err != nil {
		return db.Turf{}, err
	}
	if turf.OwnerID != callerID && callerRole != db.RoleAdmin {
		return db.Turf{}, ErrForbidden
	}
	return turf, nil
}

// encodeAmenities stores the amenity list as a JSON array, matching the
// column's text representation.
func encodeAmenities(amenities []string) (string, error) {
	if amenities == nil {
		amenities = []string{}
	}
	encoded, err := json.Marshal(amenities)
	if err != nil {
		return "", fmt.Errorf("%w: amenities must be a list of strings", ErrValidation)
	}
	return string(encoded), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
