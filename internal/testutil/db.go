package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/turfconnect/turfconnect/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// CreateUser inserts a user with the given role and returns its id.
func CreateUser(t *testing.T, database *db.DB, role string) string {
	t.Helper()

	user, err := database.Queries.CreateUser(context.Background(), db.CreateUserParams{
		ID:       uuid.New().String(),
		Phone:    "+9198" + uuid.New().String()[:8],
		FullName: "Test User",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

// CreateTurf inserts a turf owned by ownerID and returns its id.
func CreateTurf(t *testing.T, database *db.DB, ownerID string) string {
	t.Helper()

	turf, err := database.Queries.CreateTurf(context.Background(), db.CreateTurfParams{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      "Test Turf",
		Address:   "1 Test Lane",
		City:      "Pune",
		Amenities: "[]",
	})
	if err != nil {
		t.Fatalf("create turf: %v", err)
	}
	return turf.ID
}

// CreateSlot inserts an available slot for tomorrow and returns its id.
func CreateSlot(t *testing.T, database *db.DB, turfID string) string {
	t.Helper()

	slot, err := database.Queries.CreateSlot(context.Background(), db.CreateSlotParams{
		ID:        uuid.New().String(),
		TurfID:    turfID,
		SportID:   1,
		SlotDate:  time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02"),
		StartTime: "18:00",
		EndTime:   "19:00",
		BasePrice: 1200,
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot.ID
}

// SlotState reads the current state column for a slot.
func SlotState(t *testing.T, database *db.DB, slotID string) string {
	t.Helper()

	var state string
	err := database.QueryRowContext(context.Background(),
		"SELECT state FROM turf_slots WHERE id = ?", slotID,
	).Scan(&state)
	if err == sql.ErrNoRows {
		t.Fatalf("slot %s not found", slotID)
	}
	if err != nil {
		t.Fatalf("read slot state: %v", err)
	}
	return state
}
