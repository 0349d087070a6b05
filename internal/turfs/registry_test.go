package turfs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/turfconnect/turfconnect/internal/bookings"
	"github.com/turfconnect/turfconnect/internal/db"
	"github.com/turfconnect/turfconnect/internal/slots"
	"github.com/turfconnect/turfconnect/internal/testutil"
	"github.com/turfconnect/turfconnect/internal/turfs"
)

func setupRegistryTest(t *testing.T) (*db.DB, *turfs.Registry, string) {
	t.Helper()
	database := testutil.NewTestDB(t)
	ownerID := testutil.CreateUser(t, database, db.RoleTurfOwner)
	return database, turfs.NewRegistry(database), ownerID
}

func TestCreateTurf(t *testing.T) {
	_, registry, ownerID := setupRegistryTest(t)

	turf, err := registry.Create(context.Background(), turfs.CreateInput{
		OwnerID:   ownerID,
		Name:      "Greenfield Arena",
		Address:   "12 MG Road",
		City:      "Pune",
		Amenities: []string{"parking", "floodlights"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !turf.IsActive {
		t.Fatal("new turf should start active")
	}
	if turf.Amenities != `["parking","floodlights"]` {
		t.Fatalf("amenities = %s", turf.Amenities)
	}

	got, err := registry.Get(context.Background(), turf.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OwnerID != ownerID {
		t.Fatalf("owner = %s, want %s", got.OwnerID, ownerID)
	}
}

func TestCreateTurfValidation(t *testing.T) {
	_, registry, ownerID := setupRegistryTest(t)

	cases := []turfs.CreateInput{
		{OwnerID: ownerID, Address: "a", City: "c"},
		{OwnerID: ownerID, Name: "n", City: "c"},
		{OwnerID: ownerID, Name: "n", Address: "a"},
	}
	for _, in := range cases {
		if _, err := registry.Create(context.Background(), in); !errors.Is(err, turfs.ErrValidation) {
			t.Fatalf("%+v: expected ErrValidation, got %v", in, err)
		}
	}
}

func TestGetTurfNotFound(t *testing.T) {
	_, registry, _ := setupRegistryTest(t)
	if _, err := registry.Get(context.Background(), "missing"); !errors.Is(err, turfs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTurfsFilters(t *testing.T) {
	_, registry, ownerID := setupRegistryTest(t)
	ctx := context.Background()

	for _, city := range []string{"Pune", "Pune", "Mumbai"} {
		if _, err := registry.Create(ctx, turfs.CreateInput{
			OwnerID: ownerID, Name: "Turf " + city, Address: "addr", City: city,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, total, err := registry.List(ctx, turfs.ListInput{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("total = %d, rows = %d, want 3", total, len(all))
	}

	pune, total, err := registry.List(ctx, turfs.ListInput{City: "Pune", Page: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list by city: %v", err)
	}
	if total != 2 {
		t.Fatalf("pune total = %d, want 2", total)
	}
	if len(pune) != 1 {
		t.Fatalf("page of 1 returned %d rows", len(pune))
	}
}

func TestUpdateTurfOwnership(t *testing.T) {
	database, registry, ownerID := setupRegistryTest(t)
	ctx := context.Background()

	turf, err := registry.Create(ctx, turfs.CreateInput{
		OwnerID: ownerID, Name: "Original", Address: "addr", City: "Pune",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stranger := testutil.CreateUser(t, database, db.RoleTurfOwner)
	if _, err := registry.Update(ctx, turf.ID, stranger, db.RoleTurfOwner, turfs.UpdateInput{Name: "Taken Over"}); !errors.Is(err, turfs.ErrForbidden) {
		t.Fatalf("stranger update: expected ErrForbidden, got %v", err)
	}

	// Partial update keeps untouched fields.
	updated, err := registry.Update(ctx, turf.ID, ownerID, db.RoleTurfOwner, turfs.UpdateInput{Name: "Renamed"})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Name != "Renamed" || updated.City != "Pune" {
		t.Fatalf("after update: %+v", updated)
	}

	// Admin may deactivate any turf.
	admin := testutil.CreateUser(t, database, db.RoleAdmin)
	inactive := false
	updated, err = registry.Update(ctx, turf.ID, admin, db.RoleAdmin, turfs.UpdateInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.IsActive {
		t.Fatal("turf should be inactive")
	}

	// Inactive turfs drop out of listings.
	_, total, err := registry.List(ctx, turfs.ListInput{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 {
		t.Fatalf("total = %d, want 0 after deactivation", total)
	}
}

func TestDeleteTurfBlockedByActiveBookings(t *testing.T) {
	database, registry, ownerID := setupRegistryTest(t)
	ctx := context.Background()

	turfID := testutil.CreateTurf(t, database, ownerID)
	slotID := testutil.CreateSlot(t, database, turfID)
	player := testutil.CreateUser(t, database, db.RolePlayer)

	ledger := slots.NewLedger(database, 5*time.Minute)
	coordinator := bookings.NewCoordinator(database, ledger)
	booking, err := coordinator.Create(ctx, bookings.CreateInput{
		SlotID:      slotID,
		BookerID:    player,
		BookingType: db.BookingTypeFullTurf,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	if err := registry.Delete(ctx, turfID, ownerID, db.RoleTurfOwner); !errors.Is(err, turfs.ErrHasActiveBookings) {
		t.Fatalf("expected ErrHasActiveBookings, got %v", err)
	}

	if _, err := coordinator.Cancel(ctx, booking.ID, player, db.RolePlayer, "plans changed"); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}
	// With only cancelled bookings on record, deletion succeeds even though
	// the booking rows still reference the turf.
	if err := registry.Delete(ctx, turfID, ownerID, db.RoleTurfOwner); err != nil {
		t.Fatalf("delete after cancel: %v", err)
	}
	if _, err := registry.Get(ctx, turfID); !errors.Is(err, turfs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	_, total, err := registry.List(ctx, turfs.ListInput{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 {
		t.Fatalf("total = %d, want deleted turf out of listings", total)
	}

	// Booking history survives the deletion.
	got, err := coordinator.Get(ctx, booking.ID, player, db.RolePlayer)
	if err != nil {
		t.Fatalf("booking history after delete: %v", err)
	}
	if got.BookingStatus != db.BookingStatusCancelled {
		t.Fatalf("booking status = %q, want cancelled", got.BookingStatus)
	}
}

func TestListSportsSeeded(t *testing.T) {
	_, registry, _ := setupRegistryTest(t)

	sports, err := registry.ListSports(context.Background())
	if err != nil {
		t.Fatalf("list sports: %v", err)
	}
	if len(sports) == 0 {
		t.Fatal("sports catalog should be seeded by migrations")
	}
}
