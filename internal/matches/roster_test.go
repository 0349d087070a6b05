package matches_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/turfconnect/turfconnect/internal/bookings"
	"github.com/turfconnect/turfconnect/internal/db"
	"github.com/turfconnect/turfconnect/internal/matches"
	"github.com/turfconnect/turfconnect/internal/slots"
	"github.com/turfconnect/turfconnect/internal/testutil"
)

type rosterFixture struct {
	database    *db.DB
	roster      *matches.Roster
	coordinator *bookings.Coordinator
	hostID      string
	bookingID   string
}

func setupRosterTest(t *testing.T) *rosterFixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	ownerID := testutil.CreateUser(t, database, db.RoleTurfOwner)
	turfID := testutil.CreateTurf(t, database, ownerID)
	slotID := testutil.CreateSlot(t, database, turfID)
	hostID := testutil.CreateUser(t, database, db.RolePlayer)

	ledger := slots.NewLedger(database, 5*time.Minute)
	coordinator := bookings.NewCoordinator(database, ledger)

	booking, err := coordinator.Create(context.Background(), bookings.CreateInput{
		SlotID:      slotID,
		BookerID:    hostID,
		BookingType: db.BookingTypeMatchHost,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	return &rosterFixture{
		database:    database,
		roster:      matches.NewRoster(database),
		coordinator: coordinator,
		hostID:      hostID,
		bookingID:   booking.ID,
	}
}

func (f *rosterFixture) createMatch(t *testing.T, totalSlots int64) db.Match {
	t.Helper()

	match, err := f.roster.Create(context.Background(), matches.CreateInput{
		BookingID:  f.bookingID,
		HostID:     f.hostID,
		SportID:    1,
		TotalSlots: totalSlots,
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return match
}

func (f *rosterFixture) newPlayer(t *testing.T) string {
	t.Helper()
	return testutil.CreateUser(t, f.database, db.RolePlayer)
}

func (f *rosterFixture) participantCount(t *testing.T, matchID string) int64 {
	t.Helper()

	n, err := f.database.Queries.CountParticipants(context.Background(), matchID)
	if err != nil {
		t.Fatalf("count participants: %v", err)
	}
	return n
}

func TestCreateMatch(t *testing.T) {
	f := setupRosterTest(t)
	match := f.createMatch(t, 4)

	if match.FilledSlots != 1 {
		t.Fatalf("filled slots = %d, want 1 (host)", match.FilledSlots)
	}
	if match.MatchStatus != db.MatchStatusOpen {
		t.Fatalf("status = %s, want open", match.MatchStatus)
	}
	if got := f.participantCount(t, match.ID); got != 1 {
		t.Fatalf("participant rows = %d, want 1", got)
	}
}

func TestCreateMatchValidation(t *testing.T) {
	f := setupRosterTest(t)
	ctx := context.Background()

	_, err := f.roster.Create(ctx, matches.CreateInput{
		BookingID: f.bookingID, HostID: f.hostID, SportID: 1, TotalSlots: 1,
	})
	if !errors.Is(err, matches.ErrValidation) {
		t.Fatalf("totalSlots=1: expected ErrValidation, got %v", err)
	}

	stranger := f.newPlayer(t)
	_, err = f.roster.Create(ctx, matches.CreateInput{
		BookingID: f.bookingID, HostID: stranger, SportID: 1, TotalSlots: 4,
	})
	if !errors.Is(err, matches.ErrForbidden) {
		t.Fatalf("foreign booking: expected ErrForbidden, got %v", err)
	}

	_, err = f.roster.Create(ctx, matches.CreateInput{
		BookingID: "missing", HostID: f.hostID, SportID: 1, TotalSlots: 4,
	})
	if !errors.Is(err, matches.ErrBookingGone) {
		t.Fatalf("missing booking: expected ErrBookingGone, got %v", err)
	}

	if _, err := f.coordinator.Cancel(ctx, f.bookingID, f.hostID, db.RolePlayer, "rain"); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}
	_, err = f.roster.Create(ctx, matches.CreateInput{
		BookingID: f.bookingID, HostID: f.hostID, SportID: 1, TotalSlots: 4,
	})
	if !errors.Is(err, matches.ErrBookingInactive) {
		t.Fatalf("cancelled booking: expected ErrBookingInactive, got %v", err)
	}
}

func TestJoinMatch(t *testing.T) {
	f := setupRosterTest(t)
	match := f.createMatch(t, 3)
	ctx := context.Background()

	playerA := f.newPlayer(t)
	updated, err := f.roster.Join(ctx, match.ID, playerA)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if updated.FilledSlots != 2 || updated.MatchStatus != db.MatchStatusOpen {
		t.Fatalf("after first join: %+v", updated)
	}

	// Same user joining again conflicts.
	if _, err := f.roster.Join(ctx, match.ID, playerA); !errors.Is(err, matches.ErrAlreadyJoined) {
		t.Fatalf("double join: expected ErrAlreadyJoined, got %v", err)
	}

	playerB := f.newPlayer(t)
	updated, err = f.roster.Join(ctx, match.ID, playerB)
	if err != nil {
		t.Fatalf("join to capacity: %v", err)
	}
	if updated.FilledSlots != 3 || updated.MatchStatus != db.MatchStatusFull {
		t.Fatalf("after filling: %+v", updated)
	}

	// Full match rejects the next joiner.
	playerC := f.newPlayer(t)
	if _, err := f.roster.Join(ctx, match.ID, playerC); !errors.Is(err, matches.ErrFull) {
		t.Fatalf("join full: expected ErrFull, got %v", err)
	}

	if _, err := f.roster.Join(ctx, "missing", playerC); !errors.Is(err, matches.ErrNotFound) {
		t.Fatalf("join missing: expected ErrNotFound, got %v", err)
	}

	if got := f.participantCount(t, match.ID); got != updated.FilledSlots {
		t.Fatalf("participant rows = %d, filled slots = %d", got, updated.FilledSlots)
	}
}

func TestConcurrentJoinsExactlyOneWinner(t *testing.T) {
	f := setupRosterTest(t)
	match := f.createMatch(t, 3)
	ctx := context.Background()

	first := f.newPlayer(t)
	if _, err := f.roster.Join(ctx, match.ID, first); err != nil {
		t.Fatalf("first join: %v", err)
	}

	// One seat left; a pack of joiners race for it.
	const contenders = 8
	ids := make([]string, contenders)
	for i := range ids {
		ids[i] = f.newPlayer(t)
	}

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for _, id := range ids {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := f.roster.Join(ctx, match.ID, userID)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var wins, fulls int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, matches.ErrFull):
			fulls++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	if fulls != contenders-1 {
		t.Fatalf("full conflicts = %d, want %d", fulls, contenders-1)
	}

	final, _, err := f.roster.Get(ctx, match.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.FilledSlots != final.TotalSlots || final.MatchStatus != db.MatchStatusFull {
		t.Fatalf("final match: %+v", final)
	}
	if got := f.participantCount(t, match.ID); got != final.TotalSlots {
		t.Fatalf("participant rows = %d, want %d", got, final.TotalSlots)
	}
}

func TestLeaveMatch(t *testing.T) {
	f := setupRosterTest(t)
	match := f.createMatch(t, 2)
	ctx := context.Background()

	player := f.newPlayer(t)
	updated, err := f.roster.Join(ctx, match.ID, player)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if updated.MatchStatus != db.MatchStatusFull {
		t.Fatalf("status = %s, want full", updated.MatchStatus)
	}

	// Host cannot leave.
	if err := f.roster.Leave(ctx, match.ID, f.hostID); !errors.Is(err, matches.ErrHostCannotLeave) {
		t.Fatalf("host leave: expected ErrHostCannotLeave, got %v", err)
	}

	if err := f.roster.Leave(ctx, match.ID, player); err != nil {
		t.Fatalf("leave: %v", err)
	}
	final, _, err := f.roster.Get(ctx, match.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.FilledSlots != 1 || final.MatchStatus != db.MatchStatusOpen {
		t.Fatalf("after leave: %+v", final)
	}

	// Leaving again is a conflict, not a silent decrement.
	if err := f.roster.Leave(ctx, match.ID, player); !errors.Is(err, matches.ErrNotParticipant) {
		t.Fatalf("repeat leave: expected ErrNotParticipant, got %v", err)
	}
	if err := f.roster.Leave(ctx, "missing", player); !errors.Is(err, matches.ErrNotFound) {
		t.Fatalf("leave missing: expected ErrNotFound, got %v", err)
	}
}

func TestCancelMatch(t *testing.T) {
	f := setupRosterTest(t)
	match := f.createMatch(t, 4)
	ctx := context.Background()

	stranger := f.newPlayer(t)
	if err := f.roster.Cancel(ctx, match.ID, stranger, db.RolePlayer); !errors.Is(err, matches.ErrForbidden) {
		t.Fatalf("stranger cancel: expected ErrForbidden, got %v", err)
	}

	if err := f.roster.Cancel(ctx, match.ID, f.hostID, db.RolePlayer); err != nil {
		t.Fatalf("host cancel: %v", err)
	}

	final, _, err := f.roster.Get(ctx, match.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.MatchStatus != db.MatchStatusCancelled {
		t.Fatalf("status = %s, want cancelled", final.MatchStatus)
	}

	// The underlying booking stays active.
	booking, err := f.database.Queries.GetBooking(ctx, f.bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if booking.BookingStatus != db.BookingStatusActive {
		t.Fatalf("booking status = %s, want active", booking.BookingStatus)
	}

	// Cancelled matches reject joins.
	if _, err := f.roster.Join(ctx, match.ID, stranger); !errors.Is(err, matches.ErrNotOpen) {
		t.Fatalf("join cancelled: expected ErrNotOpen, got %v", err)
	}
}

func TestCancelMatchAsAdmin(t *testing.T) {
	f := setupRosterTest(t)
	match := f.createMatch(t, 4)
	admin := testutil.CreateUser(t, f.database, db.RoleAdmin)

	if err := f.roster.Cancel(context.Background(), match.ID, admin, db.RoleAdmin); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}
