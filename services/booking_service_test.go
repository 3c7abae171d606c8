package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/CustomZone1/customzone/models"
)

func createTournament(t *testing.T, env *testEnv, input TournamentInput) *models.Tournament {
	t.Helper()
	tournament, err := env.tournaments.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create tournament failed: %v", err)
	}
	return tournament
}

func squadInput() TournamentInput {
	return TournamentInput{
		Name:    "Friday Night Squads",
		Mode:    models.ModeSquad,
		StartAt: "2026-09-04 21:00",
	}
}

func customInput(maxSlots int) TournamentInput {
	return TournamentInput{
		Name:     "Custom Room",
		Mode:     models.ModeCustom,
		StartAt:  "2026-09-04 21:00",
		MaxSlots: maxSlots,
	}
}

func TestBookingAssignsSequentialSlots(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, customInput(10))

	for i := 1; i <= 3; i++ {
		booking, err := env.bookings.Create(ctx, CreateBookingInput{
			TournamentID: tournament.ID,
			UserID:       i,
			Username:     fmt.Sprintf("user%d", i),
		})
		if err != nil {
			t.Fatalf("booking %d failed: %v", i, err)
		}
		if booking.SlotNumber != i {
			t.Fatalf("expected slot %d, got %d", i, booking.SlotNumber)
		}
	}

	got, err := env.tournaments.Recalc(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("recalc failed: %v", err)
	}
	if got.OnlineBookedCount != 3 || got.BookedCount != 3 {
		t.Fatalf("unexpected counters: %+v", got)
	}
}

func TestBookingCaptainDefaultsToUsername(t *testing.T) {
	env := newTestEnv()
	tournament := createTournament(t, env, customInput(10))

	booking, err := env.bookings.Create(context.Background(), CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if booking.PlayerName != "alice" || len(booking.TeamMembers) != 1 {
		t.Fatalf("unexpected roster: %+v", booking)
	}
}

func TestBookingRosterTruncatedToTeamSize(t *testing.T) {
	env := newTestEnv()
	tournament := createTournament(t, env, squadInput())

	booking, err := env.bookings.Create(context.Background(), CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
		TeamMembers:  []string{"p1", "p2", "p3", "p4", "p5", "p6"},
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if len(booking.TeamMembers) != 4 {
		t.Fatalf("squad roster should hold 4 players, got %d", len(booking.TeamMembers))
	}
}

func TestBookingNameConflictWithinTournament(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, customInput(10))

	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
		TeamMembers:  []string{"Shadow"},
	}); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	// Регистр и пробелы не обходят проверку.
	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       2,
		Username:     "bob",
		TeamMembers:  []string{"  shadow  "},
	}); !errors.Is(err, ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
}

func TestBookingSameNameAllowedAcrossTournaments(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	first := createTournament(t, env, customInput(10))
	second := createTournament(t, env, customInput(10))

	for i, tournament := range []*models.Tournament{first, second} {
		if _, err := env.bookings.Create(ctx, CreateBookingInput{
			TournamentID: tournament.ID,
			UserID:       i + 1,
			Username:     "owner",
			PlayerName:   "Shadow",
		}); err != nil {
			t.Fatalf("booking in tournament %d failed: %v", tournament.ID, err)
		}
	}
}

func TestBookingTournamentFull(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, customInput(2))

	for i := 1; i <= 2; i++ {
		if _, err := env.bookings.Create(ctx, CreateBookingInput{
			TournamentID: tournament.ID,
			UserID:       i,
			Username:     fmt.Sprintf("user%d", i),
		}); err != nil {
			t.Fatalf("booking %d failed: %v", i, err)
		}
	}

	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       3,
		Username:     "late",
	}); !errors.Is(err, ErrTournamentFull) {
		t.Fatalf("expected ErrTournamentFull, got %v", err)
	}
}

func TestBookingManualSlotsCountTowardCapacity(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, customInput(3))

	if _, err := env.tournaments.SetManualSoldSlots(ctx, tournament.ID, 2); err != nil {
		t.Fatalf("set manual slots failed: %v", err)
	}

	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
	}); err != nil {
		t.Fatalf("booking into remaining slot failed: %v", err)
	}
	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       2,
		Username:     "bob",
	}); !errors.Is(err, ErrTournamentFull) {
		t.Fatalf("expected ErrTournamentFull, got %v", err)
	}
}

func TestBookingClosedAfterRoomPublish(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, customInput(10))

	if _, err := env.tournaments.PublishRoom(ctx, tournament.ID, "room-7", "pass"); err != nil {
		t.Fatalf("publish room failed: %v", err)
	}

	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "late",
	}); !errors.Is(err, ErrBookingClosed) {
		t.Fatalf("expected ErrBookingClosed, got %v", err)
	}
}

func TestBookingEntryFeeCharged(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	input := customInput(10)
	input.EntryFee = 50
	tournament := createTournament(t, env, input)
	env.fund(1, 120)

	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
	}); err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if got := env.balance(1); got != 70 {
		t.Fatalf("expected balance 70 after fee, got %d", got)
	}
}

func TestBookingInsufficientFeeRollsBackBooking(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	input := customInput(10)
	input.EntryFee = 50
	tournament := createTournament(t, env, input)
	env.fund(1, 20)

	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
	}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Откат не оставляет ни брони, ни списания, ни занятого имени.
	if _, err := env.bookings.GetOwn(ctx, tournament.ID, 1); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected no booking after rollback, got %v", err)
	}
	if got := env.balance(1); got != 20 {
		t.Fatalf("failed booking changed balance: %d", got)
	}
	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       2,
		Username:     "alice2",
		PlayerName:   "alice",
	}); err != nil {
		t.Fatalf("name should be free after rollback: %v", err)
	}
}

func TestBookingConcurrentNeverExceedsCapacity(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, customInput(5))

	const contenders = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < contenders; i++ {
		userID := i + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.bookings.Create(ctx, CreateBookingInput{
				TournamentID: tournament.ID,
				UserID:       userID,
				Username:     fmt.Sprintf("user%d", userID),
			}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected exactly 5 bookings, got %d", succeeded)
	}

	bookings, err := env.bookings.ListByTournament(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	slots := make(map[int]bool)
	for _, b := range bookings {
		if slots[b.SlotNumber] {
			t.Fatalf("duplicate slot number %d", b.SlotNumber)
		}
		slots[b.SlotNumber] = true
	}
}

func TestBookingUpdateMembers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, squadInput())

	booking, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
		TeamMembers:  []string{"a1", "a2"},
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	updated, err := env.bookings.UpdateMembers(ctx, tournament.ID, 1, booking.ID, []string{"b1", "b2", "b3"})
	if err != nil {
		t.Fatalf("update members failed: %v", err)
	}
	if updated.PlayerName != "b1" || len(updated.TeamMembers) != 3 {
		t.Fatalf("unexpected roster after update: %+v", updated)
	}

	// Старые имена освободились.
	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       2,
		Username:     "bob",
		TeamMembers:  []string{"a1"},
	}); err != nil {
		t.Fatalf("old names should be free: %v", err)
	}
}

func TestBookingUpdateMembersKeepsOwnNames(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, squadInput())

	booking, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
		TeamMembers:  []string{"a1", "a2"},
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	// Пересечение с собственной бронью конфликтом не считается.
	if _, err := env.bookings.UpdateMembers(ctx, tournament.ID, 1, booking.ID, []string{"a1", "a3"}); err != nil {
		t.Fatalf("update with own names failed: %v", err)
	}
}

func TestBookingUpdateMembersOwnershipAndConflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, squadInput())

	booking, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
		TeamMembers:  []string{"a1"},
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       2,
		Username:     "bob",
		TeamMembers:  []string{"b1"},
	}); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	if _, err := env.bookings.UpdateMembers(ctx, tournament.ID, 2, booking.ID, []string{"x"}); !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation, got %v", err)
	}
	if _, err := env.bookings.UpdateMembers(ctx, tournament.ID, 1, booking.ID, []string{"B1"}); !errors.Is(err, ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
	if _, err := env.bookings.UpdateMembers(ctx, tournament.ID, 1, booking.ID, []string{"  "}); !errors.Is(err, ErrEmptyRoster) {
		t.Fatalf("expected ErrEmptyRoster, got %v", err)
	}
}

func TestBookingEditWindowCloses(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	start := time.Date(2026, 9, 4, 21, 0, 0, 0, time.UTC)
	input := customInput(10)
	input.StartAt = start.Format("2006-01-02 15:04")
	tournament := createTournament(t, env, input)

	booking, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	env.bookings.now = func() time.Time { return start.Add(-2 * time.Hour) }
	if _, err := env.bookings.UpdateMembers(ctx, tournament.ID, 1, booking.ID, []string{"fresh"}); err != nil {
		t.Fatalf("edit inside window failed: %v", err)
	}

	env.bookings.now = func() time.Time { return start.Add(-30 * time.Minute) }
	if _, err := env.bookings.UpdateMembers(ctx, tournament.ID, 1, booking.ID, []string{"late"}); !errors.Is(err, ErrEditWindowClosed) {
		t.Fatalf("expected ErrEditWindowClosed, got %v", err)
	}
}

func TestBookingEditWindowUnlimitedWhenStartUnparsable(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	input := customInput(10)
	input.StartAt = "after the finals, probably"
	tournament := createTournament(t, env, input)

	booking, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       1,
		Username:     "alice",
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	env.bookings.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := env.bookings.UpdateMembers(ctx, tournament.ID, 1, booking.ID, []string{"whenever"}); err != nil {
		t.Fatalf("unparsable start should not close the window: %v", err)
	}
}

func TestBookingSlotNumbersNotReused(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tournament := createTournament(t, env, customInput(10))

	for i := 1; i <= 3; i++ {
		if _, err := env.bookings.Create(ctx, CreateBookingInput{
			TournamentID: tournament.ID,
			UserID:       i,
			Username:     fmt.Sprintf("user%d", i),
		}); err != nil {
			t.Fatalf("booking %d failed: %v", i, err)
		}
	}

	// Номер слота растёт от максимума среди живых броней.
	booking, err := env.bookings.Create(ctx, CreateBookingInput{
		TournamentID: tournament.ID,
		UserID:       4,
		Username:     "user4",
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if booking.SlotNumber != 4 {
		t.Fatalf("expected slot 4, got %d", booking.SlotNumber)
	}
}

func TestBookingUnknownTournament(t *testing.T) {
	env := newTestEnv()

	if _, err := env.bookings.Create(context.Background(), CreateBookingInput{
		TournamentID: 404,
		UserID:       1,
		Username:     "alice",
	}); !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
}
