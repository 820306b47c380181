package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/rules"
)

func TestProcessMove(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
	g, _ := addGuest(t, db, "Ana", false, memSpec{economy.Common, economy.Neutral})
	ctx := context.Background()

	resp, err := h.Process(ctx, rules.MoveRequest(g.ID, "fireplace"))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !resp.Success || resp.StateChanges.Guest.Room != "fireplace" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Narrative == "" {
		t.Error("move has no narrative")
	}
	if got := mustGuest(t, db, g.ID).Room; got != "fireplace" {
		t.Errorf("stored room = %s", got)
	}

	history, err := h.History(ctx, g.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Action != "move" {
		t.Errorf("history = %+v", history)
	}

	resp, err = h.Process(ctx, rules.MoveRequest(g.ID, "fireplace"))
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("repeat move err = %v, want ErrValidation", err)
	}
	if resp.Success || resp.Code != engine.CodeValidation || resp.Error != "You are already there." {
		t.Errorf("repeat move response = %+v", resp)
	}
}

func TestProcessUnknownGuest(t *testing.T) {
	h, _ := newTestHotel(t, entropy.NewSeeded(1), nil)
	resp, err := h.Process(context.Background(), rules.MoveRequest("guest_nobody", "lobby"))
	if !errors.Is(err, engine.ErrGuestNotFound) {
		t.Fatalf("err = %v, want ErrGuestNotFound", err)
	}
	if resp.Code != engine.CodeGuestNotFound {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestProcessInactiveGuest(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
	g, _ := addGuest(t, db, "Ana", false)
	if _, err := db.DeactivateGuest(context.Background(), g.ID); err != nil {
		t.Fatal(err)
	}
	resp, err := h.Process(context.Background(), rules.MoveRequest(g.ID, "gallery"))
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if resp.Error != "Guest is no longer active in the hotel." {
		t.Errorf("reason = %q", resp.Error)
	}
}

func TestClaimEcho(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
	g, _ := addGuest(t, db, "Ana", false, memSpec{economy.Common, economy.Painful})
	echo := addEcho(t, db, "echo_1", economy.Happy)

	resp, err := h.Process(context.Background(), rules.ClaimRequest(g.ID, echo.ID))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	sc := resp.StateChanges
	if len(sc.NewMemories) != 1 || sc.NewMemories[0].ID != echo.ID {
		t.Errorf("new memories = %+v", sc.NewMemories)
	}
	if len(sc.WorldEffects) != 1 || sc.WorldEffects[0] != "Ana claimed an echo from the hotel." {
		t.Errorf("world effects = %v", sc.WorldEffects)
	}

	if owner := ownerOf(t, db, echo.ID); owner != g.ID {
		t.Errorf("owner = %q, want %s", owner, g.ID)
	}
	stored := mustGuest(t, db, g.ID)
	if stored.EverHeld != 2 {
		t.Errorf("ever held = %d, want 2", stored.EverHeld)
	}
	if !stored.EchoSources.Has(agents.HotelOwner) {
		t.Errorf("echo sources %v missing hotel", stored.EchoSources)
	}
	if n := countEvents(t, db, engine.EventClaim); n != 1 {
		t.Errorf("claim events = %d, want 1", n)
	}
}

func TestClaimOwnedMemoryLeavesStateAlone(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
	a, memsA := addGuest(t, db, "Ana", false, memSpec{economy.Rare, economy.Happy})
	b, _ := addGuest(t, db, "Ben", false, memSpec{economy.Common, economy.Neutral})
	before := mustGuest(t, db, b.ID)

	resp, err := h.Process(context.Background(), rules.ClaimRequest(b.ID, memsA[0].ID))
	if !errors.Is(err, engine.ErrAlreadyClaimed) {
		t.Fatalf("err = %v, want ErrAlreadyClaimed", err)
	}
	if resp.Code != engine.CodeAlreadyClaimed || resp.Error != "Memory has already been claimed." {
		t.Errorf("response = %+v", resp)
	}
	if owner := ownerOf(t, db, memsA[0].ID); owner != a.ID {
		t.Errorf("owner changed to %q", owner)
	}
	after := mustGuest(t, db, b.ID)
	if after.EverHeld != before.EverHeld || after.DriftLevel != before.DriftLevel {
		t.Errorf("guest mutated: before %+v after %+v", before, after)
	}
	if n := countEvents(t, db, engine.EventClaim); n != 0 {
		t.Errorf("claim events = %d, want 0", n)
	}
}

func TestClaimMissingMemory(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
	g, _ := addGuest(t, db, "Ana", false)
	resp, err := h.Process(context.Background(), rules.ClaimRequest(g.ID, "echo_missing"))
	if !errors.Is(err, engine.ErrMemoryNotFound) {
		t.Fatalf("err = %v, want ErrMemoryNotFound", err)
	}
	if resp.Code != engine.CodeMemoryNotFound {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestClaimCapacity(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(1), func(c *engine.Config) { c.MaxMemoriesPerGuest = 2 })
	g, _ := addGuest(t, db, "Ana", false,
		memSpec{economy.Common, economy.Neutral},
		memSpec{economy.Common, economy.Neutral},
	)
	echo := addEcho(t, db, "echo_cap", economy.Happy)

	resp, err := h.Process(context.Background(), rules.ClaimRequest(g.ID, echo.ID))
	if !errors.Is(err, engine.ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
	if resp.Error != "You are carrying too many memories to claim another." {
		t.Errorf("reason = %q", resp.Error)
	}
	if owner := ownerOf(t, db, echo.ID); owner != "" {
		t.Errorf("echo claimed by %q", owner)
	}
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
	var guests []*agents.Guest
	for _, name := range []string{"Ana", "Ben", "Cy", "Dee"} {
		g, _ := addGuest(t, db, name, false)
		guests = append(guests, g)
	}
	echo := addEcho(t, db, "echo_race", economy.Happy)

	const n = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		lost     int
		failures []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(g *agents.Guest) {
			defer wg.Done()
			_, err := h.Process(context.Background(), rules.ClaimRequest(g.ID, echo.ID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, engine.ErrAlreadyClaimed):
				lost++
			default:
				failures = append(failures, err)
			}
		}(guests[i%len(guests)])
	}
	wg.Wait()

	if len(failures) > 0 {
		t.Fatalf("unexpected errors: %v", failures)
	}
	if wins != 1 || lost != n-1 {
		t.Errorf("wins = %d, lost = %d; want 1 and %d", wins, lost, n-1)
	}
	if n := countEvents(t, db, engine.EventClaim); n != 1 {
		t.Errorf("claim events = %d, want 1", n)
	}
}
