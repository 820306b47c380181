package engine_test

import (
	"context"
	"testing"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/persistence"
)

// giveAway hands every memory to another guest so from holds none of its own.
func giveAway(t *testing.T, db *persistence.DB, mems []agents.Memory, from, to string) {
	t.Helper()
	for _, m := range mems {
		ok, err := db.TransferMemory(context.Background(), m.ID, from, to)
		if err != nil || !ok {
			t.Fatalf("transfer %s: ok=%v err=%v", m.ID, ok, err)
		}
	}
}

func TestChurnChecksOutDriftedNPCOnceAndBackfills(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(3), func(c *engine.Config) {
		c.MinGuests = 2
		c.TradeChance = 0
	})
	markOpen(t, db)
	ctx := context.Background()

	drifted, mems := addGuest(t, db, "Drifter", true, memSpec{economy.Common, economy.Painful})
	keeper, _ := addGuest(t, db, "Keeper", true, memSpec{economy.Common, economy.Happy})
	holder, _ := addGuest(t, db, "Holder", false)
	giveAway(t, db, mems, drifted.ID, holder.ID)

	mustTick(t, h)

	if mustGuest(t, db, drifted.ID).Active {
		t.Fatal("drifted NPC still active")
	}
	if !mustGuest(t, db, keeper.ID).Active {
		t.Error("NPC with originals was checked out")
	}
	if n := countEvents(t, db, engine.EventNPCCheckout); n != 1 {
		t.Errorf("checkout events = %d, want 1", n)
	}
	if n := countEvents(t, db, engine.EventNPCEntry); n != 1 {
		t.Fatalf("entry events = %d, want 1", n)
	}

	guests, err := db.ActiveGuests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var replacement *agents.Guest
	for _, g := range guests {
		if g.ID != keeper.ID && g.ID != holder.ID {
			replacement = g
		}
	}
	if replacement == nil || !replacement.NPC {
		t.Fatalf("no replacement NPC among %+v", guests)
	}
	held, err := db.MemoriesHeldBy(ctx, replacement.ID)
	if err != nil {
		t.Fatal(err)
	}
	if replacement.EverHeld != len(held) || replacement.TradedAway != 0 || replacement.DriftLevel != 0 {
		t.Errorf("replacement counters = %d/%d/%d with %d memories",
			replacement.EverHeld, replacement.TradedAway, replacement.DriftLevel, len(held))
	}
	if len(held) != agents.MemoriesPerGuest {
		t.Errorf("replacement memories = %d, want %d", len(held), agents.MemoriesPerGuest)
	}
	if got := mustState(t, db).TotalGuests; got != 1 {
		t.Errorf("total guests = %d, want 1 (only the replacement was admitted through the hotel)", got)
	}

	// The drifted guest's memories stay with whoever holds them.
	if owner := ownerOf(t, db, mems[0].ID); owner != holder.ID {
		t.Errorf("memory owner = %q after checkout", owner)
	}

	mustTick(t, h)
	if n := countEvents(t, db, engine.EventNPCCheckout); n != 1 {
		t.Errorf("checkout events after second tick = %d, want 1", n)
	}
}

func TestChurnSkipsBackfillAboveFloor(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(4), func(c *engine.Config) {
		c.MinGuests = 1
		c.TradeChance = 0
	})
	markOpen(t, db)

	drifted, mems := addGuest(t, db, "Drifter", true, memSpec{economy.Common, economy.Painful})
	addGuest(t, db, "Keeper", true, memSpec{economy.Common, economy.Happy})
	holder, _ := addGuest(t, db, "Holder", false)
	giveAway(t, db, mems, drifted.ID, holder.ID)

	mustTick(t, h)

	if mustGuest(t, db, drifted.ID).Active {
		t.Fatal("drifted NPC still active")
	}
	if n := countEvents(t, db, engine.EventNPCEntry); n != 0 {
		t.Errorf("entry events = %d, want 0", n)
	}
}

func TestChurnIgnoresVisitors(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(5), func(c *engine.Config) { c.TradeChance = 0 })
	markOpen(t, db)
	visitor, mems := addGuest(t, db, "Visitor", false, memSpec{economy.Common, economy.Painful})
	other, _ := addGuest(t, db, "Other", false)
	giveAway(t, db, mems, visitor.ID, other.ID)

	mustTick(t, h)

	if !mustGuest(t, db, visitor.ID).Active {
		t.Error("visiting guest was churned")
	}
}
