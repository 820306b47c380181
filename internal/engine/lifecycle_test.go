package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/ledger"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

type rejectingVerifier struct{ reason string }

func (v rejectingVerifier) Verify(context.Context, string) (ledger.Verdict, error) {
	return ledger.Verdict{Valid: false, Reason: v.reason}, nil
}

func TestOpenSeedsCast(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
	ctx := context.Background()

	cast, err := h.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(cast) != len(agents.SeedProfiles()) {
		t.Fatalf("cast = %d, want %d", len(cast), len(agents.SeedProfiles()))
	}
	for _, s := range cast {
		if !s.Guest.NPC || s.Guest.Room != world.Lobby {
			t.Errorf("%s: npc=%v room=%s", s.Guest.Name, s.Guest.NPC, s.Guest.Room)
		}
		if s.Guest.EverHeld != len(s.Memories) {
			t.Errorf("%s: ever held %d with %d memories", s.Guest.Name, s.Guest.EverHeld, len(s.Memories))
		}
	}

	state := mustState(t, db)
	if state.Status != engine.StatusOpen || state.Tick != 0 || state.TotalGuests != len(cast) {
		t.Errorf("state = %+v", state)
	}
	if n := countEvents(t, db, engine.EventHotelOpen); n != 1 {
		t.Errorf("open events = %d", n)
	}

	if _, err := h.Open(ctx); !errors.Is(err, engine.ErrHotelOpen) {
		t.Errorf("second open = %v, want ErrHotelOpen", err)
	}
}

func TestOpenAfterCloseStartsFresh(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(2), nil)
	ctx := context.Background()

	if _, err := h.Open(ctx); err != nil {
		t.Fatal(err)
	}
	mustTick(t, h)
	if err := h.Close(ctx); err != nil {
		t.Fatal(err)
	}
	cast, err := h.Open(ctx)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	guests, err := db.ActiveGuests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(guests) != len(cast) {
		t.Errorf("active guests = %d after reopen, want %d", len(guests), len(cast))
	}
	if state := mustState(t, db); state.Tick != 0 || state.TotalTrades != 0 {
		t.Errorf("state not reset: %+v", state)
	}
}

func TestEnterAdmitsVisitor(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(3), nil)
	markOpen(t, db)
	ctx := context.Background()

	res, err := h.Enter(ctx, engine.EnterRequest{Name: "  iris vance ", Wallet: "0xABCdef", TxHash: "0xfeed"})
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	g := res.Guest
	if g.Name != "Iris Vance" {
		t.Errorf("name = %q", g.Name)
	}
	if g.Wallet != "0xabcdef" || g.EntryTx != "0xfeed" || g.NPC {
		t.Errorf("guest = %+v", g)
	}
	if len(res.Memories) != agents.MemoriesPerGuest {
		t.Errorf("memories = %d", len(res.Memories))
	}
	if !strings.Contains(res.Narrative, "Iris Vance") {
		t.Errorf("narrative = %q", res.Narrative)
	}
	if got := mustGuest(t, db, g.ID); !got.Active || got.Room != world.Lobby {
		t.Errorf("stored guest = %+v", got)
	}
	if got := mustState(t, db).TotalGuests; got != 1 {
		t.Errorf("total guests = %d", got)
	}
	if n := countEvents(t, db, engine.EventGuestEntry); n != 1 {
		t.Errorf("entry events = %d", n)
	}
}

func TestEnterRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("closed", func(t *testing.T) {
		h, _ := newTestHotel(t, entropy.NewSeeded(1), nil)
		_, err := h.Enter(ctx, engine.EnterRequest{Name: "A", Wallet: "0x1", TxHash: "0xa"})
		if !errors.Is(err, engine.ErrHotelClosed) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
		markOpen(t, db)
		_, err := h.Enter(ctx, engine.EnterRequest{Name: "A", Wallet: " "})
		if !errors.Is(err, engine.ErrValidation) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("replayed tx", func(t *testing.T) {
		h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
		markOpen(t, db)
		if _, err := h.Enter(ctx, engine.EnterRequest{Name: "A", Wallet: "0x1", TxHash: "0xa"}); err != nil {
			t.Fatal(err)
		}
		_, err := h.Enter(ctx, engine.EnterRequest{Name: "B", Wallet: "0x2", TxHash: "0xa"})
		if !errors.Is(err, engine.ErrTxReused) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("wallet already inside", func(t *testing.T) {
		h, db := newTestHotel(t, entropy.NewSeeded(1), nil)
		markOpen(t, db)
		if _, err := h.Enter(ctx, engine.EnterRequest{Name: "A", Wallet: "0xAA", TxHash: "0xa"}); err != nil {
			t.Fatal(err)
		}
		_, err := h.Enter(ctx, engine.EnterRequest{Name: "B", Wallet: "0xaa", TxHash: "0xb"})
		if !errors.Is(err, engine.ErrWalletActive) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("visitor cap", func(t *testing.T) {
		h, db := newTestHotel(t, entropy.NewSeeded(1), func(c *engine.Config) { c.MaxExternalGuests = 1 })
		markOpen(t, db)
		if _, err := h.Enter(ctx, engine.EnterRequest{Name: "A", Wallet: "0x1", TxHash: "0xa"}); err != nil {
			t.Fatal(err)
		}
		_, err := h.Enter(ctx, engine.EnterRequest{Name: "B", Wallet: "0x2", TxHash: "0xb"})
		if !errors.Is(err, engine.ErrHotelFull) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("hotel full", func(t *testing.T) {
		h, db := newTestHotel(t, entropy.NewSeeded(1), func(c *engine.Config) {
			c.MinGuests = 1
			c.MaxGuests = 1
		})
		markOpen(t, db)
		addGuest(t, db, "Resident", true)
		_, err := h.Enter(ctx, engine.EnterRequest{Name: "A", Wallet: "0x1", TxHash: "0xa"})
		if !errors.Is(err, engine.ErrHotelFull) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("payment rejected", func(t *testing.T) {
		h, db := newHotelWith(t, engine.Deps{
			Source:   entropy.NewSeeded(1),
			Verifier: rejectingVerifier{reason: "Payment too low"},
		}, nil)
		markOpen(t, db)
		_, err := h.Enter(ctx, engine.EnterRequest{Name: "A", Wallet: "0x1", TxHash: "0xa"})
		if !errors.Is(err, engine.ErrPaymentRejected) || !strings.Contains(err.Error(), "Payment too low") {
			t.Errorf("err = %v", err)
		}
		guests, _ := db.ActiveGuests(ctx)
		if len(guests) != 0 {
			t.Errorf("rejected payment admitted %d guests", len(guests))
		}
	})
}

func TestCheckout(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(4), nil)
	markOpen(t, db)
	ctx := context.Background()

	res, err := h.Enter(ctx, engine.EnterRequest{Name: "Iris", Wallet: "0x1", TxHash: "0xa"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := h.Checkout(ctx, res.Guest.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if out.Farewell == "" || out.Narrative == "" {
		t.Errorf("farewell = %q narrative = %q", out.Farewell, out.Narrative)
	}
	if len(out.Starting) != agents.MemoriesPerGuest || len(out.Final) != agents.MemoriesPerGuest {
		t.Errorf("starting = %d final = %d", len(out.Starting), len(out.Final))
	}
	for _, m := range out.Final {
		if !m.WasOriginal || m.FromGuest != nil {
			t.Errorf("final memory %s marked as acquired", m.ID)
		}
	}
	if mustGuest(t, db, res.Guest.ID).Active {
		t.Error("guest still active")
	}
	// Memories leave with the guest.
	if owner := ownerOf(t, db, res.Memories[0].ID); owner != res.Guest.ID {
		t.Errorf("memory owner = %q", owner)
	}

	if _, err := h.Checkout(ctx, res.Guest.ID); !errors.Is(err, engine.ErrCheckedOut) {
		t.Errorf("second checkout = %v", err)
	}
	if _, err := h.Checkout(ctx, "agent_missing"); !errors.Is(err, engine.ErrGuestNotFound) {
		t.Errorf("unknown checkout = %v", err)
	}
	if n := countEvents(t, db, engine.EventGuestCheckout); n != 1 {
		t.Errorf("checkout events = %d", n)
	}

	// The wallet is free to enter again with a new payment.
	if _, err := h.Enter(ctx, engine.EnterRequest{Name: "Iris", Wallet: "0x1", TxHash: "0xb"}); err != nil {
		t.Errorf("re-entry: %v", err)
	}
}

func TestCloseAndResults(t *testing.T) {
	h, db := newTestHotel(t, entropy.NewSeeded(5), nil)
	ctx := context.Background()

	if err := h.Close(ctx); !errors.Is(err, engine.ErrHotelClosed) {
		t.Errorf("close before open = %v", err)
	}
	cast, err := h.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Results(ctx); !errors.Is(err, engine.ErrNotFinished) {
		t.Errorf("results while open = %v", err)
	}
	if err := h.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := mustState(t, db).Status; got != engine.StatusFinished {
		t.Errorf("status = %s", got)
	}

	results, err := h.Results(ctx)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != len(cast) {
		t.Fatalf("results = %d, want %d", len(results), len(cast))
	}
	for i, r := range results {
		if len(r.Starting) != len(cast[i].Memories) {
			t.Errorf("%s: starting = %d", r.Name, len(r.Starting))
		}
		for _, m := range r.Starting {
			if !m.StillOwned {
				t.Errorf("%s: untraded memory %s marked as lost", r.Name, m.ID)
			}
		}
		if r.Narrative == "" {
			t.Errorf("%s: empty narrative", r.Name)
		}
	}

	// A finished hotel no longer ticks.
	mustTick(t, h)
	if got := mustState(t, db).Tick; got != 0 {
		t.Errorf("tick advanced to %d after close", got)
	}
	if err := h.Close(ctx); !errors.Is(err, engine.ErrHotelClosed) {
		t.Errorf("second close = %v", err)
	}
}
