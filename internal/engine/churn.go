package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/narrative"
)

// churn checks out NPC guests who no longer hold any memory they arrived
// with, then backfills NPCs up to MinGuests.
func (h *Hotel) churn(ctx context.Context) error {
	guests, err := h.store.ActiveGuests(ctx)
	if err != nil {
		return fmt.Errorf("load guests: %w", err)
	}
	for _, g := range guests {
		if !g.NPC {
			continue
		}
		remaining, err := h.store.CountOriginalsHeld(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("count originals for %s: %w", g.ID, err)
		}
		if remaining > 0 {
			continue
		}

		left, err := h.checkoutDrifted(ctx, g)
		if err != nil {
			return err
		}
		if !left {
			continue
		}

		npcs, err := h.activeNPCCount(ctx)
		if err != nil {
			return err
		}
		if npcs >= h.cfg.MinGuests {
			slog.Info("NPC checked out, no replacement needed", "guest", g.ID, "npcs", npcs)
			continue
		}
		replacement, err := h.spawnReplacement(ctx)
		if err != nil {
			return err
		}
		slog.Info("NPC checked out and was replaced", "guest", g.ID, "replacement", replacement.ID)
	}
	return nil
}

// checkoutDrifted deactivates g if it is still active. It reports false when
// another caller got there first.
func (h *Hotel) checkoutDrifted(ctx context.Context, g *agents.Guest) (bool, error) {
	starting, err := h.store.OriginalMemories(ctx, g.ID)
	if err != nil {
		return false, fmt.Errorf("load original memories: %w", err)
	}
	final, err := h.store.MemoriesHeldBy(ctx, g.ID)
	if err != nil {
		return false, fmt.Errorf("load held memories: %w", err)
	}
	summary := h.teller.Transformation(ctx, narrative.CheckoutRequest{Guest: g, Starting: starting, Final: final})

	left := false
	err = h.update(ctx, func(b *batch) error {
		ok, err := b.q.DeactivateGuest(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("deactivate %s: %w", g.ID, err)
		}
		if !ok {
			return nil
		}
		left = true
		return b.event(ctx, EventNPCCheckout, g.ID,
			fmt.Sprintf("%s has traded away all their original memories. They no longer remember who they were, and drift out of the hotel like smoke. %s", g.Name, summary),
			Effects{"agent_id": g.ID, "original_remaining": 0},
		)
	})
	return left, err
}

func (h *Hotel) activeNPCCount(ctx context.Context) (int, error) {
	guests, err := h.store.ActiveGuests(ctx)
	if err != nil {
		return 0, fmt.Errorf("load guests: %w", err)
	}
	n := 0
	for _, g := range guests {
		if g.NPC {
			n++
		}
	}
	return n, nil
}

// spawnReplacement generates and admits a fresh NPC with zero drift.
func (h *Hotel) spawnReplacement(ctx context.Context) (*agents.Guest, error) {
	profile := h.teller.Guest(ctx, "")
	g, mems := h.spawner.Spawn(profile, agents.Arrival{NPC: true})

	err := h.update(ctx, func(b *batch) error {
		if err := admit(ctx, b, g, mems); err != nil {
			return err
		}
		return b.event(ctx, EventNPCEntry, g.ID,
			fmt.Sprintf("%s pushes through the revolving door, drawn by something they can't name. A new guest arrives to fill the void.", g.Name),
			Effects{"agent_id": g.ID},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("admit replacement: %w", err)
	}
	return g, nil
}

// admit inserts a new guest with their memories and counts them toward the
// hotel's lifetime guest total.
func admit(ctx context.Context, b *batch, g *agents.Guest, mems []agents.Memory) error {
	if err := b.q.InsertGuest(ctx, g); err != nil {
		return fmt.Errorf("insert guest: %w", err)
	}
	for _, m := range mems {
		if err := b.q.InsertMemory(ctx, m); err != nil {
			return fmt.Errorf("insert memory: %w", err)
		}
	}
	state, err := b.q.HotelState(ctx)
	if err != nil {
		return fmt.Errorf("load hotel state: %w", err)
	}
	state.TotalGuests++
	state.UpdatedAt = b.now
	if err := b.q.SaveHotelState(ctx, state); err != nil {
		return fmt.Errorf("save hotel state: %w", err)
	}
	return nil
}
