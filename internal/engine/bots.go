package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/rules"
)

// runBots gives every active guest, visitors included, one turn in shuffled
// order. Each decision sees the moves and claims made earlier in the same pass.
func (h *Hotel) runBots(ctx context.Context, tick int64) (int, error) {
	guests, err := h.store.ActiveGuests(ctx)
	if err != nil {
		return 0, fmt.Errorf("load guests: %w", err)
	}
	unclaimed, err := h.store.UnclaimedMemories(ctx)
	if err != nil {
		return 0, fmt.Errorf("load unclaimed memories: %w", err)
	}

	order := make([]*agents.Guest, len(guests))
	copy(order, guests)
	h.src.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	acted := 0
	for _, g := range order {
		intent := agents.Decide(h.src, g, agents.Surroundings{
			Tick:      tick,
			Others:    guests,
			Unclaimed: unclaimed,
			Currents:  h.currents,
		})

		var req rules.Request
		switch intent.Kind {
		case agents.IntentMove:
			req = rules.MoveRequest(g.ID, intent.Room)
		case agents.IntentClaim:
			req = rules.ClaimRequest(g.ID, intent.MemoryID)
		default:
			continue
		}

		if _, err := h.Process(ctx, req); err != nil {
			slog.Debug("bot action rejected", "guest", g.ID, "action", req.Action, "error", err)
			continue
		}
		acted++

		switch intent.Kind {
		case agents.IntentMove:
			g.Room = intent.Room
		case agents.IntentClaim:
			unclaimed = withoutMemory(unclaimed, intent.MemoryID)
		}
	}
	return acted, nil
}

func withoutMemory(mems []agents.Memory, id string) []agents.Memory {
	out := mems[:0:0]
	for _, m := range mems {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
