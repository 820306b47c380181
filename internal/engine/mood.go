package engine

import (
	"context"
	"fmt"
)

// livelyConversations is how many conversations within the mood window make
// the hotel lively.
const livelyConversations = 3

// chaoticDrift is the drift level at which a guest unsettles the hotel.
const chaoticDrift = 2

// computeMood derives the hotel mood at tick: quiet when empty, lively when
// enough conversations fell inside the window, chaotic when any guest has
// drifted far, neutral otherwise.
func (h *Hotel) computeMood(ctx context.Context, q Queries, tick int64) (Mood, error) {
	guests, err := q.ActiveGuests(ctx)
	if err != nil {
		return "", fmt.Errorf("load guests: %w", err)
	}
	if len(guests) == 0 {
		return MoodQuiet, nil
	}
	n, err := q.CountConversationsSince(ctx, tick-h.cfg.MoodWindowTicks)
	if err != nil {
		return "", fmt.Errorf("count conversations: %w", err)
	}
	if n >= livelyConversations {
		return MoodLively, nil
	}
	for _, g := range guests {
		if g.DriftLevel >= chaoticDrift {
			return MoodChaotic, nil
		}
	}
	return MoodNeutral, nil
}

func (h *Hotel) updateMood(ctx context.Context) error {
	return h.update(ctx, func(b *batch) error {
		state, err := b.q.HotelState(ctx)
		if err != nil {
			return fmt.Errorf("load hotel state: %w", err)
		}
		mood, err := h.computeMood(ctx, b.q, state.Tick)
		if err != nil {
			return err
		}
		state.Mood = mood
		state.UpdatedAt = b.now
		return b.q.SaveHotelState(ctx, state)
	})
}
