package engine

import (
	"context"
	"fmt"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// HotelSummary is the headline block of a snapshot.
type HotelSummary struct {
	Tick         int64  `json:"tick"`
	TotalGuests  int    `json:"total_guests"`
	ActiveGuests int    `json:"active_guests"`
	MaxGuests    int    `json:"max_guests"`
	Mood         Mood   `json:"mood"`
	Status       Status `json:"status"`
	TotalTrades  int    `json:"total_trades"`
}

// RoomView lists who is in a room.
type RoomView struct {
	Name     string         `json:"name"`
	RoomType world.RoomType `json:"room_type"`
	Guests   []string       `json:"agents"`
}

// Snapshot is the public view of the whole hotel.
type Snapshot struct {
	Hotel             HotelSummary        `json:"hotel"`
	UnclaimedMemories []agents.Memory     `json:"unclaimed_memories"`
	Rooms             map[string]RoomView `json:"rooms"`
	RecentEvents      []Event             `json:"recent_events"`
	Leaderboard       []LeaderboardEntry  `json:"leaderboard"`
}

// snapshotEvents is how many recent events a snapshot carries.
const snapshotEvents = 20

// Snapshot reads the current hotel state.
func (h *Hotel) Snapshot(ctx context.Context) (Snapshot, error) {
	state, err := h.store.HotelState(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load hotel state: %w", err)
	}
	guests, err := h.store.ActiveGuests(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load guests: %w", err)
	}
	unclaimed, err := h.store.UnclaimedMemories(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load unclaimed: %w", err)
	}
	events, err := h.store.RecentEvents(ctx, snapshotEvents)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load events: %w", err)
	}
	board, err := h.store.Leaderboard(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load leaderboard: %w", err)
	}

	rooms := make(map[string]RoomView, len(world.Rooms))
	for _, r := range world.Rooms {
		rooms[r.ID] = RoomView{Name: r.Name, RoomType: r.Type, Guests: []string{}}
	}
	for _, g := range guests {
		if v, ok := rooms[g.Room]; ok {
			v.Guests = append(v.Guests, g.ID)
			rooms[g.Room] = v
		}
	}

	return Snapshot{
		Hotel: HotelSummary{
			Tick:         state.Tick,
			TotalGuests:  state.TotalGuests,
			ActiveGuests: len(guests),
			MaxGuests:    h.cfg.MaxGuests,
			Mood:         state.Mood,
			Status:       state.Status,
			TotalTrades:  state.TotalTrades,
		},
		UnclaimedMemories: nonNil(unclaimed),
		Rooms:             rooms,
		RecentEvents:      nonNil(events),
		Leaderboard:       nonNil(board),
	}, nil
}

// State returns the raw hotel state row.
func (h *Hotel) State(ctx context.Context) (HotelState, error) {
	return h.store.HotelState(ctx)
}

// Guest returns one guest, active or not.
func (h *Hotel) Guest(ctx context.Context, id string) (*agents.Guest, error) {
	return h.store.Guest(ctx, id)
}

// GuestMemories returns what a guest currently holds.
func (h *Hotel) GuestMemories(ctx context.Context, id string) ([]agents.Memory, error) {
	if _, err := h.store.Guest(ctx, id); err != nil {
		return nil, err
	}
	mems, err := h.store.MemoriesHeldBy(ctx, id)
	return nonNil(mems), err
}

// OriginalMemories returns what a guest arrived with, wherever it is now.
func (h *Hotel) OriginalMemories(ctx context.Context, id string) ([]agents.Memory, error) {
	if _, err := h.store.Guest(ctx, id); err != nil {
		return nil, err
	}
	mems, err := h.store.OriginalMemories(ctx, id)
	return nonNil(mems), err
}

// History returns a guest's most recent actions, newest first.
func (h *Hotel) History(ctx context.Context, id string, limit int) ([]ActionLog, error) {
	if _, err := h.store.Guest(ctx, id); err != nil {
		return nil, err
	}
	logs, err := h.store.ActionHistory(ctx, id, limit)
	return nonNil(logs), err
}

// Conversations returns the most recent conversations, newest first.
func (h *Hotel) Conversations(ctx context.Context, limit int) ([]Conversation, error) {
	convs, err := h.store.RecentConversations(ctx, limit)
	return nonNil(convs), err
}

// Events returns the most recent events, newest first.
func (h *Hotel) Events(ctx context.Context, limit int) ([]Event, error) {
	events, err := h.store.RecentEvents(ctx, limit)
	return nonNil(events), err
}

// Leaderboard ranks active guests by the points they hold.
func (h *Hotel) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	board, err := h.store.Leaderboard(ctx)
	return nonNil(board), err
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
