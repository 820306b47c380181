package visitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/llm"
	"github.com/belindacoding/liminal-hotel/internal/rules"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// ActionNone means the visitor sits this step out.
const ActionNone rules.ActionType = "none"

// Decision is one chosen step.
type Decision struct {
	Action     rules.ActionType `json:"action"`
	TargetRoom string           `json:"target_room,omitempty"`
	MemoryID   string           `json:"memory_id,omitempty"`
	Rationale  string           `json:"rationale"`
}

// Strategy picks the visitor's next step from a view.
type Strategy interface {
	Decide(ctx context.Context, v *View) Decision
}

// Wanderer claims echoes while it has room for them and otherwise walks
// to rooms it has not seen yet.
type Wanderer struct {
	src         entropy.Source
	maxMemories int
	visited     map[string]bool
}

// NewWanderer creates a wanderer that stops claiming at maxMemories.
func NewWanderer(src entropy.Source, maxMemories int) *Wanderer {
	return &Wanderer{src: src, maxMemories: maxMemories, visited: map[string]bool{}}
}

func (w *Wanderer) Decide(_ context.Context, v *View) Decision {
	if v.Guest == nil || !v.Guest.Active {
		return Decision{Action: ActionNone, Rationale: "no longer in the hotel"}
	}
	w.visited[v.Guest.Room] = true

	if len(v.Memories) < w.maxMemories && len(v.Hotel.UnclaimedMemories) > 0 {
		m := entropy.Pick(w.src, v.Hotel.UnclaimedMemories)
		return Decision{Action: rules.ActionClaim, MemoryID: m.ID, Rationale: "an echo is lying unclaimed"}
	}

	var fresh, other []string
	for _, id := range world.RoomIDs() {
		if id == v.Guest.Room {
			continue
		}
		other = append(other, id)
		if !w.visited[id] {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		clear(w.visited)
		w.visited[v.Guest.Room] = true
		fresh = other
	}
	room := entropy.Pick(w.src, fresh)
	return Decision{Action: rules.ActionMove, TargetRoom: room, Rationale: "wandering to " + world.RoomName(room)}
}

const systemPrompt = `You are a guest at the Liminal Hotel, a place where strangers carry their memories like luggage and sometimes give them away in conversation.

Each step you may do one thing:
- "move": walk to another room (set "target_room" to a room id).
- "claim": pick up an unclaimed echo the hotel has produced (set "memory_id").
- "none": stay where you are.

Trades happen on their own when you share a room with another guest. Being in busy rooms makes conversations more likely.

Respond with ONLY valid JSON (no markdown, no explanation outside the JSON):
{"action": "move", "target_room": "fireplace", "rationale": "..."}`

// Deliberator asks the model for each step and falls back to another
// strategy when the model is unavailable or answers with something invalid.
type Deliberator struct {
	client   *llm.Client
	fallback Strategy
}

// NewDeliberator creates a model-driven strategy.
func NewDeliberator(client *llm.Client, fallback Strategy) *Deliberator {
	return &Deliberator{client: client, fallback: fallback}
}

func (d *Deliberator) Decide(ctx context.Context, v *View) Decision {
	if !d.client.Enabled() {
		return d.fallback.Decide(ctx, v)
	}
	resp, err := d.client.Complete(ctx, systemPrompt, formatView(v), 256)
	if err != nil {
		slog.Warn("visitor decision failed, wandering instead", "error", err)
		return d.fallback.Decide(ctx, v)
	}

	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var dec Decision
	if err := json.Unmarshal([]byte(resp), &dec); err != nil {
		slog.Warn("visitor decision unparseable", "raw", resp, "error", err)
		return d.fallback.Decide(ctx, v)
	}
	if err := enforceGuardrails(dec, v); err != nil {
		slog.Warn("visitor decision rejected", "error", err)
		return d.fallback.Decide(ctx, v)
	}
	return dec
}

// enforceGuardrails rejects decisions the hotel would refuse anyway.
func enforceGuardrails(d Decision, v *View) error {
	switch d.Action {
	case ActionNone:
		return nil
	case rules.ActionMove:
		if !world.IsRoom(d.TargetRoom) {
			return fmt.Errorf("unknown room %q", d.TargetRoom)
		}
		if v.Guest != nil && d.TargetRoom == v.Guest.Room {
			return fmt.Errorf("already in %s", d.TargetRoom)
		}
	case rules.ActionClaim:
		for _, m := range v.Hotel.UnclaimedMemories {
			if m.ID == d.MemoryID {
				return nil
			}
		}
		return fmt.Errorf("memory %q is not unclaimed", d.MemoryID)
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}
	return nil
}

func formatView(v *View) string {
	var b strings.Builder

	h := v.Hotel.Hotel
	fmt.Fprintf(&b, "## The hotel (tick %d, mood %s)\n", h.Tick, h.Mood)
	fmt.Fprintf(&b, "Guests: %d | Trades so far: %d\n\n", h.ActiveGuests, h.TotalTrades)

	if g := v.Guest; g != nil {
		fmt.Fprintf(&b, "## You\n%s, in %s. Drift level %d.\n", g.Name, world.RoomName(g.Room), g.DriftLevel)
		fmt.Fprintf(&b, "Personality: %s\n\n", g.Personality)
	}

	b.WriteString("## Rooms\n")
	for _, id := range world.SortedRoomIDs(v.Hotel.Rooms) {
		r := v.Hotel.Rooms[id]
		fmt.Fprintf(&b, "- %s (%s): %d guests\n", id, r.Name, len(r.Guests))
	}

	b.WriteString("\n## Your memories\n")
	writeMemories(&b, v.Memories)

	b.WriteString("\n## Unclaimed echoes\n")
	writeMemories(&b, v.Hotel.UnclaimedMemories)
	return b.String()
}

func writeMemories(b *strings.Builder, mems []agents.Memory) {
	if len(mems) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for _, m := range mems {
		fmt.Fprintf(b, "- %s %q [%s, %s]\n", m.ID, m.Name, m.Rarity, m.Sentiment)
	}
}
