// Package narrative writes the prose around the simulation: conversation
// lines, generated guests, action narration and checkout summaries.
//
// The engine decides what happens and a Teller only describes it. Tellers
// never fail; the remote teller falls back to local templates on any error.
package narrative

import (
	"context"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/rules"
)

// Line is one spoken line of a conversation.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Party is one side of a conversation with what they currently hold.
type Party struct {
	Guest    *agents.Guest
	Memories []agents.Memory
}

// DialogueRequest describes a conversation whose outcome is already decided.
// AGives and BGives are the selected swap, if any; Trade reports whether the
// swap is agreed.
type DialogueRequest struct {
	Room   string
	A, B   Party
	Trade  bool
	AGives *agents.Memory
	BGives *agents.Memory
}

// CheckoutRequest describes a guest on their way out.
type CheckoutRequest struct {
	Guest    *agents.Guest
	Starting []agents.Memory // Memories originally brought in
	Final    []agents.Memory // Memories held at checkout
}

// Teller produces narrative text for the engine.
type Teller interface {
	Dialogue(ctx context.Context, req DialogueRequest) []Line
	Guest(ctx context.Context, name string) agents.Profile
	Action(action rules.ActionType, g *agents.Guest, room string) string
	Transformation(ctx context.Context, req CheckoutRequest) string
	Farewell(ctx context.Context, g *agents.Guest, summary string) string
}
