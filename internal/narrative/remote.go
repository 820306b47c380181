package narrative

import (
	"context"
	"log/slog"
	"time"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/llm"
	"github.com/belindacoding/liminal-hotel/internal/rules"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// Remote writes narrative with the LLM and falls back to a Local teller when
// the client is disabled, errors, or runs past the timeout.
type Remote struct {
	client   *llm.Client
	fallback *Local
	timeout  time.Duration
}

// NewRemote creates an LLM-backed teller. A nil or disabled client makes it
// behave exactly like fallback.
func NewRemote(client *llm.Client, fallback *Local, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Remote{client: client, fallback: fallback, timeout: timeout}
}

var _ Teller = (*Remote)(nil)

// Dialogue asks the model for conversation lines matching the decided outcome.
func (r *Remote) Dialogue(ctx context.Context, req DialogueRequest) []Line {
	if !r.client.Enabled() {
		return r.fallback.Dialogue(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dc := llm.DialogueContext{
		Room:  world.RoomName(req.Room),
		A:     speaker(req.A),
		B:     speaker(req.B),
		Trade: req.Trade && req.AGives != nil && req.BGives != nil,
	}
	if dc.Trade {
		dc.AGives = req.AGives.Name
		dc.BGives = req.BGives.Name
	}

	exchanges, err := llm.GenerateDialogue(ctx, r.client, dc)
	if err != nil {
		slog.Warn("dialogue generation failed, using templates", "error", err)
		return r.fallback.Dialogue(ctx, req)
	}
	lines := make([]Line, len(exchanges))
	for i, e := range exchanges {
		lines[i] = Line{Speaker: e.Speaker, Text: e.Text}
	}
	return lines
}

func speaker(p Party) llm.Speaker {
	return llm.Speaker{
		Name:        p.Guest.FirstName(),
		Personality: p.Guest.Personality,
		Backstory:   p.Guest.Backstory,
		Painful:     namesBySentiment(p.Memories, economy.Painful),
		Happy:       namesBySentiment(p.Memories, economy.Happy),
	}
}

// Guest asks the model to invent a guest.
func (r *Remote) Guest(ctx context.Context, name string) agents.Profile {
	if !r.client.Enabled() {
		return r.fallback.Guest(ctx, name)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, err := llm.GenerateGuest(ctx, r.client, name)
	if err != nil {
		slog.Warn("guest generation failed, using fallback pools", "error", err)
		return r.fallback.Guest(ctx, name)
	}
	return p
}

// Action narration is template-only; model calls are kept for dialogue and
// guest generation.
func (r *Remote) Action(action rules.ActionType, g *agents.Guest, room string) string {
	return r.fallback.Action(action, g, room)
}

// Transformation asks the model to summarize a guest's stay.
func (r *Remote) Transformation(ctx context.Context, req CheckoutRequest) string {
	if !r.client.Enabled() {
		return r.fallback.Transformation(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := llm.GenerateTransformation(ctx, r.client, llm.TransformationContext{
		Name:         req.Guest.Name,
		Personality:  req.Guest.Personality,
		Backstory:    req.Guest.Backstory,
		StartPainful: namesBySentiment(req.Starting, economy.Painful),
		StartHappy:   namesBySentiment(req.Starting, economy.Happy),
		FinalPainful: namesBySentiment(req.Final, economy.Painful),
		FinalHappy:   namesBySentiment(req.Final, economy.Happy),
	})
	if err != nil || text == "" {
		slog.Warn("transformation narration failed, using template", "guest", req.Guest.ID, "error", err)
		return r.fallback.Transformation(ctx, req)
	}
	return text
}

// Farewell asks the model for a checkout farewell.
func (r *Remote) Farewell(ctx context.Context, g *agents.Guest, summary string) string {
	if !r.client.Enabled() {
		return r.fallback.Farewell(ctx, g, summary)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := llm.GenerateFarewell(ctx, r.client, g.Name, g.Personality, summary)
	if err != nil || text == "" {
		slog.Warn("farewell narration failed, using template", "guest", g.ID, "error", err)
		return r.fallback.Farewell(ctx, g, summary)
	}
	return text
}
