package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/rules"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// ErrorCode classifies a failed action for clients.
type ErrorCode string

const (
	CodeGuestNotFound  ErrorCode = "guest_not_found"
	CodeValidation     ErrorCode = "validation"
	CodeMemoryNotFound ErrorCode = "memory_not_found"
	CodeAlreadyClaimed ErrorCode = "already_claimed"
	CodeCapacity       ErrorCode = "capacity"
	CodeInternal       ErrorCode = "internal"
)

// IdentityDrift is reported when an action moved a guest to a new drift level.
type IdentityDrift struct {
	DriftLevel int     `json:"drift_level"`
	DriftRatio float64 `json:"drift_ratio"`
	Message    string  `json:"message"`
}

// StateChanges describes what an action did.
type StateChanges struct {
	Guest         *agents.Guest   `json:"agent"`
	WorldEffects  []string        `json:"world_effects,omitempty"`
	NewMemories   []agents.Memory `json:"new_memories,omitempty"`
	LostMemories  []string        `json:"lost_memories,omitempty"`
	IdentityDrift *IdentityDrift  `json:"identity_drift,omitempty"`
}

// Response is the result of processing one action request.
type Response struct {
	Success          bool               `json:"success"`
	Action           rules.ActionType   `json:"action"`
	Error            string             `json:"error,omitempty"`
	Code             ErrorCode          `json:"code,omitempty"`
	StateChanges     *StateChanges      `json:"state_changes,omitempty"`
	Narrative        string             `json:"narrative,omitempty"`
	AvailableActions []rules.ActionType `json:"available_actions"`
	Timestamp        int64              `json:"timestamp"`
}

// Classify maps an action error to its code and the reason shown to clients.
func Classify(err error) (ErrorCode, string) {
	var verr *rules.ValidationError
	switch {
	case errors.As(err, &verr):
		return CodeValidation, verr.Reason
	case errors.Is(err, ErrValidation):
		return CodeValidation, "Invalid action."
	case errors.Is(err, ErrGuestNotFound):
		return CodeGuestNotFound, "Guest not found."
	case errors.Is(err, ErrMemoryNotFound):
		return CodeMemoryNotFound, "Memory not found."
	case errors.Is(err, ErrAlreadyClaimed):
		return CodeAlreadyClaimed, "Memory has already been claimed."
	case errors.Is(err, ErrCapacity):
		return CodeCapacity, "You are carrying too many memories to claim another."
	}
	return CodeInternal, "Action processing failed."
}

// Process validates and applies one action. Everything the action touches,
// including its log row, is written in a single transaction. A failed action
// returns a Response with Success false alongside the classified error.
func (h *Hotel) Process(ctx context.Context, req rules.Request) (Response, error) {
	var resp Response
	err := h.update(ctx, func(b *batch) error {
		g, err := b.q.Guest(ctx, req.GuestID)
		if err != nil {
			return err
		}
		held, err := b.q.MemoriesHeldBy(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("load held memories: %w", err)
		}
		if err := rules.Validate(req, g, held); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}

		changes := &StateChanges{}
		var outcome any
		switch req.Action {
		case rules.ActionMove:
			outcome, err = h.applyMove(ctx, b, g, req.Move)
		case rules.ActionClaim:
			outcome, err = h.applyClaim(ctx, b, g, held, req.Claim, changes)
		default:
			err = fmt.Errorf("%w: unhandled action %q", ErrValidation, req.Action)
		}
		if err != nil {
			return err
		}

		narrative := h.teller.Action(req.Action, g, g.Room)
		params, _ := json.Marshal(req.Params())
		out, _ := json.Marshal(outcome)
		if err := b.q.InsertActionLog(ctx, &ActionLog{
			GuestID:   g.ID,
			Action:    string(req.Action),
			Params:    params,
			Outcome:   out,
			Narrative: narrative,
			Tick:      b.tick,
			CreatedAt: b.now,
		}); err != nil {
			return fmt.Errorf("log action: %w", err)
		}

		changes.Guest = g
		resp = Response{
			Success:          true,
			Action:           req.Action,
			StateChanges:     changes,
			Narrative:        narrative,
			AvailableActions: rules.AvailableActions(g),
			Timestamp:        b.now,
		}
		return nil
	})
	if err != nil {
		code, reason := Classify(err)
		if code == CodeInternal {
			slog.Error("action failed", "guest", req.GuestID, "action", req.Action, "error", err)
		} else {
			slog.Debug("action rejected", "guest", req.GuestID, "action", req.Action, "code", code)
		}
		return Response{
			Action:           req.Action,
			Error:            reason,
			Code:             code,
			AvailableActions: []rules.ActionType{},
			Timestamp:        h.now().Unix(),
		}, err
	}
	return resp, nil
}

func (h *Hotel) applyMove(ctx context.Context, b *batch, g *agents.Guest, p *rules.MoveParams) (any, error) {
	if err := b.q.UpdateRoom(ctx, g.ID, p.TargetRoom); err != nil {
		return nil, fmt.Errorf("move guest: %w", err)
	}
	from := g.Room
	g.Room = p.TargetRoom
	slog.Debug("guest moved", "guest", g.ID, "from", from, "to", g.Room)
	return map[string]string{"moved_to": g.Room}, nil
}

func (h *Hotel) applyClaim(ctx context.Context, b *batch, g *agents.Guest, held []agents.Memory, p *rules.ClaimParams, changes *StateChanges) (any, error) {
	m, err := b.q.Memory(ctx, p.MemoryID)
	if err != nil {
		return nil, err
	}
	if m.Owned() {
		return nil, fmt.Errorf("claim %s: %w", m.ID, ErrAlreadyClaimed)
	}
	if len(held) >= h.cfg.MaxMemoriesPerGuest {
		return nil, fmt.Errorf("claim %s: %w", m.ID, ErrCapacity)
	}

	ok, err := b.q.ClaimMemory(ctx, m.ID, g.ID)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", m.ID, err)
	}
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", m.ID, ErrAlreadyClaimed)
	}
	owner := g.ID
	m.OwnerID = &owner

	source := m.OriginalOwner
	if m.IsEcho() {
		source = agents.HotelOwner
	}
	g.EverHeld++
	g.EchoSources = g.EchoSources.With(source)
	if driftChanged(g) {
		changes.IdentityDrift = identityDrift(g)
	}
	if err := b.q.UpdateDrift(ctx, g); err != nil {
		return nil, fmt.Errorf("update drift: %w", err)
	}

	effect := fmt.Sprintf("%s claimed an echo from the hotel.", g.Name)
	if err := b.event(ctx, EventClaim, g.ID,
		fmt.Sprintf("%s claims %q in %s. The hotel lets it go.", g.Name, m.Name, world.RoomName(g.Room)),
		Effects{"memory_id": m.ID, "rarity": m.Rarity, "sentiment": m.Sentiment},
	); err != nil {
		return nil, err
	}

	changes.WorldEffects = append(changes.WorldEffects, effect)
	changes.NewMemories = append(changes.NewMemories, *m)
	return map[string]any{"claimed": m.ID, "rarity": m.Rarity, "point_value": m.PointValue}, nil
}

// driftChanged recomputes a guest's drift level and reports whether it moved.
func driftChanged(g *agents.Guest) bool {
	prev := g.DriftLevel
	g.DriftLevel = economy.DriftLevel(g.EverHeld, g.TradedAway)
	return g.DriftLevel != prev
}

func identityDrift(g *agents.Guest) *IdentityDrift {
	return &IdentityDrift{
		DriftLevel: g.DriftLevel,
		DriftRatio: economy.DriftRatio(g.EverHeld, g.TradedAway),
		Message:    economy.DriftMessage(g.DriftLevel),
	}
}
