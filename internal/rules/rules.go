// Package rules decides whether a guest may take an action. It is stateless:
// callers pass in the guest and what they hold, and anything that depends on
// shared state (does the memory exist, is it still unclaimed) is left to the
// processor so it can be checked at commit time.
package rules

import (
	"fmt"
	"strings"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// ActionType names an action a guest can submit.
type ActionType string

const (
	ActionMove  ActionType = "move"
	ActionClaim ActionType = "claim"
)

// AllActions is every action type the processor understands.
var AllActions = []ActionType{ActionMove, ActionClaim}

// MoveParams carries a move's destination.
type MoveParams struct {
	TargetRoom string `json:"target_room"`
}

// ClaimParams names the memory to claim.
type ClaimParams struct {
	MemoryID string `json:"memory_id"`
}

// Request is an action request. Exactly one params field is set, matching Action.
type Request struct {
	GuestID string
	Action  ActionType
	Move    *MoveParams
	Claim   *ClaimParams
}

// MoveRequest builds a move request.
func MoveRequest(guestID, room string) Request {
	return Request{GuestID: guestID, Action: ActionMove, Move: &MoveParams{TargetRoom: room}}
}

// ClaimRequest builds a claim request.
func ClaimRequest(guestID, memoryID string) Request {
	return Request{GuestID: guestID, Action: ActionClaim, Claim: &ClaimParams{MemoryID: memoryID}}
}

// Params returns the variant's parameters, or nil if none are set.
func (r Request) Params() any {
	switch r.Action {
	case ActionMove:
		if r.Move != nil {
			return r.Move
		}
	case ActionClaim:
		if r.Claim != nil {
			return r.Claim
		}
	}
	return nil
}

// ValidationError is a rejected request. Reason is shown to the caller as-is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func reject(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// RoomActions returns the actions allowed in a room. Every room currently
// allows everything; room-specific menus plug in here.
func RoomActions(room string) []ActionType {
	out := make([]ActionType, len(AllActions))
	copy(out, AllActions)
	return out
}

// AvailableActions returns the action menu for g. Inactive guests have none.
func AvailableActions(g *agents.Guest) []ActionType {
	if g == nil || !g.Active {
		return []ActionType{}
	}
	return RoomActions(g.Room)
}

// Validate checks req against the guest's current state. held is the set of
// memories the guest carries; no rule consults it yet.
func Validate(req Request, g *agents.Guest, held []agents.Memory) error {
	if g == nil || !g.Active {
		return reject("Guest is no longer active in the hotel.")
	}

	allowed := false
	for _, a := range AvailableActions(g) {
		if a == req.Action {
			allowed = true
			break
		}
	}
	if !allowed {
		return reject("Action %q is not available in %s.", req.Action, world.RoomName(g.Room))
	}

	switch req.Action {
	case ActionMove:
		if req.Move == nil || strings.TrimSpace(req.Move.TargetRoom) == "" {
			return reject("Move requires target_room.")
		}
		if !world.IsRoom(req.Move.TargetRoom) {
			return reject("Invalid room: %s. Valid rooms: %s", req.Move.TargetRoom, strings.Join(world.RoomIDs(), ", "))
		}
		if req.Move.TargetRoom == g.Room {
			return reject("You are already there.")
		}
	case ActionClaim:
		if req.Claim == nil || strings.TrimSpace(req.Claim.MemoryID) == "" {
			return reject("Claim requires memory_id.")
		}
	default:
		return reject("Unknown action: %s", req.Action)
	}
	return nil
}
