// Rule-based guest behavior: what an NPC does with its turn each tick.
package agents

import (
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// IntentKind is what a guest wants to do this tick.
type IntentKind string

const (
	IntentStay  IntentKind = "stay"
	IntentMove  IntentKind = "move"
	IntentClaim IntentKind = "claim"
)

// Intent is the outcome of a bot decision. Room is set for moves and
// MemoryID for claims.
type Intent struct {
	Kind     IntentKind
	Room     string
	MemoryID string
}

// Surroundings is what a guest can see when deciding.
type Surroundings struct {
	Tick      int64
	Others    []*Guest // Other active guests, with their current rooms
	Unclaimed []Memory
	Currents  *world.Currents
}

// Decision weights.
const (
	claimChance         = 0.30 // Try for an echo when any are lying around
	painfulClaimChance  = 0.15 // Take a painful echo when nothing better exists
	lingerThreshold     = 0.40 // Above this roll, stay with company and let talk happen
	followCompanyChance = 0.70 // Move toward another guest rather than a random room
)

// Decide picks one intent for g. Trades are never chosen here: they only come
// out of conversations, so a guest with company simply stays put.
func Decide(src entropy.Source, g *Guest, s Surroundings) Intent {
	if len(s.Unclaimed) > 0 && entropy.Chance(src, claimChance) {
		if m, ok := pickEcho(src, s.Unclaimed); ok {
			return Intent{Kind: IntentClaim, MemoryID: m.ID}
		}
	}

	company := false
	for _, o := range s.Others {
		if o.ID != g.ID && o.Room == g.Room {
			company = true
			break
		}
	}
	if company && src.Float64() > lingerThreshold {
		return Intent{Kind: IntentStay}
	}

	return moveToward(src, g, s)
}

func pickEcho(src entropy.Source, unclaimed []Memory) (Memory, bool) {
	var desirable, painful []Memory
	for _, m := range unclaimed {
		if m.Sentiment == economy.Painful {
			painful = append(painful, m)
		} else {
			desirable = append(desirable, m)
		}
	}
	if len(desirable) > 0 {
		return entropy.Pick(src, desirable), true
	}
	if len(painful) > 0 && entropy.Chance(src, painfulClaimChance) {
		return entropy.Pick(src, painful), true
	}
	return Memory{}, false
}

func moveToward(src entropy.Source, g *Guest, s Surroundings) Intent {
	var others []*Guest
	for _, o := range s.Others {
		if o.ID != g.ID {
			others = append(others, o)
		}
	}

	var target string
	if len(others) > 0 && entropy.Chance(src, followCompanyChance) {
		target = entropy.Pick(src, others).Room
	} else {
		var rooms []string
		for _, id := range world.RoomIDs() {
			if id != g.Room {
				rooms = append(rooms, id)
			}
		}
		target = s.Currents.Choose(rooms, s.Tick, src.Float64())
	}

	if target == "" || target == g.Room {
		return Intent{Kind: IntentStay}
	}
	return Intent{Kind: IntentMove, Room: target}
}
