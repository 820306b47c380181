// Guest spawning: turns a Profile into a guest and the memories they carry in.
package agents

import (
	"time"

	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

// Arrival describes how a guest came to the hotel.
type Arrival struct {
	NPC     bool   // Generated by the hotel rather than entered by a player
	Wallet  string // Paying wallet; NPCWallet for NPCs
	EntryTx string // Entry payment reference; generated for NPCs
}

// Spawner creates guests from profiles.
type Spawner struct {
	src entropy.Source
	now func() time.Time
}

// NewSpawner creates a spawner drawing traits and stories from src.
func NewSpawner(src entropy.Source) *Spawner {
	return &Spawner{src: src, now: time.Now}
}

// Spawn creates an active guest in the lobby together with their starting
// memories. The guest's lifetime held counter starts at the number of
// memories they carry in, so drift measures what they later give away.
func (s *Spawner) Spawn(p Profile, a Arrival) (*Guest, []Memory) {
	p = p.Normalize()
	now := s.now().Unix()

	var traits [3]string
	var origin string
	if a.NPC {
		traits = p.PersonalityTraits()
		origin = p.Backstory
	} else {
		traits = AssignTraits(s.src)
		origin = OriginStory(s.src, p.Name, traits)
	}

	wallet := a.Wallet
	entryTx := a.EntryTx
	if a.NPC {
		wallet = NPCWallet
		if entryTx == "" {
			entryTx = "gen_" + shortUUID()
		}
	}

	g := &Guest{
		ID:          NewGuestID(),
		Name:        p.Name,
		Room:        world.Lobby,
		Trait1:      traits[0],
		Trait2:      traits[1],
		Trait3:      traits[2],
		OriginStory: origin,
		Backstory:   p.Backstory,
		Personality: p.Personality,
		EchoSources: StringSet{},
		Active:      true,
		NPC:         a.NPC,
		Wallet:      wallet,
		EntryTx:     entryTx,
		CreatedAt:   now,
	}

	mems := make([]Memory, 0, len(p.Memories))
	for _, seed := range p.Memories {
		owner := g.ID
		mems = append(mems, Memory{
			ID:            NewMemoryID(),
			OwnerID:       &owner,
			OriginalOwner: g.ID,
			Rarity:        seed.Rarity,
			Name:          seed.Name,
			Description:   seed.Description,
			PointValue:    economy.PointValue(seed.Rarity),
			Sentiment:     seed.Sentiment,
			CreatedAt:     now,
		})
	}
	g.EverHeld = len(mems)
	return g, mems
}
