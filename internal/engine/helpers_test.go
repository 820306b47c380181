package engine_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/persistence"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

func newTestHotel(t *testing.T, src entropy.Source, tune func(*engine.Config)) (*engine.Hotel, *persistence.DB) {
	t.Helper()
	return newHotelWith(t, engine.Deps{Source: src}, tune)
}

// newHotelWith builds a hotel over a fresh database. deps.Store and
// deps.Currents are filled in.
func newHotelWith(t *testing.T, deps engine.Deps, tune func(*engine.Config)) (*engine.Hotel, *persistence.DB) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "hotel.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := engine.DefaultConfig()
	if tune != nil {
		tune(&cfg)
	}
	deps.Store = db
	deps.Currents = world.NewCurrents(42)
	h := engine.New(cfg, deps)
	return h, db
}

// markOpen opens the hotel without seeding the NPC cast.
func markOpen(t *testing.T, db *persistence.DB) {
	t.Helper()
	if err := db.SaveHotelState(context.Background(), engine.HotelState{Status: engine.StatusOpen, Mood: engine.MoodQuiet}); err != nil {
		t.Fatalf("save state: %v", err)
	}
}

type memSpec struct {
	rarity    economy.Rarity
	sentiment economy.Sentiment
}

var arrival atomic.Int64

// addGuest inserts an active guest in the lobby holding memories built from specs.
func addGuest(t *testing.T, db *persistence.DB, name string, npc bool, specs ...memSpec) (*agents.Guest, []agents.Memory) {
	t.Helper()
	ctx := context.Background()
	at := arrival.Add(1)

	g := &agents.Guest{
		ID:          agents.NewGuestID(),
		Name:        name,
		Room:        world.Lobby,
		Trait1:      "quiet",
		Trait2:      "thoughtful",
		Trait3:      "searching",
		OriginStory: name + " arrived.",
		Backstory:   name + " has a past.",
		Personality: "quiet, thoughtful, searching",
		EverHeld:    len(specs),
		EchoSources: agents.StringSet{},
		Active:      true,
		NPC:         npc,
		Wallet:      fmt.Sprintf("0x%012d", at),
		CreatedAt:   at,
	}
	g.EntryTx = "tx_" + g.ID
	if err := db.InsertGuest(ctx, g); err != nil {
		t.Fatalf("insert guest: %v", err)
	}

	var mems []agents.Memory
	for i, s := range specs {
		owner := g.ID
		m := agents.Memory{
			ID:            agents.NewMemoryID(),
			OwnerID:       &owner,
			OriginalOwner: g.ID,
			Rarity:        s.rarity,
			Name:          fmt.Sprintf("%s memory %d", name, i+1),
			Description:   "Something that happened.",
			PointValue:    economy.PointValue(s.rarity),
			Sentiment:     s.sentiment,
			CreatedAt:     at,
		}
		if err := db.InsertMemory(ctx, m); err != nil {
			t.Fatalf("insert memory: %v", err)
		}
		mems = append(mems, m)
	}
	return g, mems
}

func addEcho(t *testing.T, db *persistence.DB, id string, s economy.Sentiment) agents.Memory {
	t.Helper()
	m := agents.Memory{
		ID:            id,
		OriginalOwner: agents.HotelOwner,
		Rarity:        economy.Rare,
		Name:          "Echo " + id,
		Description:   "The hotel made this.",
		PointValue:    economy.PointValue(economy.Rare),
		Sentiment:     s,
		CreatedAt:     arrival.Add(1),
	}
	if err := db.InsertMemory(context.Background(), m); err != nil {
		t.Fatalf("insert echo: %v", err)
	}
	return m
}

func mustGuest(t *testing.T, db *persistence.DB, id string) *agents.Guest {
	t.Helper()
	g, err := db.Guest(context.Background(), id)
	if err != nil {
		t.Fatalf("load guest %s: %v", id, err)
	}
	return g
}

func mustMemory(t *testing.T, db *persistence.DB, id string) *agents.Memory {
	t.Helper()
	m, err := db.Memory(context.Background(), id)
	if err != nil {
		t.Fatalf("load memory %s: %v", id, err)
	}
	return m
}

func mustState(t *testing.T, db *persistence.DB) engine.HotelState {
	t.Helper()
	s, err := db.HotelState(context.Background())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return s
}

func mustTick(t *testing.T, h *engine.Hotel) {
	t.Helper()
	if err := h.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
}

func countEvents(t *testing.T, db *persistence.DB, typ engine.EventType) int {
	t.Helper()
	events, err := db.RecentEvents(context.Background(), 1000)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func ownerOf(t *testing.T, db *persistence.DB, id string) string {
	t.Helper()
	m := mustMemory(t, db, id)
	if m.OwnerID == nil {
		return ""
	}
	return *m.OwnerID
}
