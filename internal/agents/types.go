// Package agents provides the guest and memory data model, guest generation
// from profiles, and the rule-based bot that moves NPC guests around the hotel.
package agents

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/belindacoding/liminal-hotel/internal/economy"
)

// HotelOwner is the original owner recorded on echoes, which no guest ever held.
const HotelOwner = "hotel"

// NPCWallet marks guests generated by the hotel rather than entered by a player.
const NPCWallet = "0x0000000000000000000000000000000000000000"

// Guest is a person staying at the hotel.
type Guest struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Room        string `db:"room" json:"current_room"`
	Trait1      string `db:"trait_1" json:"trait_1"`
	Trait2      string `db:"trait_2" json:"trait_2"`
	Trait3      string `db:"trait_3" json:"trait_3"`
	OriginStory string `db:"origin_story" json:"origin_story"`
	Backstory   string `db:"backstory" json:"backstory"`
	Personality string `db:"personality" json:"personality"`

	// Drift counters.
	EverHeld    int       `db:"total_ever_held" json:"total_memories_ever_held"`
	TradedAway  int       `db:"total_traded_away" json:"total_memories_traded_away"`
	DriftLevel  int       `db:"drift_level" json:"drift_level"`
	EchoSources StringSet `db:"echo_sources" json:"echo_sources"`

	Active    bool   `db:"active" json:"is_active"`
	NPC       bool   `db:"npc" json:"is_npc"`
	Wallet    string `db:"wallet" json:"wallet_address"`
	EntryTx   string `db:"entry_tx" json:"-"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// Traits returns the guest's three immutable trait tags.
func (g *Guest) Traits() [3]string {
	return [3]string{g.Trait1, g.Trait2, g.Trait3}
}

// FirstName returns the first word of the guest's name.
func (g *Guest) FirstName() string {
	if i := strings.IndexByte(g.Name, ' '); i > 0 {
		return g.Name[:i]
	}
	return g.Name
}

// Memory is a tradeable fragment of someone's past.
type Memory struct {
	ID            string            `db:"id" json:"id"`
	OwnerID       *string           `db:"owner_id" json:"owner_id"`
	OriginalOwner string            `db:"original_owner" json:"original_owner_id"`
	Rarity        economy.Rarity    `db:"rarity" json:"rarity"`
	Name          string            `db:"name" json:"name"`
	Description   string            `db:"description" json:"description"`
	PointValue    int               `db:"point_value" json:"point_value"`
	Sentiment     economy.Sentiment `db:"sentiment" json:"sentiment"`
	CreatedAt     int64             `db:"created_at" json:"created_at"`
}

// Owned reports whether any guest holds the memory.
func (m *Memory) Owned() bool {
	return m.OwnerID != nil
}

// OwnedBy reports whether guestID holds the memory.
func (m *Memory) OwnedBy(guestID string) bool {
	return m.OwnerID != nil && *m.OwnerID == guestID
}

// IsEcho reports whether the hotel produced the memory.
func (m *Memory) IsEcho() bool {
	return m.OriginalOwner == HotelOwner
}

// StringSet is an ordered set of strings stored as a JSON array column.
type StringSet []string

// Has reports whether v is in the set.
func (s StringSet) Has(v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// With returns the set with v added. The receiver is not modified.
func (s StringSet) With(v string) StringSet {
	if s.Has(v) {
		return s
	}
	out := make(StringSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}

// Scan implements sql.Scanner.
func (s *StringSet) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("string set: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(s))
}

// Value implements driver.Valuer.
func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// NewGuestID returns a fresh guest id.
func NewGuestID() string {
	return "guest_" + shortUUID()
}

// NewMemoryID returns a fresh id for a guest-originated memory.
func NewMemoryID() string {
	return "mem_" + shortUUID()
}

func shortUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
