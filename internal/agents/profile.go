package agents

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/belindacoding/liminal-hotel/internal/economy"
)

// MemoriesPerGuest is how many memories a new guest carries in.
const MemoriesPerGuest = 8

// Profile describes a guest before they arrive: who they are and what they carry.
// Profiles come from the narrative generator or from the fallback pools below.
type Profile struct {
	Name        string       `json:"name"`
	Backstory   string       `json:"backstory"`
	Personality string       `json:"personality"`
	Memories    []MemorySeed `json:"memories"`
}

// MemorySeed is a memory that has not been assigned an id or owner yet.
type MemorySeed struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Rarity      economy.Rarity    `json:"rarity"`
	Sentiment   economy.Sentiment `json:"sentiment"`
}

// Normalize repairs a generated profile: fills blank fields, coerces unknown
// rarity and sentiment values, and pads or trims memories to MemoriesPerGuest.
func (p Profile) Normalize() Profile {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = "Unknown Guest"
	}
	// Casers carry state, so each call gets its own.
	p.Name = cases.Title(language.English, cases.NoLower).String(p.Name)
	if strings.TrimSpace(p.Backstory) == "" {
		p.Backstory = "They arrived without explanation."
	}
	if strings.TrimSpace(p.Personality) == "" {
		p.Personality = "quiet, guarded"
	}

	mems := make([]MemorySeed, 0, MemoriesPerGuest)
	for _, m := range p.Memories {
		if len(mems) == MemoriesPerGuest {
			break
		}
		if strings.TrimSpace(m.Name) == "" {
			m.Name = "A fading memory"
		}
		if m.Description == "" {
			m.Description = "The details have worn away, but the feeling hasn't."
		}
		if !m.Rarity.Valid() {
			m.Rarity = economy.Common
		}
		if !m.Sentiment.Valid() {
			m.Sentiment = economy.Neutral
		}
		mems = append(mems, m)
	}
	for len(mems) < MemoriesPerGuest {
		mems = append(mems, MemorySeed{
			Name:        "A moment half-remembered",
			Description: "Something happened here once. The edges have gone soft.",
			Rarity:      economy.Common,
			Sentiment:   economy.Neutral,
		})
	}
	p.Memories = mems
	return p
}

// PersonalityTraits splits a comma-separated personality into three trait
// tags, filling gaps with defaults.
func (p Profile) PersonalityTraits() [3]string {
	out := [3]string{"quiet", "thoughtful", "searching"}
	parts := strings.Split(p.Personality, ",")
	for i := 0; i < len(parts) && i < 3; i++ {
		if t := normalizeTrait(parts[i]); t != "" {
			out[i] = t
		}
	}
	return out
}

func normalizeTrait(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}
