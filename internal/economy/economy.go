// Package economy provides the fixed-value memory economy and identity drift metric.
package economy

import "fmt"

// Rarity is the scarcity tier of a memory.
type Rarity string

const (
	Common    Rarity = "common"
	Uncommon  Rarity = "uncommon"
	Rare      Rarity = "rare"
	Legendary Rarity = "legendary"
)

// Rarities lists every tier in ascending order of value.
var Rarities = []Rarity{Common, Uncommon, Rare, Legendary}

// Valid reports whether r is a known tier.
func (r Rarity) Valid() bool {
	return PointValue(r) > 0
}

// Sentiment is the emotional charge of a memory.
type Sentiment string

const (
	Painful Sentiment = "painful"
	Happy   Sentiment = "happy"
	Neutral Sentiment = "neutral"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	switch s {
	case Painful, Happy, Neutral:
		return true
	}
	return false
}

// PointValue returns the fixed point value of a rarity tier.
// Unknown tiers are worth nothing.
func PointValue(r Rarity) int {
	switch r {
	case Common:
		return 1
	case Uncommon:
		return 2
	case Rare:
		return 4
	case Legendary:
		return 8
	}
	return 0
}

// Drift thresholds on the traded-away ratio.
const (
	driftLevel1 = 0.50
	driftLevel2 = 0.70
	driftLevel3 = 0.85
)

// MaxDriftLevel is the highest drift level a guest can reach.
const MaxDriftLevel = 3

// DriftRatio is the share of everything a guest ever held that they gave away.
func DriftRatio(everHeld, tradedAway int) float64 {
	if everHeld <= 0 {
		return 0
	}
	return float64(tradedAway) / float64(everHeld)
}

// DriftLevel maps lifetime possession counters to a discrete level 0–3.
// It is non-decreasing in tradedAway/everHeld and 0 when nothing was ever held.
func DriftLevel(everHeld, tradedAway int) int {
	ratio := DriftRatio(everHeld, tradedAway)
	switch {
	case ratio > driftLevel3:
		return 3
	case ratio > driftLevel2:
		return 2
	case ratio > driftLevel1:
		return 1
	}
	return 0
}

// DriftMessage describes a drift level to the guest who reached it.
func DriftMessage(level int) string {
	switch level {
	case 0:
		return "You feel like yourself."
	case 1:
		return "Something is off. Some of what you remember no longer feels like yours."
	case 2:
		return "You catch your reflection and hesitate. The face is right; the story behind it is not."
	case 3:
		return "You are mostly other people now. The hotel has started to forget your name."
	}
	return fmt.Sprintf("Drift level %d.", level)
}

// PickRarity maps a uniform roll in [0,1) to a tier:
// 5% legendary, 15% rare, 30% uncommon, 50% common.
func PickRarity(roll float64) Rarity {
	switch {
	case roll < 0.05:
		return Legendary
	case roll < 0.20:
		return Rare
	case roll < 0.50:
		return Uncommon
	}
	return Common
}
