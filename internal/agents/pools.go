package agents

import (
	"fmt"
	"strings"

	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
)

// Trait pools. Every guest gets one of each: personality, quirk, origin.
var (
	personalityTraits = []string{
		"paranoid", "poetic", "hungry", "melancholic", "curious",
		"ruthless", "charming", "detached", "obsessive", "gentle",
	}
	quirkTraits = []string{
		"hears_music", "sees_colors", "counts_doors", "talks_to_mirrors",
		"collects_keys", "fears_elevators", "smells_time", "reads_shadows",
		"tastes_words", "feels_architecture",
	}
	originTraits = []string{
		"lost_traveler", "escaped_dream", "former_guest", "hotel_creation",
		"memory_thief", "wandering_echo", "displaced_scholar", "forgotten_artist",
		"temporal_refugee", "accidental_tourist",
	}
)

// AssignTraits draws a personality, quirk and origin trait.
func AssignTraits(src entropy.Source) [3]string {
	return [3]string{
		entropy.Pick(src, personalityTraits),
		entropy.Pick(src, quirkTraits),
		entropy.Pick(src, originTraits),
	}
}

var originTemplates = []string{
	"%s came in through a door that was not there the day before. The concierge says the hotel had been expecting them.",
	"Nobody saw %s arrive. The lobby was empty, and then it wasn't, and there was luggage nobody remembers packing.",
	"%s followed a corridor that should have ended at a fire exit. It ended here instead.",
	"The guest book already had %s written in it, in their own handwriting, with the ink still wet.",
	"%s checked in during a storm that only fell on this block. The rain tasted like old appointments.",
	"An elevator in an unrelated office building opened onto the lobby. %s stepped out and the doors sighed shut.",
}

var traitDetails = map[string]string{
	"paranoid":    "Already they suspect the walls are listening. They are right.",
	"poetic":      "The wallpaper reads like a poem they almost remember writing.",
	"hungry":      "There is an emptiness here the hotel promises to fill.",
	"melancholic": "The elevator music seems to have been written for their particular sadness.",
	"curious":     "They have noticed the room numbers skip from 237 to 404.",
	"ruthless":    "They sized up the other guests before they put their bags down.",
	"charming":    "The bellhop laughed at their joke before they finished telling it.",
	"detached":    "They watch the hotel the way you watch weather from indoors.",
	"obsessive":   "They have counted the stairs twice. The totals disagree.",
	"gentle":      "Even the revolving door seems to slow down for them.",
}

// OriginStory composes an arrival story for a guest with the given traits.
func OriginStory(src entropy.Source, name string, traits [3]string) string {
	story := fmt.Sprintf(entropy.Pick(src, originTemplates), name)
	if detail, ok := traitDetails[traits[0]]; ok {
		story += " " + detail
	}
	return story
}

func seed(name string, r economy.Rarity, s economy.Sentiment, desc string) MemorySeed {
	return MemorySeed{Name: name, Description: desc, Rarity: r, Sentiment: s}
}

// SeedProfiles are the guests the hotel opens with when no generator is available.
func SeedProfiles() []Profile {
	return []Profile{
		{
			Name:        "Diana Chen",
			Backstory:   "An emergency surgeon who lost a patient she had known since childhood. She has not slept properly in two years.",
			Personality: "precise, guilt-ridden, guarded",
			Memories: []MemorySeed{
				seed("The surgery that went wrong", economy.Legendary, economy.Painful, "A routine procedure that stopped being routine. The flatline tone still plays at night."),
				seed("Learning to ride a bike with Dad", economy.Common, economy.Happy, "Skinned knees, summer heat, his hand steady on the seat until it wasn't."),
				seed("Medical school graduation", economy.Uncommon, economy.Happy, "Her mother crying in the front row."),
				seed("The night shift that never ended", economy.Rare, economy.Painful, "Thirty-six hours, three codes, two losses. The coffee tasted like pennies."),
				seed("First solo surgery", economy.Uncommon, economy.Happy, "Steady hands, racing heart, the patient waking up and saying thank you."),
				seed("The argument with her sister", economy.Rare, economy.Painful, "Words at a holiday dinner that cannot be taken back."),
				seed("Morning coffee routine", economy.Common, economy.Neutral, "The same mug and five quiet minutes before the pager starts."),
				seed("Reading in the hospital garden", economy.Common, economy.Neutral, "Stolen minutes between shifts with a paperback that had lost its cover."),
			},
		},
		{
			Name:        "Marcus Webb",
			Backstory:   "A retired jazz trumpeter whose hearing is going. The music that defined him is fading out a note at a time.",
			Personality: "warm, melancholic, proud",
			Memories: []MemorySeed{
				seed("The standing ovation", economy.Legendary, economy.Happy, "A packed club, a crowd on its feet, the best night of his life."),
				seed("The diagnosis", economy.Legendary, economy.Painful, "The audiologist chose her words carefully. Progressive. Irreversible."),
				seed("Teaching his daughter piano", economy.Uncommon, economy.Happy, "Small fingers finding a melody for the first time."),
				seed("His wife's laugh", economy.Rare, economy.Painful, "The laugh that made strangers smile. Gone now, like her."),
				seed("Playing in the rain", economy.Uncommon, economy.Happy, "A street corner, an open case, rain coming down and nobody caring."),
				seed("The last concert", economy.Rare, economy.Painful, "Missing a note he had played ten thousand times and knowing it was over."),
				seed("Tuning the trumpet", economy.Common, economy.Neutral, "Warm brass and muscle memory."),
				seed("Walking the old quarter at dusk", economy.Common, economy.Neutral, "Smells, sounds, and the way the light fell on the street."),
			},
		},
		{
			Name:        "Yuki Tanaka",
			Backstory:   "A software engineer who moved across the world for a job and lost touch with everyone she loved.",
			Personality: "analytical, lonely, dry-humored",
			Memories: []MemorySeed{
				seed("The video call that froze", economy.Rare, economy.Painful, "Her mother mid-sentence, pixelated, then gone. She did not call back."),
				seed("Cherry blossoms with grandmother", economy.Rare, economy.Happy, "Warm mochi and a small hand in hers."),
				seed("The promotion email", economy.Uncommon, economy.Painful, "Senior engineer, and nobody to tell who would care."),
				seed("Cooking with her college roommate", economy.Uncommon, economy.Happy, "Terrible pasta, good wine, laughing until three in the morning."),
				seed("First snowfall in a new country", economy.Common, economy.Happy, "Catching flakes on her tongue outside a new apartment."),
				seed("The unanswered letter", economy.Uncommon, economy.Painful, "Three handwritten pages. No reply."),
				seed("Debugging at 2 AM", economy.Common, economy.Neutral, "Monitor glow and the quiet satisfaction of a fix."),
				seed("The apartment with no photos", economy.Common, economy.Neutral, "Clean and efficient. Not even a plant."),
			},
		},
	}
}

var fallbackNames = []string{
	"Ines Moreau", "Tobias Lindqvist", "Amara Okafor", "Rafael Duarte",
	"Noor Haddad", "Elliot Park", "Sofia Brennan", "Kwame Asante",
}

var fallbackPersonalities = []string{
	"quiet, observant, wistful",
	"restless, funny, evasive",
	"kind, tired, stubborn",
	"sharp, nostalgic, private",
}

var fallbackBackstories = []string{
	"A night-shift radio host whose last caller never hung up.",
	"A translator who has started dreaming in a language nobody speaks.",
	"A lighthouse keeper made redundant by automation, still waking at every dusk.",
	"A wedding photographer who has never been in a single photograph.",
}

var fallbackMemories = []MemorySeed{
	seed("A door that wouldn't open", economy.Rare, economy.Painful, "An hour in front of it. It opened when they stopped trying."),
	seed("The last good morning", economy.Uncommon, economy.Happy, "Sunlight through kitchen curtains and a song on the radio."),
	seed("A promise broken quietly", economy.Rare, economy.Painful, "No argument. Just a text message that changed everything."),
	seed("Learning to swim", economy.Common, economy.Happy, "Cold lake water and steady hands letting go."),
	seed("The empty apartment", economy.Uncommon, economy.Painful, "Moving day. Pale squares on the wall where pictures used to hang."),
	seed("A stranger's kindness", economy.Common, economy.Happy, "Someone paid for their coffee on the worst day of their life."),
	seed("Waiting for a phone call", economy.Common, economy.Neutral, "Hours at the table. It never rang."),
	seed("Rain on a tin roof", economy.Common, economy.Neutral, "A cabin somewhere with nothing to do but listen."),
}

// FallbackProfile builds a guest profile from local pools.
func FallbackProfile(src entropy.Source, name string) Profile {
	if strings.TrimSpace(name) == "" {
		name = entropy.Pick(src, fallbackNames)
	}
	mems := make([]MemorySeed, len(fallbackMemories))
	copy(mems, fallbackMemories)
	return Profile{
		Name:        name,
		Backstory:   entropy.Pick(src, fallbackBackstories),
		Personality: entropy.Pick(src, fallbackPersonalities),
		Memories:    mems,
	}
}
