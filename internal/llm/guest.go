// Guest generation via Haiku.
package llm

import (
	"context"
	"fmt"

	"github.com/belindacoding/liminal-hotel/internal/agents"
)

const guestSystem = `You are the creative engine for The Liminal Hotel, a place where unhappy people come to trade away painful memories and collect better ones.

Invent one hotel guest: a realistic, grounded person with a specific life situation that brought them here.
- Full realistic name unless one is given
- Backstory: 1-2 specific sentences
- Personality: exactly three comma-separated descriptive words
- Exactly 8 memories: about 3 painful, 3 happy, 2 neutral, each a specific life event
- Rarity is emotional weight: legendary = life-defining, rare = significant, uncommon = notable, common = everyday
- One or two legendary/rare memories, the rest uncommon/common

Answer with JSON only, no markdown:
{"name":"Full Name","backstory":"...","personality":"a, b, c","memories":[{"name":"Short title","description":"One sentence","rarity":"rare","sentiment":"painful"}]}`

// GenerateGuest asks Haiku for a new guest profile. name may be empty to let
// the model choose. The result is not normalized.
func GenerateGuest(ctx context.Context, client *Client, name string) (agents.Profile, error) {
	if client == nil || !client.Enabled() {
		return agents.Profile{}, fmt.Errorf("LLM client not configured")
	}

	prompt := "Generate one guest for The Liminal Hotel. Return JSON only."
	if name != "" {
		prompt = fmt.Sprintf("Generate one guest named %q for The Liminal Hotel. Return JSON only.", name)
	}

	var p agents.Profile
	if err := client.completeJSON(ctx, guestSystem, prompt, 1200, &p); err != nil {
		return agents.Profile{}, err
	}
	if len(p.Memories) == 0 {
		return agents.Profile{}, fmt.Errorf("generated guest has no memories")
	}
	if name != "" {
		p.Name = name
	}
	return p, nil
}
