// Guest-to-guest dialogue via Haiku.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Speaker is one side of a conversation as the model sees it.
type Speaker struct {
	Name        string
	Personality string
	Backstory   string
	Painful     []string // Names of painful memories held
	Happy       []string // Names of happy memories held
}

// DialogueContext holds what the model needs to write a conversation.
// The outcome is decided before the call; the model only writes the lines.
type DialogueContext struct {
	Room     string
	A, B     Speaker
	Trade    bool
	AGives   string // Memory A hands over, when Trade
	BGives   string // Memory B hands over, when Trade
	MaxLines int
}

// Exchange is one spoken line.
type Exchange struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

const dialogueSystem = `You narrate The Liminal Hotel, a place where people come to trade away painful memories and collect better ones.

Write a short conversation between two guests. Style:
- Never open with "I couldn't help but notice" or similar cliches
- Vary openers: mid-thought, a question, a confession, an observation about the room
- Halting, specific, human; first names only for speakers

Answer with JSON only, no markdown:
{"exchanges":[{"speaker":"FirstName","text":"line"}]}`

// GenerateDialogue asks Haiku for the lines of a conversation whose outcome
// is already fixed.
func GenerateDialogue(ctx context.Context, client *Client, dc DialogueContext) ([]Exchange, error) {
	if client == nil || !client.Enabled() {
		return nil, fmt.Errorf("LLM client not configured")
	}
	if dc.MaxLines <= 0 {
		dc.MaxLines = 4
	}

	var b strings.Builder
	for _, s := range []Speaker{dc.A, dc.B} {
		fmt.Fprintf(&b, "%s (%s): %q\n", s.Name, s.Personality, s.Backstory)
		fmt.Fprintf(&b, "Painful memories: %s\n", listOrNone(s.Painful))
		fmt.Fprintf(&b, "Happy memories: %s\n\n", listOrNone(s.Happy))
	}
	fmt.Fprintf(&b, "They meet in %s. Write %d lines or fewer.\n", dc.Room, dc.MaxLines)
	if dc.Trade {
		fmt.Fprintf(&b, "They agree to trade: %s gives %q and %s gives %q. End on the agreement.\n",
			dc.A.Name, dc.AGives, dc.B.Name, dc.BGives)
	} else {
		b.WriteString("They talk about what they carry but do not make a deal.\n")
	}

	var out struct {
		Exchanges []Exchange `json:"exchanges"`
	}
	if err := client.completeJSON(ctx, dialogueSystem, b.String(), 500, &out); err != nil {
		return nil, err
	}

	lines := make([]Exchange, 0, len(out.Exchanges))
	for _, e := range out.Exchanges {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		lines = append(lines, e)
		if len(lines) == dc.MaxLines {
			break
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("dialogue reply had no lines")
	}
	return lines, nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
