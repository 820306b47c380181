// Checkout narration: transformation summaries and farewells via Haiku.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// TransformationContext describes what a guest came in with and leaves with.
type TransformationContext struct {
	Name         string
	Personality  string
	Backstory    string
	StartPainful []string
	StartHappy   []string
	FinalPainful []string
	FinalHappy   []string
}

// GenerateTransformation writes a 2-3 sentence summary of how a guest changed.
func GenerateTransformation(ctx context.Context, client *Client, tc TransformationContext) (string, error) {
	if client == nil || !client.Enabled() {
		return "", fmt.Errorf("LLM client not configured")
	}

	system := "You write brief, grounded transformation summaries for hotel guests. 2-3 sentences. Honest and human, no flowery language."
	prompt := fmt.Sprintf(`%s (%s): %q
Arrived with painful memories: %s
Arrived with happy memories: %s
Leaves with painful memories: %s
Leaves with happy memories: %s

Summarize their transformation.`,
		tc.Name, tc.Personality, tc.Backstory,
		listOrNone(tc.StartPainful), listOrNone(tc.StartHappy),
		listOrNone(tc.FinalPainful), listOrNone(tc.FinalHappy),
	)

	text, err := client.Complete(ctx, system, prompt, 150)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GenerateFarewell writes a one or two sentence farewell in the second person.
func GenerateFarewell(ctx context.Context, client *Client, name, personality, summary string) (string, error) {
	if client == nil || !client.Enabled() {
		return "", fmt.Errorf("LLM client not configured")
	}

	system := "You write brief farewell lines for guests leaving a strange hotel. One or two sentences. Bittersweet, cinematic, second person."
	prompt := fmt.Sprintf("Guest: %s (%s). Their transformation: %s\n\nWrite a farewell as they step through the revolving door for the last time.",
		name, personality, summary)

	text, err := client.Complete(ctx, system, prompt, 120)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
