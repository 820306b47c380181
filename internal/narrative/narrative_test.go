package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/entropy"
	"github.com/belindacoding/liminal-hotel/internal/llm"
	"github.com/belindacoding/liminal-hotel/internal/rules"
)

func testGuest(id, name string) *agents.Guest {
	return &agents.Guest{ID: id, Name: name, Room: "lobby", Personality: "wry, tired, kind", Active: true}
}

func testMemory(id, name string, s economy.Sentiment) *agents.Memory {
	return &agents.Memory{ID: id, Name: name, Sentiment: s, Rarity: economy.Common, PointValue: 1}
}

func tradeRequest(trade bool) DialogueRequest {
	a := testGuest("a", "Ana Ruiz")
	b := testGuest("b", "Ben Okafor")
	painful := testMemory("m1", "The last phone call", economy.Painful)
	happy := testMemory("m2", "Summer on the pier", economy.Happy)
	return DialogueRequest{
		Room:   "fireplace",
		A:      Party{Guest: a, Memories: []agents.Memory{*painful}},
		B:      Party{Guest: b, Memories: []agents.Memory{*happy}},
		Trade:  trade,
		AGives: painful,
		BGives: happy,
	}
}

func TestLocalDialogueTrade(t *testing.T) {
	l := NewLocal(entropy.NewSeeded(1))

	lines := l.Dialogue(context.Background(), tradeRequest(true))
	if len(lines) != 4 {
		t.Fatalf("trade dialogue lines = %d, want 4", len(lines))
	}
	if lines[0].Speaker != "Ana Ruiz" || lines[1].Speaker != "Ben Okafor" {
		t.Errorf("speakers = %q, %q; the guest giving up pain should open", lines[0].Speaker, lines[1].Speaker)
	}
	if !strings.Contains(lines[0].Text, "The last phone call") {
		t.Errorf("opener %q does not name the painful memory", lines[0].Text)
	}

	lines = l.Dialogue(context.Background(), tradeRequest(false))
	if len(lines) != 3 {
		t.Fatalf("declined dialogue lines = %d, want 3", len(lines))
	}
}

func TestLocalDialogueOffererIsPainfulSide(t *testing.T) {
	l := NewLocal(entropy.NewSeeded(2))
	req := tradeRequest(true)
	req.AGives, req.BGives = req.BGives, req.AGives

	lines := l.Dialogue(context.Background(), req)
	if lines[0].Speaker != "Ben Okafor" {
		t.Errorf("opener speaker = %q, want Ben Okafor", lines[0].Speaker)
	}
}

func TestLocalDialogueSocial(t *testing.T) {
	l := NewLocal(entropy.NewSeeded(3))
	req := DialogueRequest{
		Room: "lobby",
		A:    Party{Guest: testGuest("a", "Ana")},
		B:    Party{Guest: testGuest("b", "Ben")},
	}
	lines := l.Dialogue(context.Background(), req)
	if len(lines) != 3 {
		t.Fatalf("social lines = %d, want 3", len(lines))
	}
	for _, line := range lines {
		if line.Text == "" {
			t.Errorf("empty line from %s", line.Speaker)
		}
	}
}

func TestLocalAction(t *testing.T) {
	l := NewLocal(entropy.NewSeeded(4))
	g := testGuest("a", "Ana")

	move := l.Action(rules.ActionMove, g, "room_313")
	if !strings.Contains(move, "Ana") || strings.Contains(move, "{") {
		t.Errorf("move narrative = %q", move)
	}
	claim := l.Action(rules.ActionClaim, g, "gallery")
	if !strings.Contains(claim, "Ana") {
		t.Errorf("claim narrative = %q", claim)
	}
}

func TestLocalTransformation(t *testing.T) {
	l := NewLocal(entropy.NewSeeded(5))
	g := testGuest("a", "Ana")
	req := CheckoutRequest{
		Guest: g,
		Starting: []agents.Memory{
			*testMemory("1", "x", economy.Painful),
			*testMemory("2", "y", economy.Painful),
		},
		Final: []agents.Memory{
			*testMemory("2", "y", economy.Painful),
			*testMemory("3", "z", economy.Happy),
		},
	}
	got := l.Transformation(context.Background(), req)
	if !strings.Contains(got, "traded 1 of them away") {
		t.Errorf("transformation = %q", got)
	}
}

func TestRemoteWithoutClientFallsBack(t *testing.T) {
	r := NewRemote(nil, NewLocal(entropy.NewSeeded(6)), time.Second)

	if lines := r.Dialogue(context.Background(), tradeRequest(true)); len(lines) != 4 {
		t.Errorf("fallback dialogue lines = %d, want 4", len(lines))
	}
	p := r.Guest(context.Background(), "")
	if p.Name == "" || len(p.Memories) == 0 {
		t.Errorf("fallback guest = %+v", p)
	}
}

func anthropicReply(t *testing.T, text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}
}

func TestRemoteDialogueParsesFencedJSON(t *testing.T) {
	reply := "```json\n{\"exchanges\":[{\"speaker\":\"Ana\",\"text\":\"Is the fire always this low?\"},{\"speaker\":\"Ben\",\"text\":\"Only when someone is leaving.\"}]}\n```"
	srv := httptest.NewServer(anthropicReply(t, reply))
	defer srv.Close()

	r := NewRemote(llm.NewClientWithEndpoint("test-key", srv.URL), NewLocal(entropy.NewSeeded(7)), time.Second)
	lines := r.Dialogue(context.Background(), tradeRequest(false))
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[1].Text != "Only when someone is leaving." {
		t.Errorf("second line = %q", lines[1].Text)
	}
}

func TestRemoteFallsBackOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewRemote(llm.NewClientWithEndpoint("test-key", srv.URL), NewLocal(entropy.NewSeeded(8)), time.Second)
	if lines := r.Dialogue(context.Background(), tradeRequest(true)); len(lines) != 4 {
		t.Errorf("fallback lines = %d, want 4", len(lines))
	}
	g := testGuest("a", "Ana")
	if got := r.Farewell(context.Background(), g, ""); !strings.Contains(got, "revolving door") {
		t.Errorf("farewell = %q", got)
	}
}

func TestRemoteGuestFromModel(t *testing.T) {
	reply := `{"name":"iris vance","backstory":"She sold the family farm.","personality":"stubborn, warm, tired","memories":[{"name":"Auction day","description":"The gavel came down.","rarity":"rare","sentiment":"painful"}]}`
	srv := httptest.NewServer(anthropicReply(t, reply))
	defer srv.Close()

	r := NewRemote(llm.NewClientWithEndpoint("test-key", srv.URL), NewLocal(entropy.NewSeeded(9)), time.Second)
	p := r.Guest(context.Background(), "").Normalize()
	if p.Name != "Iris Vance" {
		t.Errorf("name = %q, want Iris Vance", p.Name)
	}
	if len(p.Memories) != agents.MemoriesPerGuest {
		t.Errorf("memories = %d, want %d", len(p.Memories), agents.MemoriesPerGuest)
	}
	if p.Memories[0].Rarity != economy.Rare {
		t.Errorf("first memory rarity = %s", p.Memories[0].Rarity)
	}
}
