package cli

import (
	"strings"
	"testing"

	"github.com/belindacoding/liminal-hotel/internal/engine"
)

func TestFormatSnapshot(t *testing.T) {
	snap := engine.Snapshot{
		Hotel: engine.HotelSummary{Tick: 7, ActiveGuests: 2, MaxGuests: 12, TotalGuests: 3, Mood: engine.MoodLively, Status: engine.StatusOpen, TotalTrades: 4},
		Rooms: map[string]engine.RoomView{
			"lobby":     {Name: "Lobby", Guests: []string{"a", "b"}},
			"fireplace": {Name: "Fireplace"},
		},
		Leaderboard:  []engine.LeaderboardEntry{{GuestID: "a", Name: "Iris Vance", MemoryCount: 3, Score: 42, DriftLevel: 1}},
		RecentEvents: []engine.Event{{Tick: 7, Description: "Iris Vance claims an echo."}},
	}

	out := formatSnapshot(snap)
	for _, want := range []string{"[open] tick 7, mood lively", "Guests 2/12", "lobby", "1. Iris Vance", "[7] Iris Vance claims an echo."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "fireplace") > strings.Index(out, "lobby") {
		t.Errorf("rooms should be listed in sorted order:\n%s", out)
	}
}
