package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

var stateRaw bool

func init() {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the current hotel snapshot",
		Run:   runState,
	}
	cmd.Flags().BoolVar(&stateRaw, "json", false, "Print the raw JSON snapshot")

	RootCmd.AddCommand(cmd)
}

func runState(cmd *cobra.Command, args []string) {
	out, err := request(http.MethodGet, "/world/state", "", nil)
	if err != nil {
		exitErr("state", err)
	}
	if stateRaw {
		fmt.Println(string(out))
		return
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(out, &snap); err != nil {
		exitErr("decode state", err)
	}
	fmt.Print(formatSnapshot(snap))
}

func formatSnapshot(snap engine.Snapshot) string {
	var b strings.Builder
	h := snap.Hotel
	fmt.Fprintf(&b, "The Liminal Hotel [%s] tick %d, mood %s\n", h.Status, h.Tick, h.Mood)
	fmt.Fprintf(&b, "Guests %d/%d (lifetime %d), trades %d, unclaimed echoes %d\n\n",
		h.ActiveGuests, h.MaxGuests, h.TotalGuests, h.TotalTrades, len(snap.UnclaimedMemories))

	for _, id := range world.SortedRoomIDs(snap.Rooms) {
		r := snap.Rooms[id]
		fmt.Fprintf(&b, "  %-12s %d guests\n", id, len(r.Guests))
	}

	if len(snap.Leaderboard) > 0 {
		b.WriteString("\nLeaderboard\n")
		for i, e := range snap.Leaderboard {
			fmt.Fprintf(&b, "  %d. %-24s %4d pts  %d memories  drift %d\n", i+1, e.Name, e.Score, e.MemoryCount, e.DriftLevel)
		}
	}
	if len(snap.RecentEvents) > 0 {
		b.WriteString("\nRecent\n")
		for _, e := range snap.RecentEvents {
			fmt.Fprintf(&b, "  [%d] %s\n", e.Tick, e.Description)
		}
	}
	return b.String()
}
