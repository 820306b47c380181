package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/economy"
	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertGuest(t *testing.T, db *DB, id string, createdAt int64) *agents.Guest {
	t.Helper()
	g := &agents.Guest{
		ID:          id,
		Name:        "Guest " + id,
		Room:        world.Lobby,
		EchoSources: agents.StringSet{},
		Active:      true,
		Wallet:      "0x" + id,
		EntryTx:     "tx_" + id,
		CreatedAt:   createdAt,
	}
	if err := db.InsertGuest(context.Background(), g); err != nil {
		t.Fatalf("insert guest: %v", err)
	}
	return g
}

func insertMemory(t *testing.T, db *DB, id string, owner *string, original string, r economy.Rarity) {
	t.Helper()
	m := agents.Memory{
		ID:            id,
		OwnerID:       owner,
		OriginalOwner: original,
		Rarity:        r,
		Name:          "Memory " + id,
		Description:   "A thing that happened.",
		PointValue:    economy.PointValue(r),
		Sentiment:     economy.Neutral,
	}
	if err := db.InsertMemory(context.Background(), m); err != nil {
		t.Fatalf("insert memory: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotel.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("currents_seed", "42"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	state, err := db.HotelState(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state.Status != engine.StatusClosed || state.Mood != engine.MoodQuiet {
		t.Errorf("initial state = %+v", state)
	}
	seed, err := db.GetMeta("currents_seed")
	if err != nil || seed != "42" {
		t.Errorf("seed = %q, %v", seed, err)
	}
}

func TestMeta(t *testing.T) {
	db := newTestDB(t)

	v, err := db.GetMeta("missing")
	if err != nil || v != "" {
		t.Errorf("missing key = %q, %v", v, err)
	}
	if err := db.SaveMeta("k", "1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("k", "2"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetMeta("k"); v != "2" {
		t.Errorf("k = %q, want 2", v)
	}
}

func TestGuestLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	insertGuest(t, db, "b", 1)
	insertGuest(t, db, "a", 1)

	if _, err := db.Guest(ctx, "nobody"); !errors.Is(err, engine.ErrGuestNotFound) {
		t.Errorf("missing guest err = %v", err)
	}
	guests, err := db.ActiveGuests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(guests) != 2 || guests[0].ID != "b" {
		t.Errorf("guests not in arrival order: %v", guests)
	}

	ok, err := db.DeactivateGuest(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("deactivate = %v, %v", ok, err)
	}
	if ok, _ := db.DeactivateGuest(ctx, "b"); ok {
		t.Error("second deactivate reported success")
	}
	if used, _ := db.EntryTxUsed(ctx, "tx_b"); !used {
		t.Error("entry tx of departed guest not remembered")
	}
	if active, _ := db.WalletActive(ctx, "0xb"); active {
		t.Error("departed guest's wallet still active")
	}
	if active, _ := db.WalletActive(ctx, "0xa"); !active {
		t.Error("present guest's wallet not active")
	}
}

func TestClaimAndTransferAreConditional(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	insertGuest(t, db, "a", 1)
	insertGuest(t, db, "b", 2)
	owner := "a"
	insertMemory(t, db, "mine", &owner, "a", economy.Rare)
	insertMemory(t, db, "echo", nil, agents.HotelOwner, economy.Legendary)

	if ok, err := db.ClaimMemory(ctx, "mine", "b"); err != nil || ok {
		t.Errorf("claim of owned memory = %v, %v", ok, err)
	}
	if ok, err := db.ClaimMemory(ctx, "echo", "b"); err != nil || !ok {
		t.Errorf("claim of echo = %v, %v", ok, err)
	}
	if ok, _ := db.ClaimMemory(ctx, "echo", "a"); ok {
		t.Error("echo claimed twice")
	}

	if ok, _ := db.TransferMemory(ctx, "mine", "b", "a"); ok {
		t.Error("transfer from non-owner succeeded")
	}
	if ok, err := db.TransferMemory(ctx, "mine", "a", "b"); err != nil || !ok {
		t.Errorf("transfer = %v, %v", ok, err)
	}

	held, err := db.MemoriesHeldBy(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(held) != 2 {
		t.Errorf("b holds %d memories, want 2", len(held))
	}
	if n, _ := db.CountOriginalsHeld(ctx, "a"); n != 0 {
		t.Errorf("a holds %d originals", n)
	}
	orig, _ := db.OriginalMemories(ctx, "a")
	if len(orig) != 1 || orig[0].ID != "mine" {
		t.Errorf("originals = %+v", orig)
	}
	if un, _ := db.UnclaimedMemories(ctx); len(un) != 0 {
		t.Errorf("unclaimed = %d", len(un))
	}
	if _, err := db.Memory(ctx, "nope"); !errors.Is(err, engine.ErrMemoryNotFound) {
		t.Errorf("missing memory err = %v", err)
	}
}

func TestLastConversationTickEitherOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	insertGuest(t, db, "a", 1)
	insertGuest(t, db, "b", 2)

	if _, ok, err := db.LastConversationTick(ctx, "a", "b"); err != nil || ok {
		t.Fatalf("no conversations yet: ok=%v err=%v", ok, err)
	}
	for _, c := range []engine.Conversation{
		{GuestA: "a", GuestB: "b", Room: world.Lobby, Tick: 2, Outcome: engine.OutcomeNoTrade},
		{GuestA: "b", GuestB: "a", Room: world.Lobby, Tick: 5, Outcome: engine.OutcomeTrade},
	} {
		if err := db.InsertConversation(ctx, &c); err != nil {
			t.Fatal(err)
		}
	}
	last, ok, err := db.LastConversationTick(ctx, "a", "b")
	if err != nil || !ok || last != 5 {
		t.Errorf("last = %d ok=%v err=%v, want 5", last, ok, err)
	}
	if n, _ := db.CountConversationsSince(ctx, 3); n != 1 {
		t.Errorf("conversations since 3 = %d", n)
	}
	convs, _ := db.RecentConversations(ctx, 10)
	if len(convs) != 2 || convs[0].Tick != 5 {
		t.Errorf("recent = %+v", convs)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.RunInTx(ctx, func(q engine.Queries) error {
		if err := q.SaveHotelState(ctx, engine.HotelState{Status: engine.StatusOpen, Tick: 9, Mood: engine.MoodLively}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	state, _ := db.HotelState(ctx)
	if state.Tick != 0 || state.Status != engine.StatusClosed {
		t.Errorf("state after rollback = %+v", state)
	}
}

func TestResetKeepsMeta(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	insertGuest(t, db, "a", 1)
	owner := "a"
	insertMemory(t, db, "m", &owner, "a", economy.Common)
	if err := db.SaveMeta("currents_seed", "7"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveHotelState(ctx, engine.HotelState{Status: engine.StatusFinished, Tick: 12, TotalGuests: 4, Mood: engine.MoodChaotic}); err != nil {
		t.Fatal(err)
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if guests, _ := db.ActiveGuests(ctx); len(guests) != 0 {
		t.Errorf("guests after reset = %d", len(guests))
	}
	state, _ := db.HotelState(ctx)
	if state.Tick != 0 || state.TotalGuests != 0 || state.Status != engine.StatusClosed {
		t.Errorf("state after reset = %+v", state)
	}
	if v, _ := db.GetMeta("currents_seed"); v != "7" {
		t.Errorf("meta lost on reset: %q", v)
	}
}

func TestLeaderboardOrdersByScore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	insertGuest(t, db, "poor", 1)
	insertGuest(t, db, "rich", 2)
	insertGuest(t, db, "empty", 3)
	poor, rich := "poor", "rich"
	insertMemory(t, db, "p1", &poor, "poor", economy.Common)
	insertMemory(t, db, "r1", &rich, "rich", economy.Legendary)
	insertMemory(t, db, "r2", &rich, "rich", economy.Common)

	board, err := db.Leaderboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 3 {
		t.Fatalf("board = %+v", board)
	}
	want := economy.PointValue(economy.Legendary) + economy.PointValue(economy.Common)
	if board[0].GuestID != "rich" || board[0].MemoryCount != 2 || board[0].Score != want {
		t.Errorf("top = %+v, want rich with %d", board[0], want)
	}
	if board[2].GuestID != "empty" || board[2].Score != 0 {
		t.Errorf("last = %+v", board[2])
	}
}
