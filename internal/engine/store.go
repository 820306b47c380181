package engine

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/narrative"
)

// Status is the hotel lifecycle state.
type Status string

const (
	StatusClosed   Status = "closed"
	StatusOpen     Status = "open"
	StatusFinished Status = "finished"
)

// Mood is the hotel's overall atmosphere, recomputed every tick.
type Mood string

const (
	MoodQuiet   Mood = "quiet"
	MoodNeutral Mood = "neutral"
	MoodLively  Mood = "lively"
	MoodChaotic Mood = "chaotic"
)

// HotelState is the singleton row describing the current run.
type HotelState struct {
	Status      Status `db:"status" json:"status"`
	Tick        int64  `db:"tick" json:"tick"`
	TotalGuests int    `db:"total_guests" json:"total_guests"`
	TotalTrades int    `db:"total_trades" json:"total_trades"`
	Mood        Mood   `db:"mood" json:"mood"`
	UpdatedAt   int64  `db:"updated_at" json:"updated_at"`
}

// EventType categorizes world events.
type EventType string

const (
	EventClaim         EventType = "claim"
	EventConversation  EventType = "conversation"
	EventHotelEcho     EventType = "hotel_echo"
	EventNPCCheckout   EventType = "npc_checkout"
	EventNPCEntry      EventType = "npc_entry"
	EventHotelOpen     EventType = "hotel_open"
	EventHotelClose    EventType = "hotel_close"
	EventGuestEntry    EventType = "guest_entry"
	EventGuestCheckout EventType = "guest_checkout"
)

// Event is an append-only entry in the world audit trail.
type Event struct {
	ID          int64     `db:"id" json:"id"`
	Type        EventType `db:"type" json:"type"`
	GuestID     *string   `db:"guest_id" json:"triggered_by"`
	Description string    `db:"description" json:"description"`
	Effects     Effects   `db:"effects" json:"effects"`
	Tick        int64     `db:"tick" json:"tick"`
	CreatedAt   int64     `db:"created_at" json:"created_at"`
}

// Effects is the structured payload of an event, stored as a JSON object.
type Effects map[string]any

func (e *Effects) Scan(src any) error {
	return scanJSON(src, e)
}

func (e Effects) Value() (driver.Value, error) {
	if e == nil {
		return "{}", nil
	}
	return valueJSON(e)
}

// Trade is a completed memory exchange. Offered memories move from seller
// to buyer, requested memories from buyer to seller.
type Trade struct {
	ID        int64            `db:"id" json:"id"`
	SellerID  string           `db:"seller_id" json:"seller_id"`
	BuyerID   string           `db:"buyer_id" json:"buyer_id"`
	Offered   agents.StringSet `db:"offered" json:"offered_memories"`
	Requested agents.StringSet `db:"requested" json:"requested_memories"`
	Status    string           `db:"status" json:"status"`
	Tick      int64            `db:"tick" json:"tick"`
	CreatedAt int64            `db:"created_at" json:"created_at"`
}

// TradeCompleted is the only status a trade row is written with.
const TradeCompleted = "completed"

// Outcome is how a conversation ended.
type Outcome string

const (
	OutcomeTrade   Outcome = "trade"
	OutcomeNoTrade Outcome = "no_trade"
)

// Conversation is a recorded exchange between two guests in one room.
type Conversation struct {
	ID        int64   `db:"id" json:"id"`
	GuestA    string  `db:"guest_a" json:"agent_a_id"`
	GuestB    string  `db:"guest_b" json:"agent_b_id"`
	Room      string  `db:"room" json:"room"`
	Lines     Lines   `db:"lines" json:"exchanges"`
	Outcome   Outcome `db:"outcome" json:"outcome"`
	Tick      int64   `db:"tick" json:"tick"`
	CreatedAt int64   `db:"created_at" json:"created_at"`
}

// Lines is an ordered dialogue stored as a JSON array.
type Lines []narrative.Line

func (l *Lines) Scan(src any) error {
	return scanJSON(src, l)
}

func (l Lines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON(l)
}

// ActionLog records one processed action request.
type ActionLog struct {
	ID        int64           `db:"id" json:"id"`
	GuestID   string          `db:"guest_id" json:"agent_id"`
	Action    string          `db:"action" json:"action"`
	Params    json.RawMessage `db:"params" json:"params"`
	Outcome   json.RawMessage `db:"outcome" json:"outcome"`
	Narrative string          `db:"narrative" json:"narrative"`
	Tick      int64           `db:"tick" json:"tick"`
	CreatedAt int64           `db:"created_at" json:"timestamp"`
}

// LeaderboardEntry ranks an active guest by the points they hold.
type LeaderboardEntry struct {
	GuestID     string `db:"guest_id" json:"agent_id"`
	Name        string `db:"name" json:"agent"`
	MemoryCount int    `db:"memory_count" json:"memories"`
	Score       int    `db:"score" json:"score"`
	DriftLevel  int    `db:"drift_level" json:"drift_level"`
}

// Queries is the set of reads and writes the hotel performs. Conditional
// writes report whether a row changed so callers can detect lost races.
type Queries interface {
	HotelState(ctx context.Context) (HotelState, error)
	SaveHotelState(ctx context.Context, s HotelState) error
	Reset(ctx context.Context) error

	InsertGuest(ctx context.Context, g *agents.Guest) error
	Guest(ctx context.Context, id string) (*agents.Guest, error)
	ActiveGuests(ctx context.Context) ([]*agents.Guest, error)
	UpdateRoom(ctx context.Context, guestID, room string) error
	UpdateDrift(ctx context.Context, g *agents.Guest) error
	DeactivateGuest(ctx context.Context, guestID string) (bool, error)
	EntryTxUsed(ctx context.Context, txHash string) (bool, error)
	WalletActive(ctx context.Context, wallet string) (bool, error)

	InsertMemory(ctx context.Context, m agents.Memory) error
	Memory(ctx context.Context, id string) (*agents.Memory, error)
	MemoriesHeldBy(ctx context.Context, guestID string) ([]agents.Memory, error)
	OriginalMemories(ctx context.Context, guestID string) ([]agents.Memory, error)
	CountOriginalsHeld(ctx context.Context, guestID string) (int, error)
	UnclaimedMemories(ctx context.Context) ([]agents.Memory, error)
	ClaimMemory(ctx context.Context, memoryID, guestID string) (bool, error)
	TransferMemory(ctx context.Context, memoryID, fromID, toID string) (bool, error)

	InsertTrade(ctx context.Context, t *Trade) error
	RecentTrades(ctx context.Context, limit int) ([]Trade, error)

	InsertConversation(ctx context.Context, c *Conversation) error
	LastConversationTick(ctx context.Context, a, b string) (int64, bool, error)
	RecentConversations(ctx context.Context, limit int) ([]Conversation, error)
	CountConversationsSince(ctx context.Context, tick int64) (int, error)

	InsertEvent(ctx context.Context, e *Event) error
	RecentEvents(ctx context.Context, limit int) ([]Event, error)

	InsertActionLog(ctx context.Context, a *ActionLog) error
	ActionHistory(ctx context.Context, guestID string, limit int) ([]ActionLog, error)

	Leaderboard(ctx context.Context) ([]LeaderboardEntry, error)
}

// Store is durable hotel state. RunInTx runs fn in one transaction and
// commits only if fn returns nil.
type Store interface {
	Queries
	RunInTx(ctx context.Context, fn func(q Queries) error) error
}

func scanJSON(src, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("json column: unsupported type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func valueJSON(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
