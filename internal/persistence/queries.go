package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/belindacoding/liminal-hotel/internal/agents"
	"github.com/belindacoding/liminal-hotel/internal/engine"
)

// queries implements engine.Queries over either the pool or a transaction.
type queries struct {
	ext sqlx.ExtContext
}

var _ engine.Queries = queries{}

const guestColumns = `id, name, room, trait_1, trait_2, trait_3, origin_story, backstory, personality,
	total_ever_held, total_traded_away, drift_level, echo_sources, active, npc, wallet, entry_tx, created_at`

const memoryColumns = `id, owner_id, original_owner, rarity, name, description, point_value, sentiment, created_at`

// --- Hotel state ---

func (q queries) HotelState(ctx context.Context) (engine.HotelState, error) {
	var s engine.HotelState
	err := sqlx.GetContext(ctx, q.ext, &s,
		"SELECT status, tick, total_guests, total_trades, mood, updated_at FROM hotel_state WHERE id = 1")
	if err != nil {
		return s, fmt.Errorf("hotel state: %w", err)
	}
	return s, nil
}

func (q queries) SaveHotelState(ctx context.Context, s engine.HotelState) error {
	_, err := q.ext.ExecContext(ctx, `UPDATE hotel_state SET
		status = ?, tick = ?, total_guests = ?, total_trades = ?, mood = ?, updated_at = ?
		WHERE id = 1`,
		s.Status, s.Tick, s.TotalGuests, s.TotalTrades, s.Mood, s.UpdatedAt,
	)
	return err
}

// Reset deletes every run-scoped row and returns the hotel to closed.
func (q queries) Reset(ctx context.Context) error {
	for _, stmt := range []string{
		"DELETE FROM action_log",
		"DELETE FROM events",
		"DELETE FROM conversations",
		"DELETE FROM trades",
		"DELETE FROM memories",
		"DELETE FROM guests",
		"UPDATE hotel_state SET status = 'closed', tick = 0, total_guests = 0, total_trades = 0, mood = 'quiet' WHERE id = 1",
	} {
		if _, err := q.ext.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// --- Guests ---

func (q queries) InsertGuest(ctx context.Context, g *agents.Guest) error {
	_, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO guests (`+guestColumns+`) VALUES (
		:id, :name, :room, :trait_1, :trait_2, :trait_3, :origin_story, :backstory, :personality,
		:total_ever_held, :total_traded_away, :drift_level, :echo_sources, :active, :npc, :wallet, :entry_tx, :created_at)`,
		g,
	)
	return err
}

func (q queries) Guest(ctx context.Context, id string) (*agents.Guest, error) {
	var g agents.Guest
	err := sqlx.GetContext(ctx, q.ext, &g, "SELECT "+guestColumns+" FROM guests WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("guest %s: %w", id, engine.ErrGuestNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("guest %s: %w", id, err)
	}
	return &g, nil
}

// ActiveGuests returns active guests in arrival order.
func (q queries) ActiveGuests(ctx context.Context) ([]*agents.Guest, error) {
	var guests []*agents.Guest
	err := sqlx.SelectContext(ctx, q.ext, &guests,
		"SELECT "+guestColumns+" FROM guests WHERE active = 1 ORDER BY created_at, rowid")
	return guests, err
}

func (q queries) UpdateRoom(ctx context.Context, guestID, room string) error {
	_, err := q.ext.ExecContext(ctx, "UPDATE guests SET room = ? WHERE id = ?", room, guestID)
	return err
}

func (q queries) UpdateDrift(ctx context.Context, g *agents.Guest) error {
	_, err := q.ext.ExecContext(ctx, `UPDATE guests SET
		total_ever_held = ?, total_traded_away = ?, drift_level = ?, echo_sources = ?
		WHERE id = ?`,
		g.EverHeld, g.TradedAway, g.DriftLevel, g.EchoSources, g.ID,
	)
	return err
}

// DeactivateGuest flips an active guest to inactive. It reports false if the
// guest was already inactive.
func (q queries) DeactivateGuest(ctx context.Context, guestID string) (bool, error) {
	res, err := q.ext.ExecContext(ctx, "UPDATE guests SET active = 0 WHERE id = ? AND active = 1", guestID)
	return affected(res, err)
}

func (q queries) EntryTxUsed(ctx context.Context, txHash string) (bool, error) {
	return q.exists(ctx, "SELECT EXISTS(SELECT 1 FROM guests WHERE entry_tx = ?)", txHash)
}

func (q queries) WalletActive(ctx context.Context, wallet string) (bool, error) {
	return q.exists(ctx, "SELECT EXISTS(SELECT 1 FROM guests WHERE wallet = ? AND active = 1)", wallet)
}

// --- Memories ---

func (q queries) InsertMemory(ctx context.Context, m agents.Memory) error {
	_, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO memories (`+memoryColumns+`) VALUES (
		:id, :owner_id, :original_owner, :rarity, :name, :description, :point_value, :sentiment, :created_at)`,
		m,
	)
	return err
}

func (q queries) Memory(ctx context.Context, id string) (*agents.Memory, error) {
	var m agents.Memory
	err := sqlx.GetContext(ctx, q.ext, &m, "SELECT "+memoryColumns+" FROM memories WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory %s: %w", id, engine.ErrMemoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("memory %s: %w", id, err)
	}
	return &m, nil
}

func (q queries) MemoriesHeldBy(ctx context.Context, guestID string) ([]agents.Memory, error) {
	var mems []agents.Memory
	err := sqlx.SelectContext(ctx, q.ext, &mems,
		"SELECT "+memoryColumns+" FROM memories WHERE owner_id = ? ORDER BY created_at, rowid", guestID)
	return mems, err
}

func (q queries) OriginalMemories(ctx context.Context, guestID string) ([]agents.Memory, error) {
	var mems []agents.Memory
	err := sqlx.SelectContext(ctx, q.ext, &mems,
		"SELECT "+memoryColumns+" FROM memories WHERE original_owner = ? ORDER BY created_at, rowid", guestID)
	return mems, err
}

// CountOriginalsHeld counts memories a guest arrived with and still holds.
func (q queries) CountOriginalsHeld(ctx context.Context, guestID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n,
		"SELECT COUNT(*) FROM memories WHERE original_owner = ? AND owner_id = ?", guestID, guestID)
	return n, err
}

func (q queries) UnclaimedMemories(ctx context.Context) ([]agents.Memory, error) {
	var mems []agents.Memory
	err := sqlx.SelectContext(ctx, q.ext, &mems,
		"SELECT "+memoryColumns+" FROM memories WHERE owner_id IS NULL ORDER BY created_at, rowid")
	return mems, err
}

// ClaimMemory takes an unowned memory. It reports false if someone else
// already owns it.
func (q queries) ClaimMemory(ctx context.Context, memoryID, guestID string) (bool, error) {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE memories SET owner_id = ? WHERE id = ? AND owner_id IS NULL", guestID, memoryID)
	return affected(res, err)
}

// TransferMemory moves a memory between guests. It reports false if fromID
// no longer owns it.
func (q queries) TransferMemory(ctx context.Context, memoryID, fromID, toID string) (bool, error) {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE memories SET owner_id = ? WHERE id = ? AND owner_id = ?", toID, memoryID, fromID)
	return affected(res, err)
}

// --- Trades ---

func (q queries) InsertTrade(ctx context.Context, t *engine.Trade) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO trades
		(seller_id, buyer_id, offered, requested, status, tick, created_at)
		VALUES (:seller_id, :buyer_id, :offered, :requested, :status, :tick, :created_at)`, t)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (q queries) RecentTrades(ctx context.Context, limit int) ([]engine.Trade, error) {
	var trades []engine.Trade
	err := sqlx.SelectContext(ctx, q.ext, &trades,
		`SELECT id, seller_id, buyer_id, offered, requested, status, tick, created_at
		FROM trades WHERE status = ? ORDER BY id DESC LIMIT ?`, engine.TradeCompleted, limit)
	return trades, err
}

// --- Conversations ---

func (q queries) InsertConversation(ctx context.Context, c *engine.Conversation) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO conversations
		(guest_a, guest_b, room, lines, outcome, tick, created_at)
		VALUES (:guest_a, :guest_b, :room, :lines, :outcome, :tick, :created_at)`, c)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// LastConversationTick returns when two guests last spoke, in either order.
func (q queries) LastConversationTick(ctx context.Context, a, b string) (int64, bool, error) {
	var last sql.NullInt64
	err := sqlx.GetContext(ctx, q.ext, &last,
		`SELECT MAX(tick) FROM conversations
		WHERE (guest_a = ? AND guest_b = ?) OR (guest_a = ? AND guest_b = ?)`, a, b, b, a)
	if err != nil {
		return 0, false, err
	}
	return last.Int64, last.Valid, nil
}

func (q queries) RecentConversations(ctx context.Context, limit int) ([]engine.Conversation, error) {
	var convs []engine.Conversation
	err := sqlx.SelectContext(ctx, q.ext, &convs,
		`SELECT id, guest_a, guest_b, room, lines, outcome, tick, created_at
		FROM conversations ORDER BY id DESC LIMIT ?`, limit)
	return convs, err
}

func (q queries) CountConversationsSince(ctx context.Context, tick int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n, "SELECT COUNT(*) FROM conversations WHERE tick >= ?", tick)
	return n, err
}

// --- Events ---

func (q queries) InsertEvent(ctx context.Context, e *engine.Event) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO events
		(type, guest_id, description, effects, tick, created_at)
		VALUES (:type, :guest_id, :description, :effects, :tick, :created_at)`, e)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (q queries) RecentEvents(ctx context.Context, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := sqlx.SelectContext(ctx, q.ext, &events,
		`SELECT id, type, guest_id, description, effects, tick, created_at
		FROM events ORDER BY id DESC LIMIT ?`, limit)
	return events, err
}

// --- Action log ---

// actionRow keeps JSON columns as text so they scan the same from any driver.
type actionRow struct {
	ID        int64  `db:"id"`
	GuestID   string `db:"guest_id"`
	Action    string `db:"action"`
	Params    string `db:"params"`
	Outcome   string `db:"outcome"`
	Narrative string `db:"narrative"`
	Tick      int64  `db:"tick"`
	CreatedAt int64  `db:"created_at"`
}

func (q queries) InsertActionLog(ctx context.Context, a *engine.ActionLog) error {
	res, err := q.ext.ExecContext(ctx, `INSERT INTO action_log
		(guest_id, action, params, outcome, narrative, tick, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.GuestID, a.Action, jsonText(a.Params), jsonText(a.Outcome), a.Narrative, a.Tick, a.CreatedAt,
	)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (q queries) ActionHistory(ctx context.Context, guestID string, limit int) ([]engine.ActionLog, error) {
	var rows []actionRow
	err := sqlx.SelectContext(ctx, q.ext, &rows,
		`SELECT id, guest_id, action, params, outcome, narrative, tick, created_at
		FROM action_log WHERE guest_id = ? ORDER BY id DESC LIMIT ?`, guestID, limit)
	if err != nil {
		return nil, err
	}
	logs := make([]engine.ActionLog, len(rows))
	for i, r := range rows {
		logs[i] = engine.ActionLog{
			ID:        r.ID,
			GuestID:   r.GuestID,
			Action:    r.Action,
			Params:    json.RawMessage(r.Params),
			Outcome:   json.RawMessage(r.Outcome),
			Narrative: r.Narrative,
			Tick:      r.Tick,
			CreatedAt: r.CreatedAt,
		}
	}
	return logs, nil
}

// --- Leaderboard ---

func (q queries) Leaderboard(ctx context.Context) ([]engine.LeaderboardEntry, error) {
	var board []engine.LeaderboardEntry
	err := sqlx.SelectContext(ctx, q.ext, &board, `SELECT
		g.id AS guest_id,
		g.name AS name,
		g.drift_level AS drift_level,
		COUNT(m.id) AS memory_count,
		COALESCE(SUM(m.point_value), 0) AS score
	FROM guests g
	LEFT JOIN memories m ON m.owner_id = g.id
	WHERE g.active = 1
	GROUP BY g.id
	ORDER BY score DESC, g.created_at, g.rowid`)
	return board, err
}

// --- helpers ---

func (q queries) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	err := sqlx.GetContext(ctx, q.ext, &ok, query, args...)
	return ok, err
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
