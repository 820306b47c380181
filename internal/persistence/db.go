// Package persistence provides SQLite-based hotel state storage.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/belindacoding/liminal-hotel/internal/engine"
)

// DB wraps a SQLite connection for hotel state persistence.
type DB struct {
	queries
	conn *sqlx.DB
}

var _ engine.Store = (*DB)(nil)

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; claims and trades rely on it.
	conn.SetMaxOpenConns(1)

	db := &DB{queries: queries{ext: conn}, conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS hotel_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		status TEXT NOT NULL DEFAULT 'closed',
		tick INTEGER NOT NULL DEFAULT 0,
		total_guests INTEGER NOT NULL DEFAULT 0,
		total_trades INTEGER NOT NULL DEFAULT 0,
		mood TEXT NOT NULL DEFAULT 'quiet',
		updated_at INTEGER NOT NULL DEFAULT 0
	);
	INSERT OR IGNORE INTO hotel_state (id) VALUES (1);

	CREATE TABLE IF NOT EXISTS guests (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		room TEXT NOT NULL,
		trait_1 TEXT NOT NULL,
		trait_2 TEXT NOT NULL,
		trait_3 TEXT NOT NULL,
		origin_story TEXT NOT NULL,
		backstory TEXT NOT NULL,
		personality TEXT NOT NULL,
		total_ever_held INTEGER NOT NULL DEFAULT 0,
		total_traded_away INTEGER NOT NULL DEFAULT 0,
		drift_level INTEGER NOT NULL DEFAULT 0,
		echo_sources TEXT NOT NULL DEFAULT '[]',
		active INTEGER NOT NULL DEFAULT 1,
		npc INTEGER NOT NULL DEFAULT 0,
		wallet TEXT NOT NULL,
		entry_tx TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_guests_active ON guests(active);
	CREATE INDEX IF NOT EXISTS idx_guests_wallet ON guests(wallet);

	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		owner_id TEXT REFERENCES guests(id),
		original_owner TEXT NOT NULL,
		rarity TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		point_value INTEGER NOT NULL,
		sentiment TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner_id);
	CREATE INDEX IF NOT EXISTS idx_memories_original ON memories(original_owner);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seller_id TEXT NOT NULL,
		buyer_id TEXT NOT NULL,
		offered TEXT NOT NULL,
		requested TEXT NOT NULL,
		status TEXT NOT NULL,
		tick INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guest_a TEXT NOT NULL,
		guest_b TEXT NOT NULL,
		room TEXT NOT NULL,
		lines TEXT NOT NULL,
		outcome TEXT NOT NULL,
		tick INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_pair ON conversations(guest_a, guest_b);
	CREATE INDEX IF NOT EXISTS idx_conversations_tick ON conversations(tick);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		guest_id TEXT,
		description TEXT NOT NULL,
		effects TEXT NOT NULL DEFAULT '{}',
		tick INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS action_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guest_id TEXT NOT NULL,
		action TEXT NOT NULL,
		params TEXT NOT NULL,
		outcome TEXT NOT NULL,
		narrative TEXT NOT NULL,
		tick INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_action_log_guest ON action_log(guest_id);

	CREATE TABLE IF NOT EXISTS hotel_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunInTx runs fn inside a transaction, committing only if fn succeeds.
func (db *DB) RunInTx(ctx context.Context, fn func(q engine.Queries) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(queries{ext: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SaveMeta stores a key-value pair that outlives hotel resets.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO hotel_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// GetMeta reads a stored key. A missing key returns "" and no error.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM hotel_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
