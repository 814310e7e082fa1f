// internal/storage/sqlite.go
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection holding the roleplay world state:
// the in-game date, player registrations, wars and the context log.
type DB struct {
	conn *sqlx.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Conn exposes the underlying connection for the query layer.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_state (
		guild_id TEXT PRIMARY KEY,
		roleplay_date TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS players (
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (guild_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS wars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		thread_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		synopsis TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_wars_guild ON wars(guild_id, active);

	CREATE TABLE IF NOT EXISTS context_entries (
		id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_context_guild ON context_entries(guild_id, created_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
