// internal/models/roleplay.go
package models

import "time"

// Player is a roleplay participant and the country they control.
type Player struct {
	GuildID     string `db:"guild_id" json:"guild_id"`
	UserID      string `db:"user_id" json:"user_id"`
	DisplayName string `db:"display_name" json:"display_name"`
	Country     string `db:"country" json:"country"`
}

// War is an ongoing conflict, backed by a forum thread on the platform.
// The thread id is assigned by the platform when the war is declared.
type War struct {
	ID        int64     `db:"id" json:"id"`
	GuildID   string    `db:"guild_id" json:"guild_id"`
	ThreadID  string    `db:"thread_id" json:"thread_id"`
	Title     string    `db:"title" json:"title"`
	Synopsis  string    `db:"synopsis" json:"synopsis"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ContextEntry is one append-only line of the guild's world context log.
type ContextEntry struct {
	ID        string    `db:"id" json:"id"`
	GuildID   string    `db:"guild_id" json:"guild_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
