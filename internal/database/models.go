package database

import (
	"database/sql"
	"time"
)

// User represents a chat user known to the service. Users are created
// implicitly on their first message (or explicitly through signup) and
// carry the per-user manual-mode switch.
type User struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Username   string       `db:"username"`
	Password   string       `db:"password"` // stored in plaintext, see DESIGN.md
	AIEnabled  bool         `db:"ai_enabled"`
	LastActive sql.NullTime `db:"last_active"`
}

// Hotel represents one catalog entry. The name is the selection key
// (matched case-insensitively against inbound messages) and the details
// block is injected verbatim into the conversation primer.
type Hotel struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	HotelName string `db:"hotel_name"`
	Details   string `db:"details"`
}

// NoHotel is the hotel tag written on history entries recorded while no
// hotel context was selected.
const NoHotel = "N/A"

// HistoryEntry is one recorded turn: the inbound text and the reply it
// produced, tagged with the hotel context that was active at the time.
// Entries are append-only and ordered by timestamp.
type HistoryEntry struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	Username    string    `db:"username"`
	Hotel       string    `db:"hotel"`
	Timestamp   time.Time `db:"timestamp"`
	UserMessage string    `db:"user_message"`
	BotResponse string    `db:"bot_response"`
}
