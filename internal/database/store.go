package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrUsernameTaken is returned by CreateUser when the username already exists.
var ErrUsernameTaken = errors.New("username already exists")

// ErrInvalidCredentials is returned by Authenticate on a username/password mismatch.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetUser retrieves a user by username. Returns nil, nil if not found.
	GetUser(ctx context.Context, username string) (*User, error)

	// UpsertUserActivity records activity for a user: last_active is set
	// unconditionally, ai_enabled defaults to true only when the row is
	// first inserted. An existing ai_enabled value is never touched.
	UpsertUserActivity(ctx context.Context, username string, at time.Time) error

	// SetUserAIEnabled flips the per-user manual-mode switch.
	SetUserAIEnabled(ctx context.Context, username string, enabled bool) error

	// CreateUser registers a new user with credentials. Returns
	// ErrUsernameTaken when the username is already registered.
	CreateUser(ctx context.Context, username, password string) error

	// Authenticate checks a username/password pair. Returns
	// ErrInvalidCredentials on mismatch or unknown user.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// FindHotelByName looks up a hotel by exact, case-insensitive name.
	// Returns nil, nil if not found; a name merely contained in a longer
	// string never matches.
	FindHotelByName(ctx context.Context, name string) (*Hotel, error)

	// ListHotelNames returns all catalog hotel names in insertion order.
	ListHotelNames(ctx context.Context) ([]string, error)

	// InsertHistoryEntry appends one recorded turn.
	InsertHistoryEntry(ctx context.Context, entry *HistoryEntry) error

	// GetHistoryByUsername retrieves a user's full history oldest-first.
	GetHistoryByUsername(ctx context.Context, username string) ([]HistoryEntry, error)

	// GetRecentHistory retrieves the most recent 'limit' entries for a
	// user, newest-first.
	GetRecentHistory(ctx context.Context, username string, limit int) ([]HistoryEntry, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by username. Returns nil, nil if not found.
func (s *sqlxStore) GetUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	var user User
	query := `SELECT id, created_at, updated_at, username, password, ai_enabled, last_active
	          FROM users WHERE username = ?`

	err := s.db.GetContext(ctx, &user, query, username)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "username", username)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user", "username", username, "error", err)
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}

	return &user, nil
}

// UpsertUserActivity sets last_active unconditionally and ai_enabled only on insert.
func (s *sqlxStore) UpsertUserActivity(ctx context.Context, username string, at time.Time) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO users (username, ai_enabled, last_active, created_at, updated_at)
        VALUES (?, 1, ?, ?, ?)
        ON CONFLICT (username) DO UPDATE SET
            last_active = excluded.last_active,
            updated_at  = excluded.updated_at;
    `

	if _, err := s.db.ExecContext(ctx, query, username, at.UTC(), now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting user activity", "username", username, "error", err)
		return fmt.Errorf("failed to upsert activity for user %q: %w", username, err)
	}

	s.logger.DebugContext(ctx, "User activity recorded", "username", username)
	return nil
}

// SetUserAIEnabled flips the per-user manual-mode switch, creating the
// row if the user has never been seen before.
func (s *sqlxStore) SetUserAIEnabled(ctx context.Context, username string, enabled bool) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO users (username, ai_enabled, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (username) DO UPDATE SET
            ai_enabled = excluded.ai_enabled,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.ExecContext(ctx, query, username, enabled, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error setting ai_enabled", "username", username, "enabled", enabled, "error", err)
		return fmt.Errorf("failed to set ai_enabled for user %q: %w", username, err)
	}

	s.logger.InfoContext(ctx, "Updated ai_enabled flag", "username", username, "enabled", enabled)
	return nil
}

// CreateUser registers a new user with credentials.
func (s *sqlxStore) CreateUser(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	existing, err := s.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO users (username, password, ai_enabled, created_at, updated_at)
        VALUES (?, ?, 1, ?, ?);
    `

	if _, err := s.db.ExecContext(ctx, query, username, password, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error creating user", "username", username, "error", err)
		return fmt.Errorf("failed to create user %q: %w", username, err)
	}

	s.logger.InfoContext(ctx, "User created", "username", username)
	return nil
}

// Authenticate checks a username/password pair.
func (s *sqlxStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password != password {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindHotelByName looks up a hotel by exact, case-insensitive name.
// The hotel_name column is declared COLLATE NOCASE, so equality here is
// anchored whole-string matching with case folding done by SQLite.
func (s *sqlxStore) FindHotelByName(ctx context.Context, name string) (*Hotel, error) {
	if name == "" {
		return nil, nil
	}

	var hotel Hotel
	query := `SELECT id, created_at, updated_at, hotel_name, details
	          FROM hotels WHERE hotel_name = ?`

	err := s.db.GetContext(ctx, &hotel, query, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error looking up hotel", "name", name, "error", err)
		return nil, fmt.Errorf("failed to look up hotel %q: %w", name, err)
	}

	return &hotel, nil
}

// ListHotelNames returns all catalog hotel names in insertion order.
func (s *sqlxStore) ListHotelNames(ctx context.Context) ([]string, error) {
	var names []string
	query := `SELECT hotel_name FROM hotels ORDER BY id ASC`

	if err := s.db.SelectContext(ctx, &names, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing hotel names", "error", err)
		return nil, fmt.Errorf("failed to list hotels: %w", err)
	}

	return names, nil
}

// InsertHistoryEntry appends one recorded turn.
func (s *sqlxStore) InsertHistoryEntry(ctx context.Context, entry *HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil history entry")
	}
	if entry.Username == "" {
		return fmt.Errorf("history entry must have a username")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Hotel == "" {
		entry.Hotel = NoHotel
	}
	entry.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO history (username, hotel, timestamp, user_message, bot_response, created_at)
        VALUES (:username, :hotel, :timestamp, :user_message, :bot_response, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving history entry", "username", entry.Username, "error", err)
		return fmt.Errorf("failed to save history entry for %q: %w", entry.Username, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		entry.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "History entry saved", "username", entry.Username, "hotel", entry.Hotel)
	return nil
}

// GetHistoryByUsername retrieves a user's full history oldest-first.
func (s *sqlxStore) GetHistoryByUsername(ctx context.Context, username string) ([]HistoryEntry, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	var entries []HistoryEntry
	query := `
        SELECT id, created_at, username, hotel, timestamp, user_message, bot_response
        FROM history
        WHERE username = ?
        ORDER BY timestamp ASC, id ASC;
    `

	if err := s.db.SelectContext(ctx, &entries, query, username); err != nil {
		s.logger.ErrorContext(ctx, "Error getting history", "username", username, "error", err)
		return nil, fmt.Errorf("failed to get history for %q: %w", username, err)
	}

	return entries, nil
}

// GetRecentHistory retrieves the most recent 'limit' entries for a user, newest-first.
func (s *sqlxStore) GetRecentHistory(ctx context.Context, username string, limit int) ([]HistoryEntry, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if limit <= 0 {
		limit = 5
	} else if limit > 100 {
		limit = 100
	}

	var entries []HistoryEntry
	query := `
        SELECT id, created_at, username, hotel, timestamp, user_message, bot_response
        FROM history
        WHERE username = ?
        ORDER BY timestamp DESC, id DESC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &entries, query, username, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent history", "username", username, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent history for %q: %w", username, err)
	}

	return entries, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
