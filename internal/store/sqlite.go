// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Messages are stored as JSON rows with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/2389/parley/internal/chat"
)

// sortableTimeLayout is a fixed-width UTC form so TEXT comparison on the
// created_at column matches chronological order. RFC3339Nano trims trailing
// fractional zeros, which breaks lexicographic ordering.
const sortableTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT NOT NULL,
			workspace_path TEXT NOT NULL,
			username TEXT NOT NULL,
			tab_id TEXT NOT NULL,
			turn_id TEXT,
			role TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (id, workspace_path, username)
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_tab
			ON chat_messages(workspace_path, username, tab_id, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Save upserts a message by id. Re-saving the same message replaces the
// stored payload, so double-persisting is harmless.
func (s *SQLiteStore) Save(ctx context.Context, msg chat.ChatMessage, meta Metadata) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	query := `
		INSERT INTO chat_messages (id, workspace_path, username, tab_id, turn_id, role, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, workspace_path, username) DO UPDATE SET
			turn_id = excluded.turn_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		msg.ID,
		meta.WorkspacePath,
		meta.Username,
		msg.ChatTabID,
		msg.TurnID,
		string(msg.Role),
		string(payload),
		msg.CreatedAt.UTC().Format(sortableTimeLayout),
		msg.UpdatedAt.UTC().Format(sortableTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("upserting message: %w", err)
	}

	s.logger.Debug("saved chat message",
		"message_id", msg.ID,
		"tab_id", msg.ChatTabID,
		"role", msg.Role,
	)
	return nil
}

// Delete removes a single message by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string, meta Metadata) error {
	query := `DELETE FROM chat_messages WHERE id = ? AND workspace_path = ? AND username = ?`
	if _, err := s.db.ExecContext(ctx, query, id, meta.WorkspacePath, meta.Username); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// DeleteAll removes the messages with the given ids in one statement.
func (s *SQLiteStore) DeleteAll(ctx context.Context, ids []string, meta Metadata) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+2)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, meta.WorkspacePath, meta.Username)

	query := fmt.Sprintf(
		`DELETE FROM chat_messages WHERE id IN (%s) AND workspace_path = ? AND username = ?`,
		placeholders,
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}

	s.logger.Debug("deleted chat messages", "count", len(ids))
	return nil
}

// GetAll returns every message for a tab in creation order.
func (s *SQLiteStore) GetAll(ctx context.Context, tabID string, meta Metadata) ([]chat.ChatMessage, error) {
	query := `
		SELECT payload FROM chat_messages
		WHERE workspace_path = ? AND username = ? AND tab_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, meta.WorkspacePath, meta.Username, tabID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.ChatMessage
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		var msg chat.ChatMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("decoding message payload: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
