// ABOUTME: Store interface and metadata types for chat message persistence
// ABOUTME: Messages are keyed by (workspace, username, tab) and upserted by id

package store

import (
	"context"
	"errors"

	"github.com/2389/parley/internal/chat"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Metadata scopes stored messages to a workspace and user.
type Metadata struct {
	WorkspacePath string
	Username      string
}

// Store defines the interface for durable chat message persistence.
// Save is an idempotent upsert by message id: persisting the same message
// twice leaves exactly one record.
type Store interface {
	Save(ctx context.Context, msg chat.ChatMessage, meta Metadata) error
	Delete(ctx context.Context, id string, meta Metadata) error
	DeleteAll(ctx context.Context, ids []string, meta Metadata) error
	GetAll(ctx context.Context, tabID string, meta Metadata) ([]chat.ChatMessage, error)

	// Close releases any resources held by the store
	Close() error
}
