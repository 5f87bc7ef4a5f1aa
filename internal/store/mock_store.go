// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/2389/parley/internal/chat"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	messages map[string]chat.ChatMessage // keyed by "workspace:user:id"
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		messages: make(map[string]chat.ChatMessage),
	}
}

func key(meta Metadata, id string) string {
	return meta.WorkspacePath + ":" + meta.Username + ":" + id
}

// Save upserts a message by id.
func (m *MockStore) Save(ctx context.Context, msg chat.ChatMessage, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[key(meta, msg.ID)] = msg
	return nil
}

// Delete removes a message by id.
func (m *MockStore) Delete(ctx context.Context, id string, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, key(meta, id))
	return nil
}

// DeleteAll removes the messages with the given ids.
func (m *MockStore) DeleteAll(ctx context.Context, ids []string, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.messages, key(meta, id))
	}
	return nil
}

// GetAll returns every stored message for a tab in creation order.
func (m *MockStore) GetAll(ctx context.Context, tabID string, meta Metadata) ([]chat.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := meta.WorkspacePath + ":" + meta.Username + ":"
	var out []chat.ChatMessage
	for k, msg := range m.messages {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix && msg.ChatTabID == tabID {
			out = append(out, msg)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Count returns the number of stored messages. Test helper.
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
