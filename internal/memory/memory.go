// ABOUTME: In-process ordered log of chat messages for one tab
// ABOUTME: Appends merge by message id so streamed partial updates fold into place

package memory

import (
	"log/slog"
	"sync"

	"github.com/2389/parley/internal/chat"
)

// Memory is the authoritative in-memory chat history for a single tab.
// The session mutates it; the UI layer reads it and subscribes to changes.
// All methods are safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	history []chat.ChatMessage
	notify  *Broadcaster
	logger  *slog.Logger
}

// New creates an empty Memory. Pass nil logger for default.
func New(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		notify: NewBroadcaster(logger),
		logger: logger.With("component", "memory"),
	}
}

// History returns a copy of the current message log.
func (m *Memory) History() []chat.ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]chat.ChatMessage, len(m.history))
	copy(out, m.history)
	return out
}

// Len returns the number of messages in the log.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history)
}

// Last returns the most recent message, or false if the log is empty.
func (m *Memory) Last() (chat.ChatMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) == 0 {
		return chat.ChatMessage{}, false
	}
	return m.history[len(m.history)-1], true
}

// LastWhere returns the most recent message matching pred, or false.
func (m *Memory) LastWhere(pred func(chat.ChatMessage) bool) (chat.ChatMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.history) - 1; i >= 0; i-- {
		if pred(m.history[i]) {
			return m.history[i], true
		}
	}
	return chat.ChatMessage{}, false
}

// Get returns the message with the given id, or false.
func (m *Memory) Get(id string) (chat.ChatMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.history {
		if m.history[i].ID == id {
			return m.history[i], true
		}
	}
	return chat.ChatMessage{}, false
}

// AppendMessage adds a message to the log. If a message with the same id
// already exists the update is merged into it instead, which is how streamed
// progress reports accumulate into a single assistant message.
func (m *Memory) AppendMessage(msg chat.ChatMessage) {
	m.mu.Lock()
	for i := range m.history {
		if m.history[i].ID == msg.ID {
			m.history[i].Merge(msg)
			m.mu.Unlock()
			m.notify.Changed()
			return
		}
	}
	m.history = append(m.history, msg)
	m.mu.Unlock()
	m.notify.Changed()
}

// MutateHistory runs mutator against the live message slice under the lock,
// then notifies subscribers.
func (m *Memory) MutateHistory(mutator func(history []chat.ChatMessage) []chat.ChatMessage) {
	m.mu.Lock()
	m.history = mutator(m.history)
	m.mu.Unlock()
	m.notify.Changed()
}

// RemoveMessages deletes the messages with the given ids, preserving order of
// the remainder. Unknown ids are ignored.
func (m *Memory) RemoveMessages(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	m.mu.Lock()
	kept := m.history[:0]
	for _, msg := range m.history {
		if !drop[msg.ID] {
			kept = append(kept, msg)
		}
	}
	m.history = kept
	m.mu.Unlock()
	m.notify.Changed()
}

// Clear removes all messages.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
	m.notify.Changed()
}

// Subscribe registers for change notifications. The returned channel receives
// a signal after every mutation; the unsubscribe func must be called when the
// subscriber goes away.
func (m *Memory) Subscribe() (<-chan struct{}, func()) {
	return m.notify.Subscribe()
}
