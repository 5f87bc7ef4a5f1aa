// ABOUTME: In-memory fan-out change notifier for history subscribers
// ABOUTME: Non-blocking: signals are coalesced for slow subscribers

package memory

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber. A change
// signal carries no payload, so a buffer of one coalesces bursts.
const subscriberBufferSize = 1

// Broadcaster fans out history-change signals to all subscribers. Subscribers
// that have an undelivered signal pending are skipped rather than blocked.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan struct{}
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan struct{}),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber and returns its signal channel plus an
// unsubscribe func.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	subID := uuid.New().String()
	ch := make(chan struct{}, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	return ch, func() { b.unsubscribe(subID) }
}

// Changed signals every subscriber that the history mutated.
func (b *Broadcaster) Changed() {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- struct{}{}:
		default:
			// Signal already pending; the subscriber will re-read anyway.
		}
	}
}

func (b *Broadcaster) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}
