// ABOUTME: Progress notification payloads and the token-keyed dispatcher
// ABOUTME: Routes begin/report/end values to the handler registered for the token

package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/parley/internal/chat"
)

// Notification kinds carried in the progress value payload.
const (
	KindBegin  = "begin"
	KindReport = "report"
	KindEnd    = "end"
)

// Begin announces that the backend accepted a request and opened a turn.
type Begin struct {
	Kind           string `json:"kind"`
	ConversationID string `json:"conversationId"`
	TurnID         string `json:"turnId"`
}

// Report carries a partial, cumulative view of the assistant's reply.
type Report struct {
	Kind            string                       `json:"kind"`
	TurnID          string                       `json:"turnId"`
	Reply           string                       `json:"reply,omitempty"`
	References      []chat.ConversationReference `json:"references,omitempty"`
	Steps           []chat.ProgressStep          `json:"steps,omitempty"`
	EditAgentRounds []chat.AgentRound            `json:"editAgentRounds,omitempty"`
}

// IsEmpty reports whether the report carries no content at all. Empty reports
// are dropped by handlers to avoid pointless history churn.
func (r Report) IsEmpty() bool {
	return r.Reply == "" && len(r.References) == 0 && len(r.Steps) == 0 && len(r.EditAgentRounds) == 0
}

// ErrorInfo is the backend's terminal error for a turn.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// End closes a turn, successfully or with an error.
type End struct {
	Kind           string         `json:"kind"`
	TurnID         string         `json:"turnId"`
	FollowUp       *chat.FollowUp `json:"followUp,omitempty"`
	SuggestedTitle string         `json:"suggestedTitle,omitempty"`
	Error          *ErrorInfo     `json:"error,omitempty"`
}

// Handler receives the routed notifications for one request token.
type Handler interface {
	HandleBegin(token string, begin Begin)
	HandleReport(token string, report Report)
	HandleEnd(token string, end End)
}

// Dispatcher fans incoming progress notifications out to the handler
// registered for each token. Safe for concurrent use.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewDispatcher creates an empty dispatcher. Pass nil logger for default.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger.With("component", "progress"),
	}
}

// Register routes future notifications for token to h, replacing any prior
// registration for the same token.
func (d *Dispatcher) Register(token string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[token] = h
}

// Unregister stops routing for token. Unknown tokens are ignored.
func (d *Dispatcher) Unregister(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, token)
}

// Registered reports whether a handler is currently routed for token.
func (d *Dispatcher) Registered(token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.handlers[token]
	return ok
}

func (d *Dispatcher) handlerFor(token string) (Handler, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handlers[token]
	return h, ok
}

// Dispatch decodes a raw progress value and routes it by token. Notifications
// for unregistered tokens are dropped; they belong to cancelled or foreign
// requests.
func (d *Dispatcher) Dispatch(token string, value json.RawMessage) error {
	h, ok := d.handlerFor(token)
	if !ok {
		d.logger.Debug("dropping progress for unknown token", "token", token)
		return nil
	}

	var kindOnly struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(value, &kindOnly); err != nil {
		return fmt.Errorf("decoding progress kind: %w", err)
	}

	switch kindOnly.Kind {
	case KindBegin:
		var begin Begin
		if err := json.Unmarshal(value, &begin); err != nil {
			return fmt.Errorf("decoding begin: %w", err)
		}
		h.HandleBegin(token, begin)
	case KindReport:
		var report Report
		if err := json.Unmarshal(value, &report); err != nil {
			return fmt.Errorf("decoding report: %w", err)
		}
		h.HandleReport(token, report)
	case KindEnd:
		var end End
		if err := json.Unmarshal(value, &end); err != nil {
			return fmt.Errorf("decoding end: %w", err)
		}
		h.HandleEnd(token, end)
	default:
		d.logger.Warn("unknown progress kind", "kind", kindOnly.Kind, "token", token)
	}
	return nil
}
