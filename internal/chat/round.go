// ABOUTME: Agent tool-use rounds and the tool-call status machine
// ABOUTME: Tool-call statuses only move forward toward a terminal state

package chat

// ToolCallStatus is the lifecycle state of a single tool call.
type ToolCallStatus string

const (
	ToolCallStatusRunning             ToolCallStatus = "running"
	ToolCallStatusWaitForConfirmation ToolCallStatus = "waitForConfirmation"
	ToolCallStatusAccepted            ToolCallStatus = "accepted"
	ToolCallStatusCompleted           ToolCallStatus = "completed"
	ToolCallStatusError               ToolCallStatus = "error"
	ToolCallStatusCancelled           ToolCallStatus = "cancelled"
)

// IsTerminal reports whether the status is final.
func (s ToolCallStatus) IsTerminal() bool {
	switch s {
	case ToolCallStatusCompleted, ToolCallStatusError, ToolCallStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is legal. Transitions
// are monotonic: terminal states accept nothing, and confirmation must pass
// through accepted before completing.
func (s ToolCallStatus) CanTransitionTo(next ToolCallStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case ToolCallStatusRunning:
		return next == ToolCallStatusCompleted || next == ToolCallStatusError || next == ToolCallStatusCancelled
	case ToolCallStatusWaitForConfirmation:
		return next == ToolCallStatusAccepted || next == ToolCallStatusCancelled
	case ToolCallStatusAccepted:
		return next == ToolCallStatusCompleted || next == ToolCallStatusError || next == ToolCallStatusCancelled
	}
	return false
}

// ToolInvokeParams is the payload of a backend tool invocation or
// confirmation request.
type ToolInvokeParams struct {
	Name           string         `json:"name"`
	Input          map[string]any `json:"input,omitempty"`
	ConversationID string         `json:"conversationId"`
	TurnID         string         `json:"turnId"`
	RoundID        int            `json:"roundId"`
	ToolCallID     string         `json:"toolCallId"`
	Title          string         `json:"title,omitempty"`
	Message        string         `json:"message,omitempty"`
}

// AgentToolCall is one tool call within a round.
type AgentToolCall struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Status       ToolCallStatus    `json:"status"`
	Error        string            `json:"error,omitempty"`
	InvokeParams *ToolInvokeParams `json:"invokeParams,omitempty"`
}

// AgentRound is one iteration of tool-assisted work within an assistant turn,
// grouping a textual reply with zero or more tool calls.
type AgentRound struct {
	RoundID   int             `json:"roundId"`
	Reply     string          `json:"reply"`
	ToolCalls []AgentToolCall `json:"toolCalls,omitempty"`
}

// MergeRounds folds updates into existing rounds. Rounds match by round id;
// within a matched round, tool calls match by id and are updated in place,
// unmatched tool calls append. Unmatched rounds append in order.
func MergeRounds(existing, updates []AgentRound) []AgentRound {
	merged := make([]AgentRound, len(existing))
	copy(merged, existing)

	for _, update := range updates {
		idx := -1
		for i := range merged {
			if merged[i].RoundID == update.RoundID {
				idx = i
				break
			}
		}
		if idx < 0 {
			merged = append(merged, update)
			continue
		}

		if update.Reply != "" {
			merged[idx].Reply = update.Reply
		}
		for _, call := range update.ToolCalls {
			found := false
			for j := range merged[idx].ToolCalls {
				if merged[idx].ToolCalls[j].ID == call.ID {
					merged[idx].ToolCalls[j].Status = call.Status
					if call.Error != "" {
						merged[idx].ToolCalls[j].Error = call.Error
					}
					if call.InvokeParams != nil {
						merged[idx].ToolCalls[j].InvokeParams = call.InvokeParams
					}
					found = true
					break
				}
			}
			if !found {
				merged[idx].ToolCalls = append(merged[idx].ToolCalls, call)
			}
		}
	}

	return merged
}
