// ABOUTME: Tool interface, invocation results, and the context-provider capability
// ABOUTME: Tools report their effects through the ContextProvider, never directly into memory

package tool

import (
	"context"
	"fmt"

	"github.com/2389/parley/internal/chat"
)

// Tool names the backend knows.
const (
	NameInsertEditIntoFile = "insert_edit_into_file"
	NameCreateFile         = "create_file"
	NameRunInTerminal      = "run_in_terminal"
)

// Invocation result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// InvokeResult is the reply payload for one tool invocation.
type InvokeResult struct {
	Status  string `json:"status"`
	Content string `json:"content"`
}

// ContextProvider is the capability surface the session lends to tools so
// they can record their effects.
type ContextProvider interface {
	// WorkspaceRoot is the project directory tools operate relative to.
	WorkspaceRoot() string
	// UpdateFileEdits tracks an edit so the user can keep or undo it later.
	UpdateFileEdits(edit chat.FileEdit)
	// UpdateChatHistory merges tool-call rounds and edits into the turn's
	// assistant message.
	UpdateChatHistory(turnID string, rounds []chat.AgentRound, fileEdits []chat.FileEdit)
	// NotifyChangeTextDocument tells the backend a file's content changed.
	NotifyChangeTextDocument(ctx context.Context, fileURI, content string) error
}

// Tool is one client-side capability invokable by the backend.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, params chat.ToolInvokeParams, cp ContextProvider) (InvokeResult, error)
}

// stringInput extracts a required string field from tool input.
func stringInput(input map[string]any, key string) (string, error) {
	v, ok := input[key]
	if !ok {
		return "", fmt.Errorf("missing input field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("input field %q is not a string", key)
	}
	return s, nil
}

// completedRound builds the round update reporting a finished tool call.
func completedRound(params chat.ToolInvokeParams) []chat.AgentRound {
	p := params
	return []chat.AgentRound{{
		RoundID: params.RoundID,
		ToolCalls: []chat.AgentToolCall{{
			ID:           params.ToolCallID,
			Name:         params.Name,
			Status:       chat.ToolCallStatusCompleted,
			InvokeParams: &p,
		}},
	}}
}
