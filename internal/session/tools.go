// ABOUTME: Tool-call mediation: invoke and confirmation paths plus status updates
// ABOUTME: The session is also the ContextProvider capability lent to running tools

package session

import (
	"context"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/provider"
	"github.com/2389/parley/internal/rpc"
	"github.com/2389/parley/internal/tool"
)

// Confirmation reply values.
const (
	confirmationAccept  = "accept"
	confirmationDismiss = "dismiss"
)

type confirmationResult struct {
	Result string `json:"result"`
}

var (
	_ provider.ToolHandler = (*Service)(nil)
	_ tool.ContextProvider = (*Service)(nil)
)

// ownsToolRequest drops tool requests that belong to another tab's
// conversation.
func (s *Service) ownsToolRequest(params chat.ToolInvokeParams) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID != "" && params.ConversationID == s.conversationID
}

// HandleToolInvoke runs the named tool and replies with its result. Unknown
// tools get a method-not-found envelope; tool failures become error results,
// never session failures.
func (s *Service) HandleToolInvoke(params chat.ToolInvokeParams, respond provider.ToolResponder) {
	if !s.ownsToolRequest(params) {
		return
	}

	impl, ok := s.registry.Get(params.Name)
	if !ok {
		if err := respond(nil, &rpc.Error{Code: rpc.CodeMethodNotFound, Message: "Tool function not found"}); err != nil {
			s.logger.Error("replying to tool invoke", "tool", params.Name, "error", err)
		}
		return
	}

	go func() {
		result, err := impl.Invoke(context.Background(), params, s)
		if err != nil {
			s.logger.Error("tool invocation failed", "tool", params.Name, "error", err)
			result = tool.InvokeResult{Status: tool.StatusError, Content: err.Error()}
		}
		if err := respond(result, nil); err != nil {
			s.logger.Error("replying to tool invoke", "tool", params.Name, "error", err)
		}
	}()
}

// HandleToolConfirmation records the pending request and surfaces a
// waitForConfirmation tool call so the user can approve or reject it.
func (s *Service) HandleToolConfirmation(params chat.ToolInvokeParams, respond provider.ToolResponder) {
	if !s.ownsToolRequest(params) {
		return
	}

	if params.Title == "" {
		params.Title, params.Message = s.registry.ConfirmationCopy(params.Name)
	}

	p := params
	rounds := []chat.AgentRound{{
		RoundID: params.RoundID,
		ToolCalls: []chat.AgentToolCall{{
			ID:           params.ToolCallID,
			Name:         params.Name,
			Status:       chat.ToolCallStatusWaitForConfirmation,
			InvokeParams: &p,
		}},
	}}
	s.appendToolCallHistory(params.TurnID, rounds, nil)

	s.mu.Lock()
	s.pendingToolCalls[params.ToolCallID] = pendingToolCall{params: params, respond: respond}
	s.mu.Unlock()
}

// UpdateToolCallStatus applies the user's decision on a tool call. Cancelling
// tears the whole request down; accepting resolves the pending confirmation.
// The matching tool-call entry in the last assistant message is updated
// either way, honoring the monotonic status machine.
func (s *Service) UpdateToolCallStatus(toolCallID string, toolStatus chat.ToolCallStatus) {
	if toolStatus == chat.ToolCallStatusCancelled {
		s.resetOngoingRequest()
		return
	}

	if toolStatus == chat.ToolCallStatusAccepted {
		s.mu.Lock()
		pending, ok := s.pendingToolCalls[toolCallID]
		if ok {
			delete(s.pendingToolCalls, toolCallID)
		}
		s.mu.Unlock()
		if ok {
			if err := pending.respond(confirmationResult{Result: confirmationAccept}, nil); err != nil {
				s.logger.Error("accepting tool call", "toolCallId", toolCallID, "error", err)
			}
		}
	}

	last, ok := s.memory.Last()
	if !ok || last.Role != chat.RoleAssistant {
		return
	}
	for _, round := range last.EditAgentRounds {
		for _, call := range round.ToolCalls {
			if call.ID != toolCallID {
				continue
			}
			if !call.Status.CanTransitionTo(toolStatus) {
				return
			}
			update := chat.ChatMessage{
				ID:        last.ID,
				ChatTabID: last.ChatTabID,
				Role:      chat.RoleAssistant,
				EditAgentRounds: []chat.AgentRound{{
					RoundID:   round.RoundID,
					ToolCalls: []chat.AgentToolCall{{ID: toolCallID, Name: call.Name, Status: toolStatus}},
				}},
			}
			s.memory.AppendMessage(update)
			return
		}
	}
}

// appendToolCallHistory merges tool-call rounds into the turn's assistant
// message.
func (s *Service) appendToolCallHistory(turnID string, rounds []chat.AgentRound, fileEdits []chat.FileEdit) {
	msg := chat.NewAssistantMessage(turnID, s.tab.ID)
	msg.EditAgentRounds = rounds
	msg.FileEdits = fileEdits
	s.memory.AppendMessage(msg)
}

// WorkspaceRoot implements tool.ContextProvider.
func (s *Service) WorkspaceRoot() string { return s.tab.WorkspacePath }

// UpdateFileEdits implements tool.ContextProvider: tracks an edit for the
// keep/undo affordance, replacing any earlier edit of the same file.
func (s *Service) UpdateFileEdits(edit chat.FileEdit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.fileEdits[edit.FilePath]; ok {
		// Preserve the turn's original baseline across repeated edits.
		edit.OriginalContent = existing.OriginalContent
	}
	s.fileEdits[edit.FilePath] = edit
}

// FileEdits returns the tracked edits for the current turn.
func (s *Service) FileEdits() []chat.FileEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	edits := make([]chat.FileEdit, 0, len(s.fileEdits))
	for _, edit := range s.fileEdits {
		edits = append(edits, edit)
	}
	return edits
}

func (s *Service) resetFileEdits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileEdits = make(map[string]chat.FileEdit)
}

// UpdateChatHistory implements tool.ContextProvider.
func (s *Service) UpdateChatHistory(turnID string, rounds []chat.AgentRound, fileEdits []chat.FileEdit) {
	s.appendToolCallHistory(turnID, rounds, fileEdits)
}

// NotifyChangeTextDocument implements tool.ContextProvider, assigning a
// monotonically increasing version per document.
func (s *Service) NotifyChangeTextDocument(ctx context.Context, fileURI, content string) error {
	s.mu.Lock()
	s.docVersions[fileURI]++
	version := s.docVersions[fileURI]
	s.mu.Unlock()
	return s.provider.NotifyChangeTextDocument(ctx, fileURI, content, version)
}
