// ABOUTME: Progress reconciliation: begin/report/end handlers and the reset routine
// ABOUTME: Notifications are matched to the active request purely by correlation token

package session

import (
	"context"
	"strconv"
	"strings"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/model"
	"github.com/2389/parley/internal/progress"
	"github.com/2389/parley/internal/status"
)

const modelNotSupportedMessage = "Oops, the model is not supported. Please enable it in your provider settings first."

var _ progress.Handler = (*Service)(nil)

// matchesActiveRequest guards every handler against stale or foreign tokens.
func (s *Service) matchesActiveRequest(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRequestID != "" && s.activeRequestID == token
}

// HandleBegin records the backend conversation id, stamps the pending user
// message with the real turn id, and appends an assistant placeholder for
// immediate feedback.
func (s *Service) HandleBegin(token string, begin progress.Begin) {
	if !s.matchesActiveRequest(token) {
		return
	}

	s.mu.Lock()
	s.conversationID = begin.ConversationID
	s.mu.Unlock()

	turnID := begin.TurnID
	if lastUser, ok := s.memory.LastWhere(func(m chat.ChatMessage) bool { return m.Role == chat.RoleUser }); ok {
		provisionalTurnID := lastUser.TurnID
		var updatedUser chat.ChatMessage
		s.memory.MutateHistory(func(history []chat.ChatMessage) []chat.ChatMessage {
			// A readability error created before dispatch carries a
			// provisional turn id; re-target it to the real one.
			if provisionalTurnID != "" {
				for i := len(history) - 1; i >= 0; i-- {
					if history[i].Role == chat.RoleAssistant && history[i].TurnID == provisionalTurnID {
						history[i].ID = turnID
						history[i].TurnID = turnID
						break
					}
				}
			}
			for i := len(history) - 1; i >= 0; i-- {
				if history[i].ID == lastUser.ID {
					history[i].TurnID = turnID
					updatedUser = history[i]
					break
				}
			}
			return history
		})
		if updatedUser.ID != "" {
			s.saveMessage(updatedUser)
		}
	}

	// Show an empty assistant message right away; the first report can take a
	// while, especially in agent mode.
	s.memory.AppendMessage(chat.NewAssistantMessage(turnID, s.tab.ID))
}

// HandleReport merges a cumulative partial reply into the turn's assistant
// message. Reports carrying nothing at all are dropped.
func (s *Service) HandleReport(token string, report progress.Report) {
	if !s.matchesActiveRequest(token) {
		return
	}
	if report.IsEmpty() {
		return
	}

	update := chat.NewAssistantMessage(report.TurnID, s.tab.ID)
	update.Content = report.Reply
	update.References = report.References
	update.Steps = report.Steps
	update.EditAgentRounds = report.EditAgentRounds
	s.memory.AppendMessage(update)
}

// HandleEnd settles the turn: error remediation or the final assistant
// message, then the reset routine either way.
func (s *Service) HandleEnd(token string, end progress.End) {
	if !s.matchesActiveRequest(token) {
		return
	}

	if end.Error != nil {
		s.handleEndError(end)
		return
	}

	final := chat.NewAssistantMessage(end.TurnID, s.tab.ID)
	final.FollowUp = end.FollowUp
	final.SuggestedTitle = end.SuggestedTitle
	s.memory.AppendMessage(final)
	s.resetOngoingRequest()
}

func (s *Service) handleEndError(end progress.End) {
	clsErr := end.Error

	switch {
	case clsErr.Code == 402:
		s.handleQuotaExceeded(end)
	case clsErr.Code == 400 && containsModelNotSupported(clsErr.Message):
		s.memory.AppendMessage(chat.NewErrorMessage(end.TurnID, s.tab.ID, []string{modelNotSupportedMessage}))
		s.resetOngoingRequest()
	default:
		s.memory.AppendMessage(chat.NewErrorMessage(end.TurnID, s.tab.ID, []string{clsErr.Message}))
		s.resetOngoingRequest()
	}
}

// handleQuotaExceeded shows the quota message and, for paying users with a
// fallback model available, transparently resends the turn under it.
func (s *Service) handleQuotaExceeded(end progress.End) {
	s.mu.Lock()
	last := s.lastUserRequest
	s.mu.Unlock()

	messageText := end.Error.Message
	if last != nil && last.Model != "" && last.ModelProviderName != "" {
		messageText = "You've reached your quota limit for your BYOK model " + last.Model +
			". Please check with " + last.ModelProviderName + " for more information."
	}

	s.tracker.UpdateBackendStatus(status.LevelWarning, false, messageText)

	quotaMsg := chat.NewAssistantMessage(end.TurnID, s.tab.ID)
	quotaMsg.PanelMessages = []chat.PanelMessage{{
		Type:    "error",
		Title:   strconv.Itoa(end.Error.Code),
		Message: messageText,
	}}
	s.memory.AppendMessage(quotaMsg)

	if last != nil && s.tracker.EligibleForFallback() {
		scope := model.ScopeChat
		if last.AgentMode {
			scope = model.ScopeAgent
		}
		fallback, ok := s.catalog.GetFallbackModel(scope)
		if !ok {
			s.resetOngoingRequest()
			return
		}
		s.catalog.SwitchToFallback()
		if err := s.ResendMessage(context.Background(), end.TurnID, fallback.ID, ""); err != nil {
			s.logger.Error("fallback resend", "model", fallback.ID, "error", err)
			s.resetOngoingRequest()
		}
		return
	}

	s.resetOngoingRequest()
}

// resetOngoingRequest is the terminal routine for every outcome: success,
// error, stop, or clear. It frees the request slot, drains pending tool
// confirmations with a dismiss, downgrades anything still visually running
// to cancelled, and persists the settled last message.
func (s *Service) resetOngoingRequest() {
	s.mu.Lock()
	token := s.activeRequestID
	s.activeRequestID = ""
	s.isReceiving = false
	s.requestType = ""
	pending := s.pendingToolCalls
	s.pendingToolCalls = make(map[string]pendingToolCall)
	s.mu.Unlock()

	if token != "" {
		s.dispatcher.Unregister(token)
	}

	for _, p := range pending {
		if err := p.respond(confirmationResult{Result: confirmationDismiss}, nil); err != nil {
			s.logger.Error("dismissing pending tool call", "toolCallId", p.params.ToolCallID, "error", err)
		}
	}

	s.memory.MutateHistory(func(history []chat.ChatMessage) []chat.ChatMessage {
		if len(history) == 0 {
			return history
		}
		last := &history[len(history)-1]
		if last.Role != chat.RoleAssistant {
			return history
		}

		for i := range last.Steps {
			if last.Steps[i].Status == chat.StepStatusRunning {
				last.Steps[i].Status = chat.StepStatusCancelled
			}
		}
		for i := range last.EditAgentRounds {
			calls := last.EditAgentRounds[i].ToolCalls
			for j := range calls {
				if calls[j].Status == chat.ToolCallStatusRunning || calls[j].Status == chat.ToolCallStatusWaitForConfirmation {
					calls[j].Status = chat.ToolCallStatusCancelled
				}
			}
		}
		if round := last.CodeReviewRound; round != nil {
			if round.Status == chat.ReviewStatusWaitForConfirmation || round.Status == chat.ReviewStatusRunning {
				round.Status = chat.ReviewStatusCancelled
			}
		}
		return history
	})

	// Progress reports churn quickly; one more idempotent upsert settles the
	// final shape of the last message.
	if last, ok := s.memory.Last(); ok {
		s.saveMessage(last)
	}
}

func containsModelNotSupported(message string) bool {
	return strings.Contains(message, "model is not supported")
}
