// ABOUTME: ChatMessage and related enums for the conversation data model
// ABOUTME: Messages are created by the session and mutated in place as progress arrives

package chat

import (
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TurnStatus reflects the overall state of a turn as shown in the transcript.
type TurnStatus string

const (
	TurnStatusInProgress          TurnStatus = "inProgress"
	TurnStatusSuccess             TurnStatus = "success"
	TurnStatusCancelled           TurnStatus = "cancelled"
	TurnStatusError               TurnStatus = "error"
	TurnStatusWaitForConfirmation TurnStatus = "waitForConfirmation"
)

// Rating is a user's vote on an assistant turn.
type Rating int

const (
	RatingUnrated Rating = 0
	RatingUp      Rating = 1
	RatingDown    Rating = -1
)

// RequestType distinguishes the workflow that produced a message.
type RequestType string

const (
	RequestTypeConversation RequestType = "conversation"
	RequestTypeCodeReview   RequestType = "codeReview"
)

// FollowUp is a suggested follow-up question returned at end of turn.
type FollowUp struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Type    string `json:"type,omitempty"`
}

// StepStatus is the state of a single progress step.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusCancelled StepStatus = "cancelled"
)

// ProgressStep is one sub-step of an in-flight turn (searching, reading
// files, generating), rendered as a checklist while the turn runs.
type ProgressStep struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      StepStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// PanelMessage is a backend-issued notice rendered outside the message body,
// such as the quota warning shown on a 402.
type PanelMessage struct {
	Type    string `json:"type"` // "error", "warning", "info"
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ChatMessage is one turn's content in a chat tab.
type ChatMessage struct {
	ID              string                 `json:"id"`
	ChatTabID       string                 `json:"chatTabId"`
	TurnID          string                 `json:"turnId,omitempty"` // backend-assigned, empty until acknowledged
	Role            Role                   `json:"role"`
	Content         string                 `json:"content"`
	ImageReferences []ImageReference       `json:"imageReferences,omitempty"`
	References      []ConversationReference `json:"references,omitempty"`
	FollowUp        *FollowUp              `json:"followUp,omitempty"`
	SuggestedTitle  string                 `json:"suggestedTitle,omitempty"`
	ErrorMessages   []string               `json:"errorMessages,omitempty"`
	Rating          Rating                 `json:"rating,omitempty"`
	Steps           []ProgressStep         `json:"steps,omitempty"`
	EditAgentRounds []AgentRound           `json:"editAgentRounds,omitempty"`
	PanelMessages   []PanelMessage         `json:"panelMessages,omitempty"`
	CodeReviewRound *CodeReviewRound       `json:"codeReviewRound,omitempty"`
	FileEdits       []FileEdit             `json:"fileEdits,omitempty"`
	TurnStatus      TurnStatus             `json:"turnStatus,omitempty"`
	RequestType     RequestType            `json:"requestType"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// NewUserMessage creates a user message for a tab.
func NewUserMessage(id, tabID, content string) ChatMessage {
	now := time.Now()
	return ChatMessage{
		ID:          id,
		ChatTabID:   tabID,
		Role:        RoleUser,
		Content:     content,
		RequestType: RequestTypeConversation,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewAssistantMessage creates an assistant message for a turn. The message id
// and the turn id are the same value for assistant messages.
func NewAssistantMessage(turnID, tabID string) ChatMessage {
	now := time.Now()
	return ChatMessage{
		ID:          turnID,
		ChatTabID:   tabID,
		TurnID:      turnID,
		Role:        RoleAssistant,
		RequestType: RequestTypeConversation,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewErrorMessage creates an assistant message carrying only error text.
func NewErrorMessage(turnID, tabID string, errorMessages []string) ChatMessage {
	m := NewAssistantMessage(turnID, tabID)
	m.ErrorMessages = errorMessages
	return m
}

// Merge folds a partial update for the same turn into m. Non-empty scalar
// fields replace, non-empty slices replace (progress reports carry cumulative
// state), rounds merge by round id, and error messages append.
func (m *ChatMessage) Merge(update ChatMessage) {
	if update.Content != "" {
		m.Content = update.Content
	}
	if update.TurnID != "" {
		m.TurnID = update.TurnID
	}
	if len(update.References) > 0 {
		m.References = update.References
	}
	if len(update.Steps) > 0 {
		m.Steps = update.Steps
	}
	if len(update.EditAgentRounds) > 0 {
		m.EditAgentRounds = MergeRounds(m.EditAgentRounds, update.EditAgentRounds)
	}
	if len(update.ErrorMessages) > 0 {
		m.ErrorMessages = append(m.ErrorMessages, update.ErrorMessages...)
	}
	if len(update.PanelMessages) > 0 {
		m.PanelMessages = append(m.PanelMessages, update.PanelMessages...)
	}
	if len(update.FileEdits) > 0 {
		m.FileEdits = append(m.FileEdits, update.FileEdits...)
	}
	if update.FollowUp != nil {
		m.FollowUp = update.FollowUp
	}
	if update.SuggestedTitle != "" {
		m.SuggestedTitle = update.SuggestedTitle
	}
	if update.CodeReviewRound != nil {
		m.CodeReviewRound = update.CodeReviewRound
	}
	if update.TurnStatus != "" {
		m.TurnStatus = update.TurnStatus
	}
	m.UpdatedAt = time.Now()
}
