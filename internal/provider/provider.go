// ABOUTME: ConversationProvider interface and the tool request handler contract
// ABOUTME: The session layer depends on these, never on the wire client directly

package provider

import (
	"context"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/model"
	"github.com/2389/parley/internal/rpc"
)

// ConversationProvider is everything the backend offers to a chat session.
// All operations may fail; replies to Create operations arrive out of band as
// progress notifications, not as call results.
type ConversationProvider interface {
	CreateConversation(ctx context.Context, req ConversationRequest) error
	CreateTurn(ctx context.Context, conversationID string, req ConversationRequest) error
	StopReceivingMessage(ctx context.Context, workDoneToken string) error
	DeleteTurn(ctx context.Context, conversationID, turnID string) error
	RateConversation(ctx context.Context, turnID string, rating Rating) error
	CopyCode(ctx context.Context, req CopyCodeRequest) error
	Templates(ctx context.Context) ([]Template, error)
	Models(ctx context.Context) ([]model.Model, error)
	Agents(ctx context.Context) ([]Agent, error)
	NotifyChangeTextDocument(ctx context.Context, fileURI, content string, version int) error
	ReviewChanges(ctx context.Context, changes []chat.ReviewChange) (chat.CodeReviewResponse, error)
}

// ToolResponder sends the reply for one backend-initiated tool request.
// Exactly one of result or error is delivered, exactly once.
type ToolResponder func(result any, rpcErr *rpc.Error) error

// ToolHandler receives backend-initiated tool requests. Invoke asks the
// client to run a tool; Confirm asks the user to approve one first. Both must
// eventually call respond.
type ToolHandler interface {
	HandleToolInvoke(params chat.ToolInvokeParams, respond ToolResponder)
	HandleToolConfirmation(params chat.ToolInvokeParams, respond ToolResponder)
}
