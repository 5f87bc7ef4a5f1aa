// ABOUTME: JSON-RPC implementation of ConversationProvider
// ABOUTME: Forwards progress notifications to the dispatcher and tool requests to the handler

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/model"
	"github.com/2389/parley/internal/progress"
	"github.com/2389/parley/internal/rpc"
	"github.com/2389/parley/internal/status"
)

// Wire method names spoken by the backend language service.
const (
	methodCreateConversation = "conversation/create"
	methodCreateTurn         = "conversation/turn"
	methodTurnDelete         = "conversation/turnDelete"
	methodRating             = "conversation/rating"
	methodCopyCode           = "conversation/copyCode"
	methodTemplates          = "conversation/templates"
	methodModels             = "copilot/models"
	methodAgents             = "conversation/agents"
	methodCodeReview         = "conversation/codeReview"
	methodDidChangeDocument  = "textDocument/didChange"
	methodCancelProgress     = "window/workDoneProgress/cancel"

	// Backend-initiated.
	methodProgress         = "$/progress"
	methodToolInvoke       = "conversation/invokeClientTool"
	methodToolConfirmation = "conversation/invokeClientToolConfirmation"
	methodDidChangeStatus  = "didChangeStatus"
)

// Client talks to the backend over one JSON-RPC connection.
type Client struct {
	conn       *rpc.Conn
	dispatcher *progress.Dispatcher
	tracker    *status.Tracker
	logger     *slog.Logger

	mu          sync.Mutex
	toolHandler ToolHandler
}

var _ ConversationProvider = (*Client)(nil)

// NewClient wraps rwc in a JSON-RPC connection. Call Serve to start the read
// loop. The dispatcher receives progress notifications; the tracker (optional)
// receives backend status changes.
func NewClient(rwc io.ReadWriteCloser, dispatcher *progress.Dispatcher, tracker *status.Tracker, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		dispatcher: dispatcher,
		tracker:    tracker,
		logger:     logger.With("component", "provider"),
	}
	c.conn = rpc.NewConn(rwc, c.handle, logger)
	return c
}

// Serve runs the connection's read loop until it ends.
func (c *Client) Serve() error { return c.conn.Serve() }

// Close tears the connection down.
func (c *Client) Close() error { return c.conn.Close() }

// SetToolHandler registers the receiver for backend tool requests.
func (c *Client) SetToolHandler(h ToolHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolHandler = h
}

func (c *Client) currentToolHandler() ToolHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toolHandler
}

// handle routes backend-initiated messages.
func (c *Client) handle(conn *rpc.Conn, msg *rpc.Message) {
	switch msg.Method {
	case methodProgress:
		c.handleProgress(msg)
	case methodToolInvoke, methodToolConfirmation:
		c.handleToolRequest(conn, msg)
	case methodDidChangeStatus:
		c.handleStatusChange(msg)
	default:
		if !msg.IsNotification() {
			_ = conn.Reply(msg.ID, nil, &rpc.Error{Code: rpc.CodeMethodNotFound, Message: "unsupported method " + msg.Method})
		}
	}
}

func (c *Client) handleProgress(msg *rpc.Message) {
	var params struct {
		Token string          `json:"token"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		c.logger.Error("malformed progress notification", "error", err)
		return
	}
	if err := c.dispatcher.Dispatch(params.Token, params.Value); err != nil {
		c.logger.Error("dispatching progress", "token", params.Token, "error", err)
	}
}

func (c *Client) handleToolRequest(conn *rpc.Conn, msg *rpc.Message) {
	handler := c.currentToolHandler()
	if handler == nil {
		_ = conn.Reply(msg.ID, nil, &rpc.Error{Code: rpc.CodeInternalError, Message: "no tool handler registered"})
		return
	}

	var params chat.ToolInvokeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		_ = conn.Reply(msg.ID, nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: err.Error()})
		return
	}

	id := msg.ID
	respond := func(result any, rpcErr *rpc.Error) error {
		return conn.Reply(id, result, rpcErr)
	}
	if msg.Method == methodToolInvoke {
		handler.HandleToolInvoke(params, respond)
	} else {
		handler.HandleToolConfirmation(params, respond)
	}
}

func (c *Client) handleStatusChange(msg *rpc.Message) {
	if c.tracker == nil {
		return
	}
	var params struct {
		Kind    string `json:"kind"`
		Busy    bool   `json:"busy"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		c.logger.Error("malformed status notification", "error", err)
		return
	}
	level := status.LevelNormal
	switch params.Kind {
	case "Warning":
		level = status.LevelWarning
	case "Error":
		level = status.LevelError
	}
	c.tracker.UpdateBackendStatus(level, params.Busy, params.Message)
}

// call wraps Conn.Call, converting JSON-RPC errors to ProtocolError so the
// session layer sees wire codes without importing the codec.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	err := c.conn.Call(ctx, method, params, result)
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		return &ProtocolError{Code: rpcErr.Code, Message: rpcErr.Message}
	}
	return err
}

func (c *Client) CreateConversation(ctx context.Context, req ConversationRequest) error {
	return c.call(ctx, methodCreateConversation, req, nil)
}

type turnParams struct {
	ConversationID string `json:"conversationId"`
	ConversationRequest
}

func (c *Client) CreateTurn(ctx context.Context, conversationID string, req ConversationRequest) error {
	return c.call(ctx, methodCreateTurn, turnParams{ConversationID: conversationID, ConversationRequest: req}, nil)
}

// StopReceivingMessage asks the backend to stop streaming for a token. The
// local token check is the real cancellation; this is advisory.
func (c *Client) StopReceivingMessage(ctx context.Context, workDoneToken string) error {
	return c.conn.Notify(methodCancelProgress, map[string]string{"token": workDoneToken})
}

func (c *Client) DeleteTurn(ctx context.Context, conversationID, turnID string) error {
	params := map[string]string{"conversationId": conversationID, "turnId": turnID}
	return c.call(ctx, methodTurnDelete, params, nil)
}

func (c *Client) RateConversation(ctx context.Context, turnID string, rating Rating) error {
	params := map[string]any{"turnId": turnID, "rating": rating}
	return c.call(ctx, methodRating, params, nil)
}

func (c *Client) CopyCode(ctx context.Context, req CopyCodeRequest) error {
	return c.call(ctx, methodCopyCode, req, nil)
}

func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	var templates []Template
	if err := c.call(ctx, methodTemplates, struct{}{}, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (c *Client) Models(ctx context.Context) ([]model.Model, error) {
	var models []model.Model
	if err := c.call(ctx, methodModels, struct{}{}, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.call(ctx, methodAgents, struct{}{}, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// NotifyChangeTextDocument tells the backend a file changed, e.g. after a
// tool applied an edit.
func (c *Client) NotifyChangeTextDocument(ctx context.Context, fileURI, content string, version int) error {
	params := map[string]any{
		"textDocument":   map[string]any{"uri": fileURI, "version": version},
		"contentChanges": []map[string]string{{"text": content}},
	}
	return c.conn.Notify(methodDidChangeDocument, params)
}

func (c *Client) ReviewChanges(ctx context.Context, changes []chat.ReviewChange) (chat.CodeReviewResponse, error) {
	params := map[string]any{"changes": changes}
	var resp chat.CodeReviewResponse
	if err := c.call(ctx, methodCodeReview, params, &resp); err != nil {
		return chat.CodeReviewResponse{}, err
	}
	return resp, nil
}
