// ABOUTME: In-memory ConversationProvider for tests
// ABOUTME: Records every call and returns injectable results and errors

package provider

import (
	"context"
	"sync"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/model"
)

// MockProvider implements ConversationProvider for tests. Zero value usable.
type MockProvider struct {
	mu sync.Mutex

	CreateConversationErr error
	CreateTurnErr         error
	ReviewErr             error

	ModelsResult    []model.Model
	TemplatesResult []Template
	AgentsResult    []Agent
	ReviewResult    chat.CodeReviewResponse

	CreatedConversations []ConversationRequest
	CreatedTurns         []CreatedTurn
	StoppedTokens        []string
	DeletedTurns         []DeletedTurn
	Ratings              map[string]Rating
	CopyCodeRequests     []CopyCodeRequest
	DocumentChanges      []string
	ReviewedChanges      [][]chat.ReviewChange
}

// CreatedTurn records one CreateTurn call.
type CreatedTurn struct {
	ConversationID string
	Request        ConversationRequest
}

// DeletedTurn records one DeleteTurn call.
type DeletedTurn struct {
	ConversationID string
	TurnID         string
}

var _ ConversationProvider = (*MockProvider)(nil)

func (m *MockProvider) CreateConversation(ctx context.Context, req ConversationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateConversationErr != nil {
		return m.CreateConversationErr
	}
	m.CreatedConversations = append(m.CreatedConversations, req)
	return nil
}

func (m *MockProvider) CreateTurn(ctx context.Context, conversationID string, req ConversationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateTurnErr != nil {
		return m.CreateTurnErr
	}
	m.CreatedTurns = append(m.CreatedTurns, CreatedTurn{ConversationID: conversationID, Request: req})
	return nil
}

func (m *MockProvider) StopReceivingMessage(ctx context.Context, workDoneToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoppedTokens = append(m.StoppedTokens, workDoneToken)
	return nil
}

func (m *MockProvider) DeleteTurn(ctx context.Context, conversationID, turnID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedTurns = append(m.DeletedTurns, DeletedTurn{ConversationID: conversationID, TurnID: turnID})
	return nil
}

func (m *MockProvider) RateConversation(ctx context.Context, turnID string, rating Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Ratings == nil {
		m.Ratings = make(map[string]Rating)
	}
	m.Ratings[turnID] = rating
	return nil
}

func (m *MockProvider) CopyCode(ctx context.Context, req CopyCodeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CopyCodeRequests = append(m.CopyCodeRequests, req)
	return nil
}

func (m *MockProvider) Templates(ctx context.Context) ([]Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TemplatesResult, nil
}

func (m *MockProvider) Models(ctx context.Context) ([]model.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ModelsResult, nil
}

func (m *MockProvider) Agents(ctx context.Context) ([]Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AgentsResult, nil
}

func (m *MockProvider) NotifyChangeTextDocument(ctx context.Context, fileURI, content string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DocumentChanges = append(m.DocumentChanges, fileURI)
	return nil
}

func (m *MockProvider) ReviewChanges(ctx context.Context, changes []chat.ReviewChange) (chat.CodeReviewResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReviewErr != nil {
		return chat.CodeReviewResponse{}, m.ReviewErr
	}
	m.ReviewedChanges = append(m.ReviewedChanges, changes)
	return m.ReviewResult, nil
}

// TurnCount returns how many conversation-starting calls were made.
func (m *MockProvider) TurnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CreatedConversations) + len(m.CreatedTurns)
}

// LastRequest returns the most recent outgoing request, if any.
func (m *MockProvider) LastRequest() (ConversationRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.CreatedTurns) > 0 {
		return m.CreatedTurns[len(m.CreatedTurns)-1].Request, true
	}
	if len(m.CreatedConversations) > 0 {
		return m.CreatedConversations[len(m.CreatedConversations)-1], true
	}
	return ConversationRequest{}, false
}
