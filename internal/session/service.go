// ABOUTME: ChatService: the per-tab conversation orchestrator
// ABOUTME: Owns the active-request slot, builds outgoing requests, and exposes the public session surface

package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/memory"
	"github.com/2389/parley/internal/model"
	"github.com/2389/parley/internal/progress"
	"github.com/2389/parley/internal/provider"
	"github.com/2389/parley/internal/release"
	"github.com/2389/parley/internal/review"
	"github.com/2389/parley/internal/status"
	"github.com/2389/parley/internal/store"
	"github.com/2389/parley/internal/tool"
)

// Skill ids the client can offer the backend per request.
const (
	SkillCurrentEditor            = "current-editor"
	SkillProblemsInActiveDocument = "problems-in-active-document"
)

// skillCapabilities is every contextual capability this client knows how to
// resolve. Skills withheld from a request are reported as ignored.
var skillCapabilities = []string{SkillCurrentEditor, SkillProblemsInActiveDocument}

const persistTimeout = 5 * time.Second

// TabInfo identifies the chat tab a Service serves.
type TabInfo struct {
	ID            string
	WorkspacePath string
	Username      string
}

// Meta returns the persistence scope for this tab.
func (t TabInfo) Meta() store.Metadata {
	return store.Metadata{WorkspacePath: t.WorkspacePath, Username: t.Username}
}

// Skill is one contextual capability attached to a request. FilePath is set
// for the current-editor skill.
type Skill struct {
	ID       string
	FilePath string
}

// IDGenerator produces message ids and correlation tokens. Injected so tests
// can be deterministic.
type IDGenerator func() string

// Deps are the collaborators a Service needs.
type Deps struct {
	Tab        TabInfo
	Provider   provider.ConversationProvider
	Memory     *memory.Memory
	Store      store.Store
	Dispatcher *progress.Dispatcher
	Registry   *tool.Registry
	Catalog    *model.Catalog
	Tracker    *status.Tracker
	Comments   *review.CommentService
	Diffs      *review.DiffCollector
	IDs        IDGenerator
	Logger     *slog.Logger
}

// pendingToolCall correlates a backend confirmation request with the respond
// callback that answers it.
type pendingToolCall struct {
	params  chat.ToolInvokeParams
	respond provider.ToolResponder
}

// Service drives one chat tab's conversation against the backend.
type Service struct {
	tab        TabInfo
	provider   provider.ConversationProvider
	memory     *memory.Memory
	store      store.Store
	dispatcher *progress.Dispatcher
	registry   *tool.Registry
	catalog    *model.Catalog
	tracker    *status.Tracker
	comments   *review.CommentService
	diffs      *review.DiffCollector
	ids        IDGenerator
	logger     *slog.Logger

	mu               sync.Mutex
	activeRequestID  string
	isReceiving      bool
	requestType      chat.RequestType
	conversationID   string
	lastUserRequest  *provider.ConversationRequest
	lastSkills       []Skill
	pendingToolCalls map[string]pendingToolCall
	fileEdits        map[string]chat.FileEdit
	docVersions      map[string]int
	restored         bool
}

// NewService wires a session for one tab.
func NewService(deps Deps) *Service {
	if deps.IDs == nil {
		deps.IDs = uuid.NewString
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		tab:              deps.Tab,
		provider:         deps.Provider,
		memory:           deps.Memory,
		store:            deps.Store,
		dispatcher:       deps.Dispatcher,
		registry:         deps.Registry,
		catalog:          deps.Catalog,
		tracker:          deps.Tracker,
		comments:         deps.Comments,
		diffs:            deps.Diffs,
		ids:              deps.IDs,
		logger:           deps.Logger.With("component", "session", "tab", deps.Tab.ID),
		pendingToolCalls: make(map[string]pendingToolCall),
		fileEdits:        make(map[string]chat.FileEdit),
		docVersions:      make(map[string]int),
	}
}

// Memory exposes the tab's message log for readers.
func (s *Service) Memory() *memory.Memory { return s.memory }

// IsReceiving reports whether a request is in flight.
func (s *Service) IsReceiving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isReceiving
}

// ActiveRequestID returns the current correlation token, empty when idle.
func (s *Service) ActiveRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRequestID
}

// ConversationID returns the backend conversation id once known.
func (s *Service) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// SendOptions carries the optional parts of a Send.
type SendOptions struct {
	ContentImages     []chat.ContentImage
	ImageReferences   []chat.ImageReference
	Skills            []Skill
	References        []chat.ConversationReference
	Model             string
	ModelProviderName string
	AgentMode         bool
	UserLanguage      string
	// TurnID marks a resend: the existing message with this id is updated in
	// place instead of a new user message being appended.
	TurnID string
}

// Send dispatches a user message. A Send while another request is active is a
// silent no-op. Dispatch failures reset the slot and propagate.
func (s *Service) Send(ctx context.Context, id, content string, opts SendOptions) error {
	s.mu.Lock()
	if s.activeRequestID != "" {
		s.mu.Unlock()
		return nil
	}
	workDoneToken := s.ids()
	s.activeRequestID = workDoneToken
	s.mu.Unlock()

	s.dispatcher.Register(workDoneToken, s)

	// Persisted image references take precedence; raw inline images only
	// occur on resend flows.
	imageRefs := opts.ImageReferences
	contentImages := opts.ContentImages
	if len(imageRefs) > 0 {
		contentImages = chat.ToContentImages(imageRefs)
	} else {
		imageRefs = nil
	}

	userMsg := chat.NewUserMessage(id, s.tab.ID, content)
	userMsg.ImageReferences = imageRefs
	userMsg.References = opts.References

	editorSkill := findSkill(opts.Skills, SkillCurrentEditor)
	readable := true
	var readabilityMsg string
	if editorSkill != nil {
		readable, readabilityMsg = checkFileReadability(editorSkill.FilePath)
	}

	var errorMsg *chat.ChatMessage
	currentTurnID := opts.TurnID
	if opts.TurnID == "" {
		if editorSkill != nil && !readable {
			// Associate the readability error with the user message through a
			// provisional turn id; Begin replaces it with the real one.
			currentTurnID = s.ids()
			userMsg.TurnID = currentTurnID
			em := chat.NewErrorMessage(currentTurnID, s.tab.ID, []string{readabilityMsg})
			errorMsg = &em
		}
		s.memory.AppendMessage(userMsg)
	}

	s.resetFileEdits()
	s.saveMessage(userMsg)

	if strings.HasPrefix(content, "/releaseNotes") {
		notes := chat.NewAssistantMessage(s.ids(), s.tab.ID)
		notes.Content = release.Notes()
		s.memory.AppendMessage(notes)
		s.resetOngoingRequest()
		return nil
	}

	if errorMsg != nil {
		s.memory.AppendMessage(*errorMsg)
	}

	var activeDoc *provider.ActiveDocument
	validSkills := opts.Skills
	if editorSkill != nil && readable {
		activeDoc = &provider.ActiveDocument{URI: fileURI(editorSkill.FilePath)}
	} else {
		validSkills = removeSkills(validSkills, SkillCurrentEditor, SkillProblemsInActiveDocument)
	}

	req := s.buildRequest(workDoneToken, content, contentImages, activeDoc, validSkills, opts, currentTurnID)

	s.mu.Lock()
	s.lastUserRequest = &req
	s.lastSkills = validSkills
	s.mu.Unlock()

	return s.dispatch(ctx, id, req)
}

// buildRequest assembles the outgoing payload. The leading @workspace mention
// is rewritten to @project, and withheld capabilities are reported as
// ignored skills.
func (s *Service) buildRequest(
	workDoneToken, content string,
	contentImages []chat.ContentImage,
	activeDoc *provider.ActiveDocument,
	skills []Skill,
	opts SendOptions,
	turnID string,
) provider.ConversationRequest {
	supplied := make(map[string]bool, len(skills))
	for _, sk := range skills {
		supplied[sk.ID] = true
	}
	var ignored []string
	for _, id := range skillCapabilities {
		if !supplied[id] {
			ignored = append(ignored, id)
		}
	}

	return provider.ConversationRequest{
		WorkDoneToken:     workDoneToken,
		Content:           replaceFirstWord(content, "@workspace", "@project"),
		ContentImages:     contentImages,
		ImageReferences:   opts.ImageReferences,
		ActiveDoc:         activeDoc,
		Skills:            skillCapabilities,
		IgnoredSkills:     ignored,
		References:        opts.References,
		Model:             opts.Model,
		ModelProviderName: opts.ModelProviderName,
		AgentMode:         opts.AgentMode,
		UserLanguage:      opts.UserLanguage,
		TurnID:            turnID,
	}
}

// dispatch sends the request to the backend, resuming an existing backend
// conversation when one is known. sentMessageID is the user message excluded
// from the prior-turns replay.
func (s *Service) dispatch(ctx context.Context, sentMessageID string, req provider.ConversationRequest) error {
	s.mu.Lock()
	s.isReceiving = true
	s.requestType = chat.RequestTypeConversation
	conversationID := s.conversationID
	s.mu.Unlock()

	var err error
	if conversationID != "" {
		err = s.provider.CreateTurn(ctx, conversationID, req)
	} else {
		var prior []chat.ChatMessage
		for _, msg := range s.memory.History() {
			if msg.ID != sentMessageID {
				prior = append(prior, msg)
			}
		}
		if turns := chat.ToTurns(prior); len(turns) > 0 {
			req.Turns = turns
		}
		err = s.provider.CreateConversation(ctx, req)
	}
	if err != nil {
		s.resetOngoingRequest()
		return fmt.Errorf("dispatching conversation request: %w", err)
	}
	return nil
}

// StopReceivingMessage cancels the in-flight request, if any. Failure to
// cancel remotely is logged; local state is always reset.
func (s *Service) StopReceivingMessage(ctx context.Context) {
	s.mu.Lock()
	token := s.activeRequestID
	s.mu.Unlock()

	if token != "" {
		if err := s.provider.StopReceivingMessage(ctx, token); err != nil {
			s.logger.Error("cancelling request", "token", token, "error", err)
		}
	}
	s.resetOngoingRequest()
}

// ResendMessage redispatches an existing message, optionally under a
// different model. The message keeps its id; the backend treats it as an
// update rather than a new turn.
func (s *Service) ResendMessage(ctx context.Context, id, modelID, modelProviderName string) error {
	if _, ok := s.memory.Get(id); !ok {
		return nil
	}

	s.mu.Lock()
	last := s.lastUserRequest
	skills := s.lastSkills
	if last == nil {
		s.mu.Unlock()
		return nil
	}
	// Free the slot so the resend can reserve it. The old token is dead:
	// unregister it and dismiss anything still waiting on the old request.
	token := s.activeRequestID
	s.activeRequestID = ""
	s.isReceiving = false
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

	if modelID == "" {
		modelID = last.Model
	}
	return s.Send(ctx, id, last.Content, SendOptions{
		ContentImages:     last.ContentImages,
		ImageReferences:   last.ImageReferences,
		Skills:            skills,
		References:        last.References,
		Model:             modelID,
		ModelProviderName: modelProviderName,
		AgentMode:         last.AgentMode,
		UserLanguage:      last.UserLanguage,
		TurnID:            id,
	})
}

// SendAndWait sends a message and blocks until the turn ends, returning the
// assistant's reply text.
func (s *Service) SendAndWait(ctx context.Context, id, content string) (string, error) {
	changed, unsubscribe := s.memory.Subscribe()
	defer unsubscribe()

	if err := s.Send(ctx, id, content, SendOptions{}); err != nil {
		return "", err
	}

	for s.ActiveRequestID() != "" {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-changed:
		}
	}

	if reply, ok := s.memory.LastWhere(func(m chat.ChatMessage) bool { return m.Role == chat.RoleAssistant }); ok {
		return reply.Content, nil
	}
	return "", nil
}

// DeleteMessages removes messages locally, from the backend, and from the
// store. Per-turn backend failures are logged and do not abort the batch.
func (s *Service) DeleteMessages(ctx context.Context, ids []string) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	turnIDs := make(map[string]bool)
	for _, msg := range s.memory.History() {
		if wanted[msg.ID] && msg.TurnID != "" {
			turnIDs[msg.TurnID] = true
		}
	}

	s.memory.RemoveMessages(ids)

	s.mu.Lock()
	conversationID := s.conversationID
	s.mu.Unlock()
	if conversationID != "" {
		for turnID := range turnIDs {
			if err := s.provider.DeleteTurn(ctx, conversationID, turnID); err != nil {
				s.logger.Error("deleting turn", "turnId", turnID, "error", err)
			}
		}
	}

	s.deleteMessages(ids)
}

// ClearHistory wipes the tab: memory, backend stream, and stored messages.
func (s *Service) ClearHistory(ctx context.Context) {
	history := s.memory.History()
	ids := make([]string, len(history))
	for i, msg := range history {
		ids[i] = msg.ID
	}

	s.memory.Clear()

	s.mu.Lock()
	token := s.activeRequestID
	s.mu.Unlock()
	if token != "" {
		if err := s.provider.StopReceivingMessage(ctx, token); err != nil {
			s.logger.Error("cancelling request", "token", token, "error", err)
		}
	}

	s.deleteMessages(ids)
	s.resetOngoingRequest()
}

// Upvote rates a turn positively. Rating failures are logged, not surfaced.
func (s *Service) Upvote(ctx context.Context, turnID string) {
	s.rate(ctx, turnID, provider.RatingUp, chat.RatingUp)
}

// Downvote rates a turn negatively.
func (s *Service) Downvote(ctx context.Context, turnID string) {
	s.rate(ctx, turnID, provider.RatingDown, chat.RatingDown)
}

func (s *Service) rate(ctx context.Context, turnID string, rating provider.Rating, local chat.Rating) {
	if err := s.provider.RateConversation(ctx, turnID, rating); err != nil {
		s.logger.Error("rating conversation", "turnId", turnID, "error", err)
		return
	}
	s.memory.MutateHistory(func(history []chat.ChatMessage) []chat.ChatMessage {
		for i := range history {
			if history[i].ID == turnID {
				history[i].Rating = local
			}
		}
		return history
	})
}

// CopyCode reports copy telemetry for a turn's code block.
func (s *Service) CopyCode(ctx context.Context, req provider.CopyCodeRequest) {
	if err := s.provider.CopyCode(ctx, req); err != nil {
		s.logger.Error("reporting code copy", "turnId", req.TurnID, "error", err)
	}
}

// MutateHistory applies a caller-supplied mutation to the message log.
func (s *Service) MutateHistory(mutator func([]chat.ChatMessage) []chat.ChatMessage) {
	s.memory.MutateHistory(mutator)
}

// SetMessageAsExtraPrompt re-appends an existing message's content as a fresh
// assistant message, so it rides along as context for the next request.
func (s *Service) SetMessageAsExtraPrompt(id string) {
	msg, ok := s.memory.Get(id)
	if !ok {
		return
	}
	extra := chat.NewAssistantMessage(s.ids(), s.tab.ID)
	extra.Content = msg.Content
	s.memory.AppendMessage(extra)
	s.saveMessage(extra)
}

// RestoreIfNeeded loads persisted history into memory, once per tab lifetime.
func (s *Service) RestoreIfNeeded(ctx context.Context) error {
	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return nil
	}
	s.restored = true
	s.mu.Unlock()

	stored, err := s.store.GetAll(ctx, s.tab.ID, s.tab.Meta())
	if err != nil {
		return fmt.Errorf("restoring history: %w", err)
	}
	if len(stored) == 0 {
		return nil
	}
	s.memory.MutateHistory(func(history []chat.ChatMessage) []chat.ChatMessage {
		return append(history, stored...)
	})
	return nil
}

// ExportTranscriptHTML renders the current history as an HTML document.
func (s *Service) ExportTranscriptHTML() (string, error) {
	var b strings.Builder
	for _, msg := range s.memory.History() {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", msg.Role, msg.Content)
		for _, errText := range msg.ErrorMessages {
			fmt.Fprintf(&b, "> %s\n\n", errText)
		}
	}
	return release.RenderHTML(b.String())
}

// saveMessage persists off the critical path. Double-persisting is harmless;
// the store upserts by id.
func (s *Service) saveMessage(msg chat.ChatMessage) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.store.Save(ctx, msg, s.tab.Meta()); err != nil {
			s.logger.Error("persisting message", "id", msg.ID, "error", err)
		}
	}()
}

func (s *Service) deleteMessages(ids []string) {
	if len(ids) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.store.DeleteAll(ctx, ids, s.tab.Meta()); err != nil {
			s.logger.Error("deleting stored messages", "error", err)
		}
	}()
}

func findSkill(skills []Skill, id string) *Skill {
	for i := range skills {
		if skills[i].ID == id {
			return &skills[i]
		}
	}
	return nil
}

func removeSkills(skills []Skill, ids ...string) []Skill {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []Skill
	for _, sk := range skills {
		if !drop[sk.ID] {
			kept = append(kept, sk)
		}
	}
	return kept
}

// checkFileReadability reports whether the active file's content can be sent
// along, and the user-facing explanation when it cannot.
func checkFileReadability(path string) (bool, string) {
	if path == "" {
		return false, "No active file is selected, so file context was not included."
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("The current file does not exist: %s. Its content was not included in the request.", path)
		}
		return false, fmt.Sprintf("The current file is not readable: %s. Its content was not included in the request.", path)
	}
	f.Close()
	return true, ""
}

func replaceFirstWord(content, from, to string) string {
	if content == from {
		return to
	}
	if strings.HasPrefix(content, from+" ") {
		return to + content[len(from):]
	}
	return content
}

func fileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs
}
