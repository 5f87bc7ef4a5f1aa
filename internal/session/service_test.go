// ABOUTME: Tests for the session request lifecycle
// ABOUTME: Covers the at-most-one-request invariant, request building, and the send surface

package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/memory"
	"github.com/2389/parley/internal/model"
	"github.com/2389/parley/internal/progress"
	"github.com/2389/parley/internal/provider"
	"github.com/2389/parley/internal/review"
	"github.com/2389/parley/internal/status"
	"github.com/2389/parley/internal/store"
	"github.com/2389/parley/internal/tool"
)

type fixture struct {
	service    *Service
	provider   *provider.MockProvider
	store      *store.MockStore
	tracker    *status.Tracker
	catalog    *model.Catalog
	comments   *review.CommentService
	dispatcher *progress.Dispatcher
}

func sequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mockProvider := &provider.MockProvider{}
	mockStore := store.NewMockStore()
	tracker := status.NewTracker()
	catalog := model.NewCatalog(nil)
	comments := review.NewCommentService()
	dispatcher := progress.NewDispatcher(nil)

	svc := NewService(Deps{
		Tab:        TabInfo{ID: "tab-1", WorkspacePath: t.TempDir(), Username: "alice"},
		Provider:   mockProvider,
		Memory:     memory.New(nil),
		Store:      mockStore,
		Dispatcher: dispatcher,
		Registry:   tool.NewRegistry(tool.DefaultManifest()),
		Catalog:    catalog,
		Tracker:    tracker,
		Comments:   comments,
		Diffs:      review.NewDiffCollector(),
		IDs:        sequentialIDs("gen"),
	})
	return &fixture{
		service:    svc,
		provider:   mockProvider,
		store:      mockStore,
		tracker:    tracker,
		catalog:    catalog,
		comments:   comments,
		dispatcher: dispatcher,
	}
}

func (f *fixture) send(t *testing.T, id, content string) string {
	t.Helper()
	require.NoError(t, f.service.Send(context.Background(), id, content, SendOptions{}))
	token := f.service.ActiveRequestID()
	require.NotEmpty(t, token)
	return token
}

func TestSend_AppendsUserMessageAndDispatches(t *testing.T) {
	f := newFixture(t)
	f.send(t, "m1", "Hello")

	history := f.service.Memory().History()
	require.Len(t, history, 1)
	assert.Equal(t, chat.RoleUser, history[0].Role)
	assert.Equal(t, "Hello", history[0].Content)

	require.Len(t, f.provider.CreatedConversations, 1)
	req := f.provider.CreatedConversations[0]
	assert.Equal(t, "Hello", req.Content)
	assert.NotEmpty(t, req.WorkDoneToken)
	assert.True(t, f.service.IsReceiving())
}

func TestSend_SecondConcurrentSendIsNoop(t *testing.T) {
	f := newFixture(t)
	f.send(t, "m1", "first")

	require.NoError(t, f.service.Send(context.Background(), "m2", "second", SendOptions{}))

	assert.Equal(t, 1, f.service.Memory().Len(), "history length unchanged")
	assert.Equal(t, 1, f.provider.TurnCount(), "no new backend call issued")
}

func TestSend_DispatchFailureResetsAndPropagates(t *testing.T) {
	f := newFixture(t)
	f.provider.CreateConversationErr = errors.New("transport down")

	err := f.service.Send(context.Background(), "m1", "Hello", SendOptions{})
	require.Error(t, err)
	assert.Empty(t, f.service.ActiveRequestID())
	assert.False(t, f.service.IsReceiving())
}

func TestSend_RewritesWorkspaceMentionAndReportsIgnoredSkills(t *testing.T) {
	f := newFixture(t)
	f.send(t, "m1", "@workspace how does auth work?")

	req, ok := f.provider.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "@project how does auth work?", req.Content)
	assert.Equal(t, skillCapabilities, req.Skills)
	assert.ElementsMatch(t, []string{SkillCurrentEditor, SkillProblemsInActiveDocument}, req.IgnoredSkills)
	assert.Nil(t, req.ActiveDoc)
}

func TestSend_ReadableActiveFileAttachesDocument(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.service.WorkspaceRoot(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main"), 0o644))

	require.NoError(t, f.service.Send(context.Background(), "m1", "explain", SendOptions{
		Skills: []Skill{{ID: SkillCurrentEditor, FilePath: path}, {ID: SkillProblemsInActiveDocument}},
	}))

	req, ok := f.provider.LastRequest()
	require.True(t, ok)
	require.NotNil(t, req.ActiveDoc)
	assert.Contains(t, req.ActiveDoc.URI, "main.go")
	assert.Empty(t, req.IgnoredSkills)

	// No readability error companion.
	assert.Equal(t, 1, f.service.Memory().Len())
}

func TestSend_UnreadableActiveFileSynthesizesErrorCompanion(t *testing.T) {
	f := newFixture(t)
	missing := filepath.Join(f.service.WorkspaceRoot(), "gone.go")

	require.NoError(t, f.service.Send(context.Background(), "m1", "explain", SendOptions{
		Skills: []Skill{{ID: SkillCurrentEditor, FilePath: missing}},
	}))

	history := f.service.Memory().History()
	require.Len(t, history, 2)
	assert.Equal(t, chat.RoleUser, history[0].Role)
	assert.NotEmpty(t, history[0].TurnID, "user message carries provisional turn id")
	require.Len(t, history[1].ErrorMessages, 1)
	assert.Equal(t, history[0].TurnID, history[1].TurnID, "error message shares the turn id")

	// The editor skills were stripped, so the doc was not attached.
	req, ok := f.provider.LastRequest()
	require.True(t, ok)
	assert.Nil(t, req.ActiveDoc)
	assert.ElementsMatch(t, []string{SkillCurrentEditor, SkillProblemsInActiveDocument}, req.IgnoredSkills)
}

func TestSend_ReleaseNotesShortCircuits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service.Send(context.Background(), "m1", "/releaseNotes", SendOptions{}))

	history := f.service.Memory().History()
	require.Len(t, history, 2)
	assert.Contains(t, history[1].Content, "What's New")

	assert.Zero(t, f.provider.TurnCount(), "backend not contacted")
	assert.Empty(t, f.service.ActiveRequestID())
}

func TestSend_ResumedConversationCarriesPriorTurns(t *testing.T) {
	f := newFixture(t)

	// A restored tab: prior exchange in memory, but no backend conversation.
	user := chat.NewUserMessage("old-1", "tab-1", "earlier question")
	user.TurnID = "t-old"
	f.service.Memory().AppendMessage(user)
	assistant := chat.NewAssistantMessage("t-old", "tab-1")
	assistant.Content = "earlier answer"
	f.service.Memory().AppendMessage(assistant)

	f.send(t, "m1", "follow-up")

	require.Len(t, f.provider.CreatedConversations, 1)
	req := f.provider.CreatedConversations[0]
	require.Len(t, req.Turns, 1)
	assert.Equal(t, "earlier question", req.Turns[0].Request)
	assert.Equal(t, "earlier answer", req.Turns[0].Response)
}

func TestSend_KnownConversationUsesCreateTurn(t *testing.T) {
	f := newFixture(t)
	token := f.send(t, "m1", "Hello")
	f.service.HandleBegin(token, progress.Begin{ConversationID: "conv-1", TurnID: "t1"})
	f.service.HandleEnd(token, progress.End{TurnID: "t1"})

	f.send(t, "m2", "and another thing")

	require.Len(t, f.provider.CreatedTurns, 1)
	assert.Equal(t, "conv-1", f.provider.CreatedTurns[0].ConversationID)
}

func TestSend_ImageReferencesTakePrecedence(t *testing.T) {
	f := newFixture(t)
	refs := []chat.ImageReference{{Data: []byte{1, 2, 3}, Source: chat.ImageSourcePasted}}

	require.NoError(t, f.service.Send(context.Background(), "m1", "look", SendOptions{
		ImageReferences: refs,
		ContentImages:   []chat.ContentImage{{URL: "inline-should-lose"}},
	}))

	req, ok := f.provider.LastRequest()
	require.True(t, ok)
	require.Len(t, req.ContentImages, 1)
	assert.True(t, strings.HasPrefix(req.ContentImages[0].URL, "data:image/png;base64,"))

	history := f.service.Memory().History()
	require.Len(t, history[0].ImageReferences, 1)
}

func TestResendMessage_ReusesRequestUnderSameID(t *testing.T) {
	f := newFixture(t)
	token := f.send(t, "m1", "Hello")
	f.service.HandleBegin(token, progress.Begin{ConversationID: "conv-1", TurnID: "t1"})
	f.service.HandleEnd(token, progress.End{TurnID: "t1"})

	require.NoError(t, f.service.ResendMessage(context.Background(), "m1", "gpt-large", ""))

	require.Len(t, f.provider.CreatedTurns, 1)
	req := f.provider.CreatedTurns[0].Request
	assert.Equal(t, "Hello", req.Content)
	assert.Equal(t, "gpt-large", req.Model)
	assert.Equal(t, "m1", req.TurnID, "resend updates in place")

	assert.Equal(t, 2, f.service.Memory().Len(), "no duplicate user message")
}

func TestResendMessage_UnknownIDIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service.ResendMessage(context.Background(), "ghost", "", ""))
	assert.Zero(t, f.provider.TurnCount())
}

func TestStopReceivingMessage_CancelsAndResets(t *testing.T) {
	f := newFixture(t)
	token := f.send(t, "m1", "Hello")

	f.service.StopReceivingMessage(context.Background())

	assert.Equal(t, []string{token}, f.provider.StoppedTokens)
	assert.Empty(t, f.service.ActiveRequestID())
	assert.False(t, f.service.IsReceiving())
}

func TestDeleteMessages_RemovesEverywhere(t *testing.T) {
	f := newFixture(t)
	token := f.send(t, "m1", "Hello")
	f.service.HandleBegin(token, progress.Begin{ConversationID: "conv-1", TurnID: "t1"})
	f.service.HandleReport(token, progress.Report{TurnID: "t1", Reply: "Hi"})
	f.service.HandleEnd(token, progress.End{TurnID: "t1"})

	require.Equal(t, 2, f.service.Memory().Len())
	// Let the fire-and-forget saves land before deleting.
	require.Eventually(t, func() bool { return f.store.Count() == 2 }, time.Second, 10*time.Millisecond)

	f.service.DeleteMessages(context.Background(), []string{"m1", "t1"})

	assert.Zero(t, f.service.Memory().Len())
	require.Len(t, f.provider.DeletedTurns, 1)
	assert.Equal(t, "t1", f.provider.DeletedTurns[0].TurnID)

	require.Eventually(t, func() bool { return f.store.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestClearHistory_WipesTabAndCancels(t *testing.T) {
	f := newFixture(t)
	token := f.send(t, "m1", "Hello")
	require.Eventually(t, func() bool { return f.store.Count() == 1 }, time.Second, 10*time.Millisecond)

	f.service.ClearHistory(context.Background())

	assert.Zero(t, f.service.Memory().Len())
	assert.Equal(t, []string{token}, f.provider.StoppedTokens)
	assert.Empty(t, f.service.ActiveRequestID())
	require.Eventually(t, func() bool { return f.store.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestVoting_RecordsRating(t *testing.T) {
	f := newFixture(t)
	token := f.send(t, "m1", "Hello")
	f.service.HandleBegin(token, progress.Begin{ConversationID: "conv-1", TurnID: "t1"})
	f.service.HandleEnd(token, progress.End{TurnID: "t1"})

	f.service.Upvote(context.Background(), "t1")
	assert.Equal(t, provider.RatingUp, f.provider.Ratings["t1"])

	msg, ok := f.service.Memory().Get("t1")
	require.True(t, ok)
	assert.Equal(t, chat.RatingUp, msg.Rating)
}

func TestCopyCode_ReportsTelemetry(t *testing.T) {
	f := newFixture(t)
	f.service.CopyCode(context.Background(), provider.CopyCodeRequest{TurnID: "t1", CopiedText: "fmt.Println"})
	require.Len(t, f.provider.CopyCodeRequests, 1)
	assert.Equal(t, "t1", f.provider.CopyCodeRequests[0].TurnID)
}

func TestRestoreIfNeeded_LoadsOncePerLifetime(t *testing.T) {
	f := newFixture(t)
	meta := store.Metadata{WorkspacePath: f.service.WorkspaceRoot(), Username: "alice"}
	require.NoError(t, f.store.Save(context.Background(), chat.NewUserMessage("m1", "tab-1", "stored"), meta))

	require.NoError(t, f.service.RestoreIfNeeded(context.Background()))
	assert.Equal(t, 1, f.service.Memory().Len())

	require.NoError(t, f.service.RestoreIfNeeded(context.Background()))
	assert.Equal(t, 1, f.service.Memory().Len(), "second restore is a no-op")
}

func TestSendAndWait_ReturnsReply(t *testing.T) {
	f := newFixture(t)

	go func() {
		var token string
		require.Eventually(t, func() bool {
			token = f.service.ActiveRequestID()
			return token != ""
		}, time.Second, time.Millisecond)
		f.service.HandleBegin(token, progress.Begin{ConversationID: "conv-1", TurnID: "t1"})
		f.service.HandleReport(token, progress.Report{TurnID: "t1", Reply: "Hi there"})
		f.service.HandleEnd(token, progress.End{TurnID: "t1"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := f.service.SendAndWait(ctx, "m1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)
}

func TestSetMessageAsExtraPrompt_AppendsCopy(t *testing.T) {
	f := newFixture(t)
	f.service.Memory().AppendMessage(chat.NewUserMessage("m1", "tab-1", "remember this"))

	f.service.SetMessageAsExtraPrompt("m1")

	history := f.service.Memory().History()
	require.Len(t, history, 2)
	assert.Equal(t, chat.RoleAssistant, history[1].Role)
	assert.Equal(t, "remember this", history[1].Content)
}

func TestExportTranscriptHTML(t *testing.T) {
	f := newFixture(t)
	f.service.Memory().AppendMessage(chat.NewUserMessage("m1", "tab-1", "Hello **world**"))

	html, err := f.service.ExportTranscriptHTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>world</strong>")
}
