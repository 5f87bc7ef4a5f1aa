// ABOUTME: Code review sub-session: request, accept, cancel
// ABOUTME: Reuses the single active-request slot; rounds advance through an explicit state machine

package session

import (
	"context"

	"github.com/2389/parley/internal/chat"
	"github.com/2389/parley/internal/review"
)

// RequestCodeReview opens a review round for the staged or unstaged changes.
// Guarded by the same at-most-one-active-request invariant as Send.
func (s *Service) RequestCodeReview(ctx context.Context, group review.DiffGroup) error {
	s.mu.Lock()
	if s.activeRequestID != "" {
		s.mu.Unlock()
		return nil
	}
	s.activeRequestID = s.ids()
	s.isReceiving = true
	s.requestType = chat.RequestTypeCodeReview
	s.mu.Unlock()

	s.comments.ResetComments()

	turnID := s.ids()

	scope := "unstaged"
	if group == review.DiffGroupStaged {
		scope = "staged"
	}
	userMsg := chat.NewUserMessage(s.ids(), s.tab.ID, "Code review for "+scope+" changes.")
	userMsg.TurnID = turnID
	userMsg.RequestType = chat.RequestTypeCodeReview
	s.memory.AppendMessage(userMsg)
	s.saveMessage(userMsg)

	placeholder := chat.NewAssistantMessage(turnID, s.tab.ID)
	placeholder.RequestType = chat.RequestTypeCodeReview
	s.memory.AppendMessage(placeholder)

	root, err := s.diffs.ProjectRoot(ctx, s.tab.WorkspacePath)
	if err != nil || root == "" {
		s.appendReviewRound(chat.NewErrorReviewRound(turnID, "Invalid git repository."))
		s.resetOngoingRequest()
		return nil
	}

	changes, err := s.diffs.Changes(ctx, root, group)
	if err != nil {
		s.resetOngoingRequest()
		return err
	}
	if len(changes) == 0 {
		message := "No unstaged changes found to review."
		if group == review.DiffGroupStaged {
			message = "No staged changes found to review."
		}
		s.appendReviewRound(chat.NewErrorReviewRound(turnID, message))
		s.resetOngoingRequest()
		return nil
	}

	s.appendReviewRound(chat.CodeReviewRound{
		TurnID:  turnID,
		Status:  chat.ReviewStatusWaitForConfirmation,
		Request: &chat.CodeReviewRequest{Changes: changes},
	})
	return nil
}

// AcceptCodeReview runs the review over the selected files. An empty
// selection errors the round without contacting the backend.
func (s *Service) AcceptCodeReview(ctx context.Context, id string, selectedFileURIs []string) {
	s.mu.Lock()
	active := s.activeRequestID != "" && s.isReceiving
	s.mu.Unlock()
	if !active {
		return
	}

	round, ok := s.currentReviewRound(id)
	if !ok || round.Request == nil || !round.Status.CanTransitionTo(chat.ReviewStatusAccepted) {
		return
	}

	if len(selectedFileURIs) == 0 {
		s.appendReviewRound(round.WithError("No files are selected to review."))
		s.resetOngoingRequest()
		return
	}

	round.Status = chat.ReviewStatusAccepted
	round.Request.SelectChanges(selectedFileURIs)
	s.appendReviewRound(round)

	round.Status = chat.ReviewStatusRunning
	s.appendReviewRound(round)

	resp, err := s.provider.ReviewChanges(ctx, round.Request.SelectedChanges())
	if err != nil {
		s.appendReviewRound(round.WithError(err.Error()))
		s.resetOngoingRequest()
		return
	}

	round = round.WithResponse(resp)
	s.comments.UpdateComments(resp.FileComments)
	s.appendReviewRound(round)

	round.Status = chat.ReviewStatusCompleted
	s.appendReviewRound(round)

	s.resetOngoingRequest()
}

// CancelCodeReview abandons a cancellable round.
func (s *Service) CancelCodeReview(id string) {
	s.mu.Lock()
	active := s.activeRequestID != "" && s.isReceiving
	s.mu.Unlock()
	if !active {
		return
	}

	round, ok := s.currentReviewRound(id)
	if !ok || !round.Status.CanTransitionTo(chat.ReviewStatusCancelled) {
		return
	}

	round.Status = chat.ReviewStatusCancelled
	s.appendReviewRound(round)
	s.resetOngoingRequest()
}

// currentReviewRound returns the round on the last assistant message when it
// matches the given id.
func (s *Service) currentReviewRound(id string) (chat.CodeReviewRound, bool) {
	last, ok := s.memory.Last()
	if !ok || last.Role != chat.RoleAssistant || last.CodeReviewRound == nil || last.CodeReviewRound.TurnID != id {
		return chat.CodeReviewRound{}, false
	}
	return *last.CodeReviewRound, true
}

func (s *Service) appendReviewRound(round chat.CodeReviewRound) {
	msg := chat.NewAssistantMessage(round.TurnID, s.tab.ID)
	msg.RequestType = chat.RequestTypeCodeReview
	r := round
	msg.CodeReviewRound = &r
	s.memory.AppendMessage(msg)
}
