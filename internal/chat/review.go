// ABOUTME: Code review round state machine and its request/response payloads
// ABOUTME: Illegal status transitions are rejected as no-ops to tolerate duplicate UI events

package chat

// ReviewStatus is the state of a code review round.
type ReviewStatus string

const (
	ReviewStatusWaitForConfirmation ReviewStatus = "waitForConfirmation"
	ReviewStatusAccepted            ReviewStatus = "accepted"
	ReviewStatusRunning             ReviewStatus = "running"
	ReviewStatusCompleted           ReviewStatus = "completed"
	ReviewStatusError               ReviewStatus = "error"
	ReviewStatusCancelled           ReviewStatus = "cancelled"
)

// CanTransitionTo reports whether moving from s to next is legal.
// The happy path is waitForConfirmation → accepted → running → completed;
// cancelled and error are reachable from every non-terminal state.
func (s ReviewStatus) CanTransitionTo(next ReviewStatus) bool {
	switch s {
	case ReviewStatusWaitForConfirmation:
		return next == ReviewStatusAccepted || next == ReviewStatusCancelled || next == ReviewStatusError
	case ReviewStatusAccepted:
		return next == ReviewStatusRunning || next == ReviewStatusCancelled || next == ReviewStatusError
	case ReviewStatusRunning:
		return next == ReviewStatusCompleted || next == ReviewStatusCancelled || next == ReviewStatusError
	}
	return false
}

// ReviewChange is one file's diff within a review request.
type ReviewChange struct {
	URI         string `json:"uri"`
	Path        string `json:"path"`
	BaseContent string `json:"baseContent"` // empty for a new file
	HeadContent string `json:"headContent"` // empty for a deleted file
	Selected    bool   `json:"selected"`
}

// CodeReviewRequest carries the candidate file diffs for a review round.
type CodeReviewRequest struct {
	Changes []ReviewChange `json:"changes"`
}

// SelectChanges narrows the request to the given file URIs.
func (r *CodeReviewRequest) SelectChanges(uris []string) {
	selected := make(map[string]bool, len(uris))
	for _, uri := range uris {
		selected[uri] = true
	}
	for i := range r.Changes {
		r.Changes[i].Selected = selected[r.Changes[i].URI]
	}
}

// SelectedChanges returns only the changes chosen for review.
func (r *CodeReviewRequest) SelectedChanges() []ReviewChange {
	var out []ReviewChange
	for _, c := range r.Changes {
		if c.Selected {
			out = append(out, c)
		}
	}
	return out
}

// ReviewPosition is a zero-based line/character position.
type ReviewPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// ReviewRange is the span a review comment applies to.
type ReviewRange struct {
	Start ReviewPosition `json:"start"`
	End   ReviewPosition `json:"end"`
}

// ReviewComment is a single finding returned by the reviewer.
type ReviewComment struct {
	ID         string      `json:"id"`
	URI        string      `json:"uri"`
	Range      ReviewRange `json:"range"`
	Message    string      `json:"message"`
	Kind       string      `json:"kind"`     // bug, performance, consistency, documentation, naming, readability, style, other
	Severity   string      `json:"severity"` // low, medium, high
	Suggestion string      `json:"suggestion,omitempty"`
}

// CodeReviewResponse carries the comments produced by a completed review.
type CodeReviewResponse struct {
	FileComments []ReviewComment `json:"fileComments"`
}

// CodeReviewRound is one code-review workflow instance attached to a turn.
type CodeReviewRound struct {
	TurnID       string              `json:"turnId"`
	Status       ReviewStatus        `json:"status"`
	Request      *CodeReviewRequest  `json:"request,omitempty"`
	Response     *CodeReviewResponse `json:"response,omitempty"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
}

// NewErrorReviewRound creates a round that failed before confirmation.
func NewErrorReviewRound(turnID, message string) CodeReviewRound {
	return CodeReviewRound{
		TurnID:       turnID,
		Status:       ReviewStatusError,
		ErrorMessage: message,
	}
}

// WithError returns a copy of the round transitioned to error with a message.
func (r CodeReviewRound) WithError(message string) CodeReviewRound {
	r.Status = ReviewStatusError
	r.ErrorMessage = message
	return r
}

// WithResponse returns a copy of the round carrying the review results.
func (r CodeReviewRound) WithResponse(resp CodeReviewResponse) CodeReviewRound {
	r.Response = &resp
	return r
}
