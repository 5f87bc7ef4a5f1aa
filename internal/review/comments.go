// ABOUTME: Shared sink for reviewer comments
// ABOUTME: The session publishes accepted review results; consumers watch for changes

package review

import (
	"sync"

	"github.com/2389/parley/internal/chat"
)

// CommentService holds the comments of the most recent completed review.
// Safe for concurrent use.
type CommentService struct {
	mu       sync.Mutex
	comments []chat.ReviewComment
	watchers []func([]chat.ReviewComment)
}

func NewCommentService() *CommentService {
	return &CommentService{}
}

// ResetComments clears the sink at the start of a new review.
func (s *CommentService) ResetComments() {
	s.publish(nil)
}

// UpdateComments replaces the published comments.
func (s *CommentService) UpdateComments(comments []chat.ReviewComment) {
	s.publish(append([]chat.ReviewComment(nil), comments...))
}

// Comments returns a copy of the current comments.
func (s *CommentService) Comments() []chat.ReviewComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.ReviewComment(nil), s.comments...)
}

// Watch registers a callback invoked whenever the comments change.
func (s *CommentService) Watch(fn func([]chat.ReviewComment)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *CommentService) publish(comments []chat.ReviewComment) {
	s.mu.Lock()
	s.comments = comments
	watchers := append(([]func([]chat.ReviewComment))(nil), s.watchers...)
	s.mu.Unlock()

	for _, w := range watchers {
		w(comments)
	}
}
