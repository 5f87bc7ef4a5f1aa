// Package chat defines the conversation data model shared across the engine.
//
// # Overview
//
// The chat package holds the types that flow between the session, the
// in-memory history, the persistence layer, and the backend provider:
//
//   - ChatMessage: one turn's content, mutated in place as progress arrives
//   - AgentRound / AgentToolCall: tool-use rounds within an assistant turn
//   - CodeReviewRound: the code-review workflow's explicit state machine
//   - ConversationReference / ImageReference: attached context
//   - FileEdit: file modifications performed by client tools
//
// # Message identity
//
// Every message carries a client-assigned ID and, once the backend has
// acknowledged the turn, a backend TurnID. For assistant messages the two are
// equal; a user message's TurnID is stamped retroactively when the backend
// begins the corresponding turn.
//
// # Merging
//
// Progress reports arrive as partial messages under the same turn id. Merge
// folds a partial message into an existing one: non-empty scalar fields
// replace, rounds merge by round id, and tool calls merge by tool-call id.
//
// # State machines
//
// AgentToolCall and CodeReviewRound statuses only move forward. Transition
// legality is an explicit predicate (CanTransitionTo); illegal transitions are
// rejected as no-ops so duplicate UI events are harmless.
package chat
