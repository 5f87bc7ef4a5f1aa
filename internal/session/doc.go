// Package session orchestrates one chat conversation per tab.
//
// The Service owns the single active-request slot for its tab. Send reserves
// a correlation token, appends the user message to memory, and dispatches to
// the backend; replies stream back as progress notifications which the
// service reconciles into the in-memory history and persists asynchronously.
// The same request slot also carries the code-review workflow and mediates
// backend-initiated tool calls, including the confirmation handshake for
// tools that need user approval.
//
// Concurrency contract: at most one request (conversation or code review) is
// in flight per tab. A Send or RequestCodeReview issued while one is active
// is silently dropped, never queued. All slot state is guarded by one mutex;
// persistence happens off the critical path with its own timeout.
package session
