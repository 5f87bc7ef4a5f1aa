// Package provider is the client for the remote conversation backend.
//
// The backend is a language service spoken to over JSON-RPC. Outgoing
// operations (create a conversation, add a turn, rate, delete, catalog
// queries) are ordinary calls; replies to a conversation arrive separately as
// work-done progress notifications correlated by token, which the client
// forwards to a progress.Dispatcher. The backend also initiates tool
// invocation and confirmation requests, which the client hands to the
// registered ToolHandler.
//
// ConversationProvider is the interface the session layer programs against;
// Client is the wire implementation and MockProvider the test double.
package provider
