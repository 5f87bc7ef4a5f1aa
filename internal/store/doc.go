// Package store provides durable persistence for chat messages.
//
// Messages are scoped by (workspace, username) metadata plus the owning tab
// id, and stored as JSON payload rows in SQLite. Save is an idempotent upsert
// by message id: the session persists messages fire-and-forget after every
// mutation worth surviving a restart, and re-saving the same message simply
// replaces the stored payload.
//
// MockStore provides an in-memory implementation for tests.
package store
