// Package rpc implements the JSON-RPC 2.0 framing used to talk to the
// backend language service.
//
// Messages are framed with LSP-style Content-Length headers over any byte
// stream (stdio pipe, TCP, unix socket). The Conn correlates outgoing calls
// to responses by request id, and hands incoming server-initiated requests
// (tool invocations, progress notifications) to a registered Handler.
package rpc
