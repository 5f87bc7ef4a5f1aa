// ABOUTME: JSON-RPC 2.0 message types shared by the codec and its consumers
// ABOUTME: IDs are opaque raw JSON so number and string ids round-trip untouched

package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC protocol version carried on every message.
const Version = "2.0"

// Well-known JSON-RPC error codes.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ID is an opaque JSON-RPC request id. Both numeric and string ids are
// preserved byte-for-byte.
type ID struct {
	raw json.RawMessage
}

// NewIntID creates a numeric id.
func NewIntID(n int64) ID {
	return ID{raw: json.RawMessage(fmt.Sprintf("%d", n))}
}

// IsZero reports whether the id is unset (a notification).
func (id ID) IsZero() bool { return len(id.raw) == 0 }

// String returns the raw id text for logging.
func (id ID) String() string { return string(id.raw) }

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	id.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Message is the wire representation of any JSON-RPC message. Requests carry
// Method (+ ID unless a notification); responses carry Result or Error.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsRequest reports whether the message is a request or notification.
func (m *Message) IsRequest() bool { return m.Method != "" }

// IsNotification reports whether the message is a request without an id.
func (m *Message) IsNotification() bool { return m.Method != "" && m.ID.IsZero() }

// Error is a JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}
