// ABOUTME: Bidirectional JSON-RPC connection with LSP Content-Length framing
// ABOUTME: Correlates outgoing calls by id and dispatches incoming server requests

package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrConnClosed is returned for calls issued after the connection closed.
var ErrConnClosed = errors.New("rpc connection closed")

// Handler processes incoming requests and notifications from the peer.
// For requests (non-zero id) the handler must eventually call conn.Reply.
type Handler func(conn *Conn, msg *Message)

// Conn is a bidirectional JSON-RPC connection over a byte stream, framed with
// LSP-style Content-Length headers. Outgoing calls are correlated to their
// responses by id; incoming requests are handed to the registered Handler.
type Conn struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *Message
	closed  bool

	nextID  atomic.Int64
	handler Handler
	logger  *slog.Logger
}

// NewConn creates a connection over rwc. The read loop starts when Serve is
// called. Pass nil logger for default.
func NewConn(rwc io.ReadWriteCloser, handler Handler, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		rwc:     rwc,
		reader:  bufio.NewReader(rwc),
		pending: make(map[string]chan *Message),
		handler: handler,
		logger:  logger.With("component", "rpc"),
	}
}

// Serve runs the read loop until the stream ends or the connection closes.
// It returns the terminal read error, or nil on clean EOF.
func (c *Conn) Serve() error {
	defer c.Close()

	for {
		msg, err := c.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		if msg.IsRequest() {
			if c.handler != nil {
				c.handler(c, msg)
			} else if !msg.IsNotification() {
				_ = c.Reply(msg.ID, nil, &Error{Code: CodeMethodNotFound, Message: "no handler registered"})
			}
			continue
		}

		c.routeResponse(msg)
	}
}

// routeResponse delivers a response to the pending call that issued it.
// Responses for unknown ids are logged and discarded.
func (c *Conn) routeResponse(msg *Message) {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID.String()]
	if ok {
		delete(c.pending, msg.ID.String())
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("received response for unknown request", "id", msg.ID.String())
		return
	}
	ch <- msg
}

// Call issues a request and decodes the peer's result into result (which may
// be nil to discard it). A JSON-RPC error response is returned as *Error.
func (c *Conn) Call(ctx context.Context, method string, params, result any) error {
	id := NewIntID(c.nextID.Add(1))

	ch := make(chan *Message, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	c.pending[id.String()] = ch
	c.mu.Unlock()

	if err := c.send(&Message{JSONRPC: Version, ID: id, Method: method, Params: marshalParams(params)}); err != nil {
		c.mu.Lock()
		delete(c.pending, id.String())
		c.mu.Unlock()
		return err
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id.String())
		c.mu.Unlock()
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return ErrConnClosed
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decoding result for %s: %w", method, err)
			}
		}
		return nil
	}
}

// Notify sends a notification (no response expected).
func (c *Conn) Notify(method string, params any) error {
	return c.send(&Message{JSONRPC: Version, Method: method, Params: marshalParams(params)})
}

// Reply answers an incoming request from the peer.
func (c *Conn) Reply(id ID, result any, rpcErr *Error) error {
	msg := &Message{JSONRPC: Version, ID: id, Error: rpcErr}
	if rpcErr == nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encoding reply: %w", err)
		}
		msg.Result = data
	}
	return c.send(msg)
}

// Close tears down the connection and fails all pending calls.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	return c.rwc.Close()
}

func marshalParams(params any) json.RawMessage {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return data
}

// send writes one framed message to the stream.
func (c *Conn) send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := fmt.Fprintf(c.rwc, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := c.rwc.Write(data); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

// readMessage reads one framed message from the stream.
func (c *Conn) readMessage() (*Message, error) {
	contentLength := -1
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed frame header %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			contentLength, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("parsing content length: %w", err)
			}
		}
	}

	if contentLength < 0 {
		return nil, errors.New("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return &msg, nil
}
