// ABOUTME: Tests for the JSON-RPC connection
// ABOUTME: Uses an in-memory pipe to exercise framing, calls, and server requests

package rpc

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipePair returns two connected Conns served in the background.
func pipePair(t *testing.T, clientHandler, serverHandler Handler) (*Conn, *Conn) {
	t.Helper()
	c1, c2 := net.Pipe()

	client := NewConn(c1, clientHandler, nil)
	server := NewConn(c2, serverHandler, nil)
	go func() { _ = client.Serve() }()
	go func() { _ = server.Serve() }()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestConn_CallRoundTrip(t *testing.T) {
	echo := func(conn *Conn, msg *Message) {
		var params map[string]string
		require.NoError(t, json.Unmarshal(msg.Params, &params))
		require.NoError(t, conn.Reply(msg.ID, map[string]string{"echo": params["text"]}, nil))
	}
	client, _ := pipePair(t, nil, echo)

	var result map[string]string
	err := client.Call(context.Background(), "test/echo", map[string]string{"text": "hello"}, &result)
	require.NoError(t, err)
	assert.Equal(t, "hello", result["echo"])
}

func TestConn_CallReturnsPeerError(t *testing.T) {
	fail := func(conn *Conn, msg *Message) {
		require.NoError(t, conn.Reply(msg.ID, nil, &Error{Code: CodeMethodNotFound, Message: "Tool function not found"}))
	}
	client, _ := pipePair(t, nil, fail)

	err := client.Call(context.Background(), "test/missing", nil, nil)
	require.Error(t, err)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeMethodNotFound, rpcErr.Code)
}

func TestConn_NotifyReachesHandler(t *testing.T) {
	got := make(chan *Message, 1)
	handler := func(conn *Conn, msg *Message) { got <- msg }
	client, _ := pipePair(t, nil, handler)

	require.NoError(t, client.Notify("test/progress", map[string]string{"token": "abc"}))

	select {
	case msg := <-got:
		assert.Equal(t, "test/progress", msg.Method)
		assert.True(t, msg.IsNotification())
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestConn_CallFailsOnClose(t *testing.T) {
	client, server := pipePair(t, nil, func(conn *Conn, msg *Message) {
		// Never reply; close the peer instead.
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Call(context.Background(), "test/hang", nil, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	server.Close()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("call did not fail after close")
	}
}

func TestConn_CallHonorsContext(t *testing.T) {
	client, _ := pipePair(t, nil, func(conn *Conn, msg *Message) {})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Call(ctx, "test/hang", nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestID_RoundTripsNumbersAndStrings(t *testing.T) {
	for _, raw := range []string{`42`, `"abc-123"`} {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(raw), &id))
		out, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}
}
