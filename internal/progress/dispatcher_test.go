// ABOUTME: Tests for the progress dispatcher
// ABOUTME: Verifies token routing, unknown-token drops, and payload decoding

package progress

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	begins  []Begin
	reports []Report
	ends    []End
}

func (h *recordingHandler) HandleBegin(token string, b Begin)   { h.begins = append(h.begins, b) }
func (h *recordingHandler) HandleReport(token string, r Report) { h.reports = append(h.reports, r) }
func (h *recordingHandler) HandleEnd(token string, e End)       { h.ends = append(h.ends, e) }

func TestDispatcher_RoutesByToken(t *testing.T) {
	d := NewDispatcher(nil)
	mine := &recordingHandler{}
	other := &recordingHandler{}
	d.Register("tok-1", mine)
	d.Register("tok-2", other)

	require.NoError(t, d.Dispatch("tok-1", json.RawMessage(`{"kind":"begin","conversationId":"c1","turnId":"t1"}`)))

	require.Len(t, mine.begins, 1)
	assert.Equal(t, "c1", mine.begins[0].ConversationID)
	assert.Equal(t, "t1", mine.begins[0].TurnID)
	assert.Empty(t, other.begins)
}

func TestDispatcher_DropsUnknownToken(t *testing.T) {
	d := NewDispatcher(nil)
	h := &recordingHandler{}
	d.Register("tok-1", h)

	require.NoError(t, d.Dispatch("stale", json.RawMessage(`{"kind":"end","turnId":"t1"}`)))
	assert.Empty(t, h.ends)
}

func TestDispatcher_UnregisterStopsRouting(t *testing.T) {
	d := NewDispatcher(nil)
	h := &recordingHandler{}
	d.Register("tok-1", h)
	assert.True(t, d.Registered("tok-1"))

	d.Unregister("tok-1")
	assert.False(t, d.Registered("tok-1"))

	require.NoError(t, d.Dispatch("tok-1", json.RawMessage(`{"kind":"report","turnId":"t1","reply":"hi"}`)))
	assert.Empty(t, h.reports)
}

func TestDispatcher_DecodesAllKinds(t *testing.T) {
	d := NewDispatcher(nil)
	h := &recordingHandler{}
	d.Register("tok", h)

	require.NoError(t, d.Dispatch("tok", json.RawMessage(`{"kind":"report","turnId":"t1","reply":"partial"}`)))
	require.NoError(t, d.Dispatch("tok", json.RawMessage(`{"kind":"end","turnId":"t1","suggestedTitle":"Greeting","error":{"code":402,"message":"quota"}}`)))

	require.Len(t, h.reports, 1)
	assert.Equal(t, "partial", h.reports[0].Reply)

	require.Len(t, h.ends, 1)
	assert.Equal(t, "Greeting", h.ends[0].SuggestedTitle)
	require.NotNil(t, h.ends[0].Error)
	assert.Equal(t, 402, h.ends[0].Error.Code)
}

func TestDispatcher_MalformedValueIsError(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register("tok", &recordingHandler{})
	require.Error(t, d.Dispatch("tok", json.RawMessage(`not json`)))
}

func TestReport_IsEmpty(t *testing.T) {
	assert.True(t, Report{TurnID: "t1"}.IsEmpty())
	assert.False(t, Report{TurnID: "t1", Reply: "hi"}.IsEmpty())
}
