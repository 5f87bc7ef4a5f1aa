// ABOUTME: Tests for history-to-turns conversion
// ABOUTME: Verifies user/assistant pairing and round reply extraction

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTurns_PairsUserAndAssistant(t *testing.T) {
	history := []ChatMessage{
		{Role: RoleUser, Content: "Hello", TurnID: "t1"},
		{Role: RoleAssistant, Content: "Hi there"},
		{Role: RoleUser, Content: "Next question", TurnID: "t2"},
	}

	turns := ToTurns(history)
	require.Len(t, turns, 2)
	assert.Equal(t, "Hello", turns[0].Request)
	assert.Equal(t, "Hi there", turns[0].Response)
	assert.Equal(t, "t1", turns[0].TurnID)
	assert.Equal(t, "Next question", turns[1].Request)
	assert.Empty(t, turns[1].Response)
}

func TestToTurns_IncludesAgentRoundReplies(t *testing.T) {
	history := []ChatMessage{
		{Role: RoleUser, Content: "Edit the file"},
		{Role: RoleAssistant, Content: "Sure. ", EditAgentRounds: []AgentRound{
			{RoundID: 1, Reply: "Editing now."},
			{RoundID: 2, Reply: " Done."},
		}},
	}

	turns := ToTurns(history)
	require.Len(t, turns, 1)
	assert.Equal(t, "Sure. Editing now. Done.", turns[0].Response)
}

func TestToTurns_SkipsLoneAssistantMessages(t *testing.T) {
	history := []ChatMessage{
		{Role: RoleAssistant, Content: "orphan"},
		{Role: RoleUser, Content: "question"},
	}

	turns := ToTurns(history)
	require.Len(t, turns, 1)
	assert.Equal(t, "question", turns[0].Request)
}
