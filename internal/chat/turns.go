// ABOUTME: Converts chat history into request/response turn pairs
// ABOUTME: Used to hand prior context to the backend when resuming a session

package chat

import "strings"

// Turn is one request/response exchange handed to the backend when a
// conversation is created with existing history.
type Turn struct {
	Request  string `json:"request"`
	Response string `json:"response,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
}

// ToTurns pairs each user message with the assistant message that follows it.
// Assistant replies include text accumulated inside edit-agent rounds, since
// agent-mode turns may carry their entire reply there.
func ToTurns(history []ChatMessage) []Turn {
	var turns []Turn
	for i := 0; i < len(history); i++ {
		msg := history[i]
		if msg.Role != RoleUser {
			continue
		}
		turn := Turn{Request: msg.Content, TurnID: msg.TurnID}
		if i+1 < len(history) && history[i+1].Role == RoleAssistant {
			next := history[i+1]
			turn.Response = next.Content + roundsReply(next.EditAgentRounds)
			i++
		}
		turns = append(turns, turn)
	}
	return turns
}

func roundsReply(rounds []AgentRound) string {
	var b strings.Builder
	for _, round := range rounds {
		b.WriteString(round.Reply)
	}
	return b.String()
}
