// ABOUTME: Request and catalog payload types exchanged with the conversation backend
// ABOUTME: Shapes mirror the backend's JSON wire format

package provider

import (
	"fmt"

	"github.com/2389/parley/internal/chat"
)

// ActiveDocument identifies the file the user had focused when sending.
type ActiveDocument struct {
	URI      string `json:"uri"`
	Language string `json:"languageId,omitempty"`
}

// ConversationRequest is the outgoing payload for both creating a
// conversation and adding a turn to one.
type ConversationRequest struct {
	WorkDoneToken     string                       `json:"workDoneToken"`
	Content           string                       `json:"content"`
	ContentImages     []chat.ContentImage          `json:"contentImages,omitempty"`
	ImageReferences   []chat.ImageReference        `json:"-"`
	ActiveDoc         *ActiveDocument              `json:"activeDoc,omitempty"`
	Skills            []string                     `json:"skills,omitempty"`
	IgnoredSkills     []string                     `json:"ignoredSkills,omitempty"`
	References        []chat.ConversationReference `json:"references,omitempty"`
	Model             string                       `json:"model,omitempty"`
	ModelProviderName string                       `json:"modelProviderName,omitempty"`
	AgentMode         bool                         `json:"agentMode"`
	UserLanguage      string                       `json:"userLanguage,omitempty"`
	TurnID            string                       `json:"turnId,omitempty"`
	Turns             []chat.Turn                  `json:"turns,omitempty"`
}

// Rating is the thumbs signal for a turn.
type Rating int

const (
	RatingDown Rating = -1
	RatingUp   Rating = 1
)

// CopyCodeRequest reports that the user copied a code block out of a turn.
type CopyCodeRequest struct {
	TurnID           string `json:"turnId"`
	CodeBlockIndex   int    `json:"codeBlockIndex"`
	CopyType         string `json:"copyType"`
	CopiedCharacters int    `json:"copiedCharacters"`
	TotalCharacters  int    `json:"totalCharacters"`
	CopiedText       string `json:"copiedText"`
}

// Template is a slash-command template offered by the backend.
type Template struct {
	ID               string   `json:"id"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"shortDescription,omitempty"`
	Scopes           []string `json:"scopes,omitempty"`
}

// Agent is a named backend agent addressable with an @-mention.
type Agent struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProtocolError is a backend-reported failure carrying the wire error code.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.Code, e.Message)
}
