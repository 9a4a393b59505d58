package controller

import (
	"encoding/json"

	"sidekick/internal/transcript"
)

// Command is the closed union of inbound user actions. Every variant is
// handled by Controller.Dispatch; adding a variant without extending the
// switch there is a compile-time hole reviewers will see, not a silent
// default branch at runtime.
type Command interface {
	isCommand()
}

// Submit sends a new human message.
type Submit struct {
	Text         string
	ContextItems []transcript.ContextItem
	EditorState  json.RawMessage
	Intent       transcript.Intent
	TraceID      string
}

// Edit replaces the human message at Index (or the last human message
// when Index is nil) and re-submits.
type Edit struct {
	Text         string
	Index        *int
	ContextItems []transcript.ContextItem
	EditorState  json.RawMessage
	Intent       transcript.Intent
}

// Abort cancels the in-flight operation without touching persisted
// messages.
type Abort struct{}

// RegenerateCodeBlock regenerates one code block inside an existing
// assistant message.
type RegenerateCodeBlock struct {
	ID       string
	Code     string
	Language string
	Index    int
}

// RestoreHistory swaps the live session for a stored one.
type RestoreHistory struct {
	ChatID string
}

// NewSession persists the current session (when non-empty) and starts a
// fresh one, optionally seeded with pre-built messages.
type NewSession struct {
	Seed []transcript.Message
}

// DuplicateSession forks a stored session under a new id. An empty
// SessionID duplicates the current session.
type DuplicateSession struct {
	SessionID string
}

// ConfirmationResponse answers a pending confirmation request.
type ConfirmationResponse struct {
	ID       string
	Response bool
}

func (Submit) isCommand()               {}
func (Edit) isCommand()                 {}
func (Abort) isCommand()                {}
func (RegenerateCodeBlock) isCommand()  {}
func (RestoreHistory) isCommand()       {}
func (NewSession) isCommand()           {}
func (DuplicateSession) isCommand()     {}
func (ConfirmationResponse) isCommand() {}

// Dispatch routes one inbound command to its handler.
func (c *Controller) Dispatch(cmd Command) {
	switch cmd := cmd.(type) {
	case Submit:
		c.HandleUserMessage(cmd)
	case Edit:
		c.HandleEdit(cmd)
	case Abort:
		c.HandleAbort()
	case RegenerateCodeBlock:
		c.HandleRegenerateCodeBlock(cmd)
	case RestoreHistory:
		c.RestoreSession(cmd.ChatID)
	case NewSession:
		c.StartNewSession(cmd.Seed)
	case DuplicateSession:
		c.DuplicateSessionByID(cmd.SessionID)
	case ConfirmationResponse:
		c.HandleConfirmationResponse(cmd.ID, cmd.Response)
	}
}
