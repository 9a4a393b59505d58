package controller

import (
	"sidekick/internal/confirm"
	"sidekick/internal/transcript"
)

// TranscriptUpdate is the outbound snapshot pushed after every transcript
// mutation. Messages and InProgress are deep copies; the view may keep
// them.
type TranscriptUpdate struct {
	ChatID     string
	Title      string
	Messages   []transcript.Message
	InProgress *transcript.Message
	TokenUsage *transcript.TokenUsage
}

// IsMessageInProgress reports whether a response is currently streaming.
func (u TranscriptUpdate) IsMessageInProgress() bool { return u.InProgress != nil }

// RegenerateState is the lifecycle phase of a code-block regeneration.
type RegenerateState string

const (
	RegenerateRunning RegenerateState = "regenerating"
	RegenerateDone    RegenerateState = "done"
	RegenerateError   RegenerateState = "error"
)

// RegenerateUpdate reports code-block regeneration progress on its own
// channel so the primary transcript stream stays untouched.
type RegenerateUpdate struct {
	ID    string
	State RegenerateState
	Error string
}

// View is the display surface contract. Pushes are fire-and-forget: the
// controller never waits on them, implementations must not block, and a
// failing push may lose a frame but never corrupts session state.
type View interface {
	PushTranscript(update TranscriptUpdate)
	PushConfirmationRequest(req confirm.Request)
	PushRegenerateStatus(update RegenerateUpdate)

	// PushErrorBanner surfaces a system-level problem (storage warnings)
	// outside the transcript.
	PushErrorBanner(message string)

	// OpenDuplicate asks the host to show the forked session on a
	// separate surface.
	OpenDuplicate(chatID string)
}
