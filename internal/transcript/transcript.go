// Package transcript holds the ordered message history of one chat session
// and the mutation rules the session controller relies on.
//
// A Transcript is pure data: no I/O, no locking. The owning controller
// serializes all access. The in-progress assistant message that exists
// while a response streams is deliberately NOT part of the transcript; it
// only enters via AddBotMessage when the turn finalizes.
package transcript

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSpeakerOrder is returned when an append would break the strict
// human/assistant alternation of the persisted sequence.
var ErrSpeakerOrder = errors.New("transcript: speaker alternation violated")

// Transcript is the mutable message log of one chat session.
type Transcript struct {
	ID            string     `json:"id"`
	Title         string     `json:"title,omitempty"`
	SelectedModel string     `json:"selectedModel,omitempty"`
	Messages      []Message  `json:"messages"`
	CreatedAt     time.Time  `json:"createdAt"`

	// LastTokenUsage is sticky: it keeps the most recent non-empty
	// counters even when a later turn reports none.
	LastTokenUsage *TokenUsage `json:"lastTokenUsage,omitempty"`
}

// New creates an empty transcript with a fresh session id.
func New() *Transcript {
	return &Transcript{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// AddHumanMessage appends a human message. It fails if the previous
// message is also human; callers must truncate first (edit flow).
func (t *Transcript) AddHumanMessage(msg Message) error {
	if n := len(t.Messages); n > 0 && t.Messages[n-1].Speaker == SpeakerHuman {
		return ErrSpeakerOrder
	}
	msg.Speaker = SpeakerHuman
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	t.Messages = append(t.Messages, msg)
	return nil
}

// AddBotMessage appends a finalized assistant message, stamping the model
// that produced it. An assistant message must follow a human message.
func (t *Transcript) AddBotMessage(msg Message, model string) error {
	n := len(t.Messages)
	if n == 0 || t.Messages[n-1].Speaker != SpeakerHuman {
		return ErrSpeakerOrder
	}
	msg.Speaker = SpeakerAssistant
	msg.Model = model
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	t.Messages = append(t.Messages, msg)
	return nil
}

// RemoveMessagesFromIndex truncates the transcript starting at index,
// inclusive. It is a no-op when index is out of range or the message at
// index is not of the expected speaker.
func (t *Transcript) RemoveMessagesFromIndex(index int, expected Speaker) {
	if index < 0 || index >= len(t.Messages) {
		return
	}
	if t.Messages[index].Speaker != expected {
		return
	}
	t.Messages = t.Messages[:index]
}

// ReplaceInMessage substitutes the first occurrence of oldText inside the
// text of message index with newText. It reports whether a replacement
// happened; an absent substring or invalid index leaves the transcript
// untouched.
func (t *Transcript) ReplaceInMessage(index int, oldText, newText string) bool {
	if index < 0 || index >= len(t.Messages) {
		return false
	}
	if oldText == "" || !strings.Contains(t.Messages[index].Text, oldText) {
		return false
	}
	t.Messages[index].Text = strings.Replace(t.Messages[index].Text, oldText, newText, 1)
	return true
}

// GetLastSpeakerMessageIndex returns the highest index whose message was
// produced by speaker, and whether any exists.
func (t *Transcript) GetLastSpeakerMessageIndex(speaker Speaker) (int, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Speaker == speaker {
			return i, true
		}
	}
	return 0, false
}

// IsEmpty reports whether the transcript holds no persisted messages.
func (t *Transcript) IsEmpty() bool { return len(t.Messages) == 0 }

// SetSelectedModel binds the model used for subsequent turns.
func (t *Transcript) SetSelectedModel(model string) { t.SelectedModel = model }

// SetChatTitle sets the human-readable session title.
func (t *Transcript) SetChatTitle(title string) { t.Title = title }

// SetLastMessageProcesses replaces the processing steps of the most recent
// message. No-op on an empty transcript.
func (t *Transcript) SetLastMessageProcesses(steps []ProcessingStep) {
	if len(t.Messages) == 0 {
		return
	}
	t.Messages[len(t.Messages)-1].ProcessingSteps = append([]ProcessingStep(nil), steps...)
}

// SetTokenUsage records the latest counters. Nil or all-zero usage is
// ignored so the previous counters stay visible.
func (t *Transcript) SetTokenUsage(usage *TokenUsage) {
	if usage == nil || *usage == (TokenUsage{}) {
		return
	}
	u := *usage
	t.LastTokenUsage = &u
}

// Snapshot deep-copies the transcript, identity included. The controller
// hands snapshots to background saves so in-flight mutation can't race
// serialization.
func (t *Transcript) Snapshot() *Transcript {
	c := &Transcript{
		ID:            t.ID,
		Title:         t.Title,
		SelectedModel: t.SelectedModel,
		CreatedAt:     t.CreatedAt,
		Messages:      make([]Message, 0, len(t.Messages)),
	}
	for _, m := range t.Messages {
		c.Messages = append(c.Messages, m.clone())
	}
	if t.LastTokenUsage != nil {
		u := *t.LastTokenUsage
		c.LastTokenUsage = &u
	}
	return c
}

// Clone deep-copies the transcript under a new session id. Used by
// session duplication; the original keeps its identity.
func (t *Transcript) Clone() *Transcript {
	c := t.Snapshot()
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	return c
}
