// Package chaterr classifies failures of the chat session core.
//
// Every public controller operation catches internal errors and converts
// them to one of these kinds before they reach a display surface. The kind
// decides the delivery channel: cancellations are silent, storage warnings
// go to a system banner, everything else is embedded in the transcript.
package chaterr

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the failure category of a chat operation.
type Kind string

const (
	// KindCancelled marks an operation superseded or explicitly aborted.
	// Never surfaced to the user.
	KindCancelled Kind = "cancelled"

	// KindRateLimit marks a provider rate-limit rejection. Recoverable;
	// embedded in the transcript without ending the session.
	KindRateLimit Kind = "rate_limit"

	// KindContextWindow marks a context-window-exceeded rejection.
	KindContextWindow Kind = "context_window"

	// KindAgent marks a generic response-agent failure.
	KindAgent Kind = "agent"

	// KindStorage marks a non-fatal persistence problem, surfaced as a
	// system banner rather than a transcript entry.
	KindStorage Kind = "storage"

	// KindConfig marks an unresolved configuration such as a missing
	// model. Fails fast before any network call.
	KindConfig Kind = "config"
)

// ErrNoModelSelected is returned when a submit cannot resolve any model.
var ErrNoModelSelected = &Error{Kind: KindConfig, Message: "no chat model selected"}

// Error is a classified chat failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error. If err is already classified its
// original kind wins, matching the rule that a typed error is never
// re-wrapped with a generic context.
func Wrap(err error, kind Kind, message string) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf extracts the failure kind, defaulting to KindAgent for plain
// errors and KindCancelled for context cancellation.
func KindOf(err error) Kind {
	if IsCancellation(err) {
		return KindCancelled
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindAgent
}

// IsCancellation reports whether err stems from a cancelled operation,
// either via context cancellation or an explicit KindCancelled error.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindCancelled
}

// UserMessage renders the transcript-facing text for a failure.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindRateLimit:
		return "Request was rate limited. Wait a moment and try again."
	case KindContextWindow:
		return "The conversation no longer fits the model's context window. Start a new chat or edit an earlier message."
	case KindConfig:
		var ce *Error
		if errors.As(err, &ce) {
			return ce.Message
		}
		return err.Error()
	default:
		return fmt.Sprintf("Request failed: %v", err)
	}
}
