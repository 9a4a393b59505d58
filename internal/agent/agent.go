// Package agent defines the contract between the session controller and
// whatever produces assistant responses. The controller treats an Agent
// as opaque: it hands over the request plus a callback surface and waits
// for Handle to return.
package agent

import (
	"context"
	"encoding/json"

	"sidekick/internal/chaterr"
	"sidekick/internal/transcript"
)

// Request carries one turn's input to the agent.
type Request struct {
	// RequestID correlates the turn across logs and tracing.
	RequestID string

	// Text is the human message being answered.
	Text string

	// Intent is the resolved classification for this turn.
	Intent transcript.Intent

	// ContextItems are the artifacts mentioned in the message.
	ContextItems []transcript.ContextItem

	// EditorState is the serialized rich-text input state, passed through
	// untouched.
	EditorState json.RawMessage

	// Model is the resolved model identifier for this turn.
	Model string

	// History is a read-only snapshot of the persisted transcript up to
	// and including the human message being answered.
	History []transcript.Message
}

// Callbacks is the surface the controller hands to the agent for the
// duration of one turn. All methods are safe to call from the agent's
// goroutine until Handle returns.
type Callbacks interface {
	// PostError surfaces an in-stream failure without ending the turn.
	PostError(err error, kind chaterr.Kind)

	// PostPartialMessage replaces the in-progress assistant message and
	// triggers a view push.
	PostPartialMessage(msg transcript.Message)

	// PostProcessingSteps attaches structured progress to the in-progress
	// message.
	PostProcessingSteps(steps []transcript.ProcessingStep)

	// PostSubMessages attaches agentic sub-results to the in-progress
	// message.
	PostSubMessages(subs []transcript.SubMessage)

	// PostUsage reports token counters for the turn.
	PostUsage(usage transcript.TokenUsage)

	// RequestConfirmation blocks until the user answers yes or no, the
	// operation is cancelled, or the session is disposed.
	RequestConfirmation(ctx context.Context, id, step string) (bool, error)
}

// Agent produces one assistant response per Handle call. Handle streams
// partials through cb and returns when the turn is complete; returning an
// error (including ctx.Err() on cancellation) ends the turn on the error
// path. The controller finalizes exactly once after Handle returns.
type Agent interface {
	Handle(ctx context.Context, req Request, cb Callbacks) error
}

// Regenerator regenerates a single code block outside the main transcript
// stream.
type Regenerator interface {
	RegenerateCodeBlock(ctx context.Context, model, code, language string) (string, error)
}

// Resolver picks the agent for a (model, intent) pair.
type Resolver interface {
	Resolve(model string, intent transcript.Intent) (Agent, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(model string, intent transcript.Intent) (Agent, error)

func (f ResolverFunc) Resolve(model string, intent transcript.Intent) (Agent, error) {
	return f(model, intent)
}
