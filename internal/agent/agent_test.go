package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidekick/internal/chaterr"
	"sidekick/internal/transcript"
)

// recordingCallbacks captures everything an agent posts during a turn.
type recordingCallbacks struct {
	partials []transcript.Message
	steps    []transcript.ProcessingStep
	subs     []transcript.SubMessage
	usage    []transcript.TokenUsage
	confirm  func(id, step string) (bool, error)
}

func (r *recordingCallbacks) PostError(error, chaterr.Kind) {}
func (r *recordingCallbacks) PostPartialMessage(msg transcript.Message) {
	r.partials = append(r.partials, msg)
}
func (r *recordingCallbacks) PostProcessingSteps(steps []transcript.ProcessingStep) {
	r.steps = append(r.steps, steps...)
}
func (r *recordingCallbacks) PostSubMessages(subs []transcript.SubMessage) {
	r.subs = append(r.subs, subs...)
}
func (r *recordingCallbacks) PostUsage(u transcript.TokenUsage) { r.usage = append(r.usage, u) }
func (r *recordingCallbacks) RequestConfirmation(_ context.Context, id, step string) (bool, error) {
	if r.confirm == nil {
		return true, nil
	}
	return r.confirm(id, step)
}

func TestScriptedStreamsAccumulatedPartials(t *testing.T) {
	cb := &recordingCallbacks{}
	a := &Scripted{Reply: "one two three"}

	err := a.Handle(context.Background(), Request{RequestID: "r1", Text: "hi"}, cb)
	require.NoError(t, err)
	require.Len(t, cb.partials, 3)
	assert.Equal(t, "one", cb.partials[0].Text)
	assert.Equal(t, "one two three", cb.partials[2].Text)
}

func TestScriptedRespectsCancellation(t *testing.T) {
	cb := &recordingCallbacks{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&Scripted{Reply: "never sent"}).Handle(ctx, Request{Text: "hi"}, cb)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cb.partials)
}

func TestScriptedConfirmationDeclined(t *testing.T) {
	cb := &recordingCallbacks{confirm: func(id, step string) (bool, error) { return false, nil }}
	a := &Scripted{Reply: "edited the file", ConfirmStep: "apply edit?"}

	require.NoError(t, a.Handle(context.Background(), Request{RequestID: "r1"}, cb))
	require.Len(t, cb.partials, 1)
	assert.Contains(t, cb.partials[0].Text, "won't")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, chaterr.KindRateLimit, chaterr.KindOf(classify(errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED"))))
	assert.Equal(t, chaterr.KindContextWindow, chaterr.KindOf(classify(errors.New("input token count exceeds the maximum"))))
	assert.Equal(t, chaterr.KindAgent, chaterr.KindOf(classify(errors.New("connection reset"))))
	assert.NoError(t, classify(nil))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "x := 1", stripFences("```go\nx := 1\n```"))
	assert.Equal(t, "x := 1", stripFences("x := 1"))
	assert.Equal(t, "a\nb", stripFences("```\na\nb\n```"))
}
