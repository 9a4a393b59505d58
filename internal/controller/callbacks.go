package controller

import (
	"context"

	"go.uber.org/zap"

	"sidekick/internal/chaterr"
	"sidekick/internal/transcript"
)

// turnCallbacks is the per-turn implementation of agent.Callbacks. Every
// mutation checks the generation counter so a superseded agent goroutine
// cannot touch state owned by a newer operation.
type turnCallbacks struct {
	c   *Controller
	gen uint64
}

// owned reports whether this turn still controls the session. Callers
// hold c.mu.
func (t *turnCallbacks) owned() bool {
	return t.gen == t.c.opGen && !t.c.disposed
}

// PostError records an in-stream failure on the in-progress message
// without ending the turn.
func (t *turnCallbacks) PostError(err error, kind chaterr.Kind) {
	t.c.mu.Lock()
	if !t.owned() || t.c.inProgress == nil {
		t.c.mu.Unlock()
		return
	}
	t.c.inProgress.Error = chaterr.UserMessage(chaterr.Wrap(err, kind, "agent reported failure"))
	update := t.c.transcriptUpdateLocked()
	t.c.mu.Unlock()

	t.c.logger.Warn("agent posted in-stream error",
		zap.String("kind", string(kind)), zap.Error(err))
	t.c.pushTranscript(update)
}

// PostPartialMessage replaces the in-progress message and pushes.
func (t *turnCallbacks) PostPartialMessage(msg transcript.Message) {
	t.c.mu.Lock()
	if !t.owned() {
		t.c.mu.Unlock()
		return
	}
	msg.Speaker = transcript.SpeakerAssistant
	t.c.inProgress = &msg
	update := t.c.transcriptUpdateLocked()
	t.c.mu.Unlock()
	t.c.pushTranscript(update)
}

// PostProcessingSteps attaches structured progress to the in-progress
// message.
func (t *turnCallbacks) PostProcessingSteps(steps []transcript.ProcessingStep) {
	t.c.mu.Lock()
	if !t.owned() || t.c.inProgress == nil {
		t.c.mu.Unlock()
		return
	}
	t.c.inProgress.ProcessingSteps = append([]transcript.ProcessingStep(nil), steps...)
	update := t.c.transcriptUpdateLocked()
	t.c.mu.Unlock()
	t.c.pushTranscript(update)
}

// PostSubMessages attaches agentic sub-results to the in-progress
// message.
func (t *turnCallbacks) PostSubMessages(subs []transcript.SubMessage) {
	t.c.mu.Lock()
	if !t.owned() || t.c.inProgress == nil {
		t.c.mu.Unlock()
		return
	}
	t.c.inProgress.SubMessages = append([]transcript.SubMessage(nil), subs...)
	update := t.c.transcriptUpdateLocked()
	t.c.mu.Unlock()
	t.c.pushTranscript(update)
}

// PostUsage records the turn's token counters. Zero usage is ignored so
// the previous counters stay visible.
func (t *turnCallbacks) PostUsage(usage transcript.TokenUsage) {
	t.c.mu.Lock()
	if !t.owned() {
		t.c.mu.Unlock()
		return
	}
	t.c.tr.SetTokenUsage(&usage)
	update := t.c.transcriptUpdateLocked()
	t.c.mu.Unlock()
	t.c.pushTranscript(update)
}

// RequestConfirmation blocks on the broker until the surface answers or
// the turn dies.
func (t *turnCallbacks) RequestConfirmation(ctx context.Context, id, step string) (bool, error) {
	return t.c.broker.Ask(ctx, id, step)
}
