package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sidekick/internal/agent"
	"sidekick/internal/chaterr"
	"sidekick/internal/transcript"
)

// titleTimeout bounds the best-effort title side task. It deliberately
// does not share the operation's cancellation handle: aborting a turn
// should not kill a title that is already being generated.
const titleTimeout = 30 * time.Second

// HandleUserMessage records the human message, resolves the model, kicks
// off best-effort title generation, and starts the agent turn. It
// returns once the turn is running; completion arrives as view pushes.
func (c *Controller) HandleUserMessage(cmd Submit) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	ctx, gen := c.startNewOperationLocked()
	c.state = StateSubmitting
	c.inProgress = nil
	firstTurn := c.tr.IsEmpty()

	model := c.resolveModelLocked()
	if model == "" {
		c.failFastLocked(cmd, chaterr.ErrNoModelSelected)
		return // failFastLocked unlocks
	}
	c.tr.SetSelectedModel(model)

	// A human message left dangling by an aborted turn is superseded by
	// this submission; truncate it to keep alternation intact.
	if i, ok := c.tr.GetLastSpeakerMessageIndex(transcript.SpeakerHuman); ok && i == len(c.tr.Messages)-1 {
		c.tr.RemoveMessagesFromIndex(i, transcript.SpeakerHuman)
	}

	msg := transcript.Message{
		Text:         cmd.Text,
		Intent:       cmd.Intent,
		ContextItems: cmd.ContextItems,
		EditorState:  cmd.EditorState,
	}
	if err := c.tr.AddHumanMessage(msg); err != nil {
		c.failFastLocked(cmd, chaterr.Wrap(err, chaterr.KindAgent, "could not record message"))
		return
	}

	requestID := cmd.TraceID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req := agent.Request{
		RequestID:    requestID,
		Text:         cmd.Text,
		Intent:       cmd.Intent,
		ContextItems: cmd.ContextItems,
		EditorState:  cmd.EditorState,
		Model:        model,
		History:      c.tr.Snapshot().Messages,
	}
	sessionID := c.tr.ID
	shouldTitle := c.deps.Titles.ShouldSummarize(cmd.Text, firstTurn)
	account := c.account()
	c.mu.Unlock()

	if c.deps.History != nil && len(cmd.ContextItems) > 0 {
		items := append([]transcript.ContextItem(nil), cmd.ContextItems...)
		c.turns.Add(1)
		go func() {
			defer c.turns.Done()
			if err := c.deps.History.RecordContextItems(account, items); err != nil {
				c.logger.Warn("failed to record frequent context items", zap.Error(err))
			}
		}()
	}

	if shouldTitle {
		c.turns.Add(1)
		go c.generateTitle(sessionID, cmd.Text)
	}

	c.turns.Add(1)
	go c.send(ctx, gen, req)
}

// failFastLocked surfaces a pre-send failure as a transcript error
// without any network call. Expects c.mu held; releases it.
func (c *Controller) failFastLocked(cmd Submit, cause error) {
	// Keep the user's message visible alongside the error.
	if n := len(c.tr.Messages); n == 0 || c.tr.Messages[n-1].Speaker != transcript.SpeakerHuman {
		_ = c.tr.AddHumanMessage(transcript.Message{
			Text:         cmd.Text,
			Intent:       cmd.Intent,
			ContextItems: cmd.ContextItems,
			EditorState:  cmd.EditorState,
		})
	}
	_ = c.tr.AddBotMessage(transcript.Message{Error: chaterr.UserMessage(cause)}, c.tr.SelectedModel)
	c.state = StateIdle
	c.cancelOperationLocked()
	update := c.transcriptUpdateLocked()
	snap := c.tr.Snapshot()
	account := c.account()
	c.mu.Unlock()

	c.logger.Warn("submit failed before send", zap.Error(cause))
	c.pushTranscript(update)
	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		c.saveSession(account, snap)
	}()
}

// send runs one agent turn: placeholder, stream, finalize.
func (c *Controller) send(ctx context.Context, gen uint64, req agent.Request) {
	defer c.turns.Done()
	sp := newSpan(c.logger, "send", req.RequestID)

	c.mu.Lock()
	if gen != c.opGen || c.disposed {
		c.mu.Unlock()
		sp.End(chaterr.New(chaterr.KindCancelled, "superseded"))
		return
	}
	c.inProgress = &transcript.Message{Speaker: transcript.SpeakerAssistant, Intent: req.Intent}
	c.state = StateStreaming
	update := c.transcriptUpdateLocked()
	c.mu.Unlock()
	c.pushTranscript(update)

	// Cancellation checkpoint before the agent is invoked.
	if err := ctx.Err(); err != nil {
		c.finalize(gen, req, err)
		sp.End(err)
		return
	}

	ag, err := c.deps.Agents.Resolve(req.Model, req.Intent)
	if err != nil {
		err = chaterr.Wrap(err, chaterr.KindConfig, "no agent for model "+req.Model)
		c.finalize(gen, req, err)
		sp.End(err)
		return
	}

	err = runAgent(ctx, ag, req, &turnCallbacks{c: c, gen: gen})
	c.finalize(gen, req, err)
	sp.End(err)
}

// runAgent isolates agent panics so a misbehaving implementation ends the
// turn on the error path instead of taking the process down.
func runAgent(ctx context.Context, ag agent.Agent, req agent.Request, cb agent.Callbacks) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = chaterr.Wrap(fmt.Errorf("agent panic: %v", r), chaterr.KindAgent, "agent crashed")
		}
	}()
	return ag.Handle(ctx, req, cb)
}

// finalize folds the in-progress message into the transcript by the
// priority rule and emits the terminal view push. Exactly one of the
// persist paths executes per completed turn; a superseded generation
// executes none.
func (c *Controller) finalize(gen uint64, req agent.Request, err error) {
	c.mu.Lock()
	if gen != c.opGen || c.disposed {
		c.mu.Unlock()
		return
	}
	msg := c.inProgress
	c.inProgress = nil
	c.state = StateIdle
	c.cancelOperationLocked()

	background := false
	persist := false

	switch {
	case chaterr.IsCancellation(err):
		// Silent abort: no transcript entry, no banner, refresh only.

	case err != nil:
		m := transcript.Message{Speaker: transcript.SpeakerAssistant, Intent: req.Intent}
		if msg != nil {
			m = *msg
		}
		m.Error = chaterr.UserMessage(err)
		if e := c.tr.AddBotMessage(m, req.Model); e != nil {
			c.logger.Error("could not append error message", zap.Error(e))
		}
		persist = true

	case msg == nil || (msg.Text == "" && len(msg.SubMessages) == 0 && len(msg.ProcessingSteps) == 0 && msg.Error == ""):
		// The agent produced nothing; still push the terminal update.

	case req.Intent == transcript.IntentAgentic:
		if e := c.tr.AddBotMessage(*msg, req.Model); e != nil {
			c.logger.Error("could not append agentic message", zap.Error(e))
		}
		persist, background = true, true

	case req.Intent == transcript.IntentSearch || req.Intent == transcript.IntentInsert ||
		req.Intent == transcript.IntentEdit || len(msg.SubMessages) > 0 || msg.Error != "":
		if e := c.tr.AddBotMessage(*msg, req.Model); e != nil {
			c.logger.Error("could not append structured message", zap.Error(e))
		}
		persist = true

	default:
		if e := c.tr.AddBotMessage(*msg, req.Model); e != nil {
			c.logger.Error("could not append message", zap.Error(e))
		}
		persist = true
	}

	update := c.transcriptUpdateLocked()
	var snap *transcript.Transcript
	if persist {
		snap = c.tr.Snapshot()
	}
	account := c.account()
	c.mu.Unlock()

	c.pushTranscript(update)
	if snap == nil {
		return
	}
	if background {
		c.turns.Add(1)
		go func() {
			defer c.turns.Done()
			c.saveSession(account, snap)
		}()
		return
	}
	c.saveSession(account, snap)
}

// HandleEdit truncates the transcript at the target human message and
// re-submits the replacement text. A missing target is a no-op.
func (c *Controller) HandleEdit(cmd Edit) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	idx := -1
	if cmd.Index != nil {
		idx = *cmd.Index
	} else if i, ok := c.tr.GetLastSpeakerMessageIndex(transcript.SpeakerHuman); ok {
		idx = i
	}
	if idx < 0 || idx >= len(c.tr.Messages) || c.tr.Messages[idx].Speaker != transcript.SpeakerHuman {
		c.mu.Unlock()
		return
	}
	c.cancelOperationLocked()
	c.inProgress = nil
	c.tr.RemoveMessagesFromIndex(idx, transcript.SpeakerHuman)
	c.mu.Unlock()

	c.HandleUserMessage(Submit{
		Text:         cmd.Text,
		ContextItems: cmd.ContextItems,
		EditorState:  cmd.EditorState,
		Intent:       cmd.Intent,
	})
}

// HandleAbort cancels the in-flight operation and refreshes the view.
// Persisted messages are untouched.
func (c *Controller) HandleAbort() {
	c.mu.Lock()
	c.cancelOperationLocked()
	c.inProgress = nil
	c.state = StateIdle
	update := c.transcriptUpdateLocked()
	c.mu.Unlock()
	c.pushTranscript(update)
}

// HandleRegenerateCodeBlock regenerates one code block and splices the
// result into the owning message by exact substring replacement.
// Progress goes out on the dedicated regenerate channel.
func (c *Controller) HandleRegenerateCodeBlock(cmd RegenerateCodeBlock) {
	c.mu.Lock()
	if c.disposed || c.deps.Regenerator == nil {
		c.mu.Unlock()
		return
	}
	ctx, gen := c.startNewOperationLocked()
	model := c.resolveModelLocked()
	c.mu.Unlock()

	if model == "" {
		c.pushRegenerate(RegenerateUpdate{ID: cmd.ID, State: RegenerateError, Error: chaterr.UserMessage(chaterr.ErrNoModelSelected)})
		return
	}

	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		sp := newSpan(c.logger, "regenerate", cmd.ID)
		c.pushRegenerate(RegenerateUpdate{ID: cmd.ID, State: RegenerateRunning})

		code, err := c.deps.Regenerator.RegenerateCodeBlock(ctx, model, cmd.Code, cmd.Language)
		if err != nil {
			sp.End(err)
			if chaterr.IsCancellation(err) {
				return
			}
			c.pushRegenerate(RegenerateUpdate{ID: cmd.ID, State: RegenerateError, Error: chaterr.UserMessage(err)})
			return
		}

		c.mu.Lock()
		if gen != c.opGen || c.disposed {
			c.mu.Unlock()
			sp.End(chaterr.New(chaterr.KindCancelled, "superseded"))
			return
		}
		replaced := c.tr.ReplaceInMessage(cmd.Index, cmd.Code, code)
		c.cancelOperationLocked()
		update := c.transcriptUpdateLocked()
		snap := c.tr.Snapshot()
		account := c.account()
		c.mu.Unlock()

		if replaced {
			c.pushTranscript(update)
			c.saveSession(account, snap)
		}
		c.pushRegenerate(RegenerateUpdate{ID: cmd.ID, State: RegenerateDone})
		sp.End(nil)
	}()
}

// RestoreSession swaps the live transcript for a stored one. Unknown ids
// and unauthenticated accounts are no-ops.
func (c *Controller) RestoreSession(chatID string) {
	account := c.account()
	if c.deps.History == nil {
		return
	}
	stored, ok, err := c.deps.History.GetChat(account, chatID)
	if err != nil {
		c.logger.Error("failed to load session", zap.String("session", chatID), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.cancelOperationLocked()
	c.inProgress = nil
	c.state = StateIdle
	c.tr = stored
	update := c.transcriptUpdateLocked()
	c.mu.Unlock()
	c.pushTranscript(update)
}

// DuplicateSessionByID forks a stored session under a new id, shows the
// fork on a separate surface, and rebinds the current surface to the
// original. An empty id duplicates the live session.
func (c *Controller) DuplicateSessionByID(sessionID string) {
	if c.deps.History == nil {
		return
	}
	account := c.account()

	if sessionID == "" {
		c.mu.Lock()
		sessionID = c.tr.ID
		snap := c.tr.Snapshot()
		c.mu.Unlock()
		c.saveSession(account, snap)
	}

	stored, ok, err := c.deps.History.GetChat(account, sessionID)
	if err != nil {
		c.logger.Error("failed to load session for duplication", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	clone := stored.Clone()
	title := stored.Title
	if title == "" {
		title = "Chat"
	}
	clone.SetChatTitle(fmt.Sprintf("%s (copy %s)", title, time.Now().Format("Jan 2 15:04")))

	if _, err := c.deps.History.SaveChat(account, clone); err != nil {
		c.logger.Error("failed to persist duplicated session", zap.Error(err))
		return
	}

	// Show the clone, hand it to a separate surface, then rebind the
	// original here.
	c.pushTranscript(TranscriptUpdate{
		ChatID:     clone.ID,
		Title:      clone.Title,
		Messages:   clone.Messages,
		TokenUsage: clone.LastTokenUsage,
	})
	c.safePush(func() { c.deps.View.OpenDuplicate(clone.ID) })

	c.mu.Lock()
	update := c.transcriptUpdateLocked()
	c.mu.Unlock()
	c.pushTranscript(update)
}

// StartNewSession persists the current session when it has content, then
// replaces it with a fresh transcript, optionally seeded.
func (c *Controller) StartNewSession(seed []transcript.Message) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.cancelOperationLocked()
	c.inProgress = nil
	c.state = StateIdle

	// An empty unseeded session is already fresh; keep its id.
	if c.tr.IsEmpty() && len(seed) == 0 {
		c.mu.Unlock()
		return
	}

	var snap *transcript.Transcript
	if !c.tr.IsEmpty() {
		snap = c.tr.Snapshot()
	}
	model := c.tr.SelectedModel
	c.tr = transcript.New()
	c.tr.SetSelectedModel(model)
	c.tr.Messages = append(c.tr.Messages, seed...)
	update := c.transcriptUpdateLocked()
	account := c.account()
	c.mu.Unlock()

	if snap != nil {
		c.turns.Add(1)
		go func() {
			defer c.turns.Done()
			c.saveSession(account, snap)
		}()
	}
	c.pushTranscript(update)
}

// HandleConfirmationResponse routes an inbound answer to its waiter.
func (c *Controller) HandleConfirmationResponse(id string, response bool) {
	c.broker.Resolve(id, response)
}

// generateTitle is the best-effort side task deriving the session title
// from the first message. Every failure is swallowed.
func (c *Controller) generateTitle(sessionID, input string) {
	defer c.turns.Done()
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	t, err := c.deps.Titles.Summarize(ctx, input)
	if err != nil {
		c.logger.Warn("title generation failed", zap.Error(err))
		return
	}
	if t == "" {
		return
	}

	c.mu.Lock()
	if c.tr.ID != sessionID || c.tr.Title != "" {
		c.mu.Unlock()
		return
	}
	c.tr.SetChatTitle(t)
	update := c.transcriptUpdateLocked()
	c.mu.Unlock()
	c.pushTranscript(update)
}
