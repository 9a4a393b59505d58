// Package controller implements the chat session state machine. One
// Controller owns one live transcript at a time, arbitrates the
// submit/edit/abort/regenerate/restore/duplicate operations, drives the
// response agent, and pushes view updates to the display surface.
//
// Concurrency model: all transcript state is guarded by one mutex; agent
// turns run on their own goroutine holding a per-operation context. At
// most one operation is non-idle per controller, enforced by the single
// owned cancellation handle plus a generation counter that lets a
// superseded turn detect it no longer owns the session state.
package controller

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"sidekick/internal/agent"
	"sidekick/internal/bus"
	"sidekick/internal/confirm"
	"sidekick/internal/config"
	"sidekick/internal/history"
	"sidekick/internal/identity"
	"sidekick/internal/title"
	"sidekick/internal/transcript"
)

// State is the controller's lifecycle phase. Terminal phases collapse
// back to Idle immediately after finalize.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateStreaming  State = "streaming"
)

// Deps are the collaborators injected at construction. View, Agents and
// Identity are required; the rest degrade gracefully when nil.
type Deps struct {
	Agents      agent.Resolver
	Regenerator agent.Regenerator
	History     *history.Store
	Identity    identity.Provider
	View        View
	Titles      *title.Summarizer
	Config      *config.Config
	Logger      *zap.Logger

	// ConfigTopic and AccountTopic, when set, are subscribed at
	// construction with the initial replay skipped so a freshly
	// constructed (or just-restored) session is not clobbered.
	ConfigTopic  *bus.Topic[*config.Config]
	AccountTopic *bus.Topic[identity.Account]
}

// Controller is the session state machine.
type Controller struct {
	mu         sync.Mutex
	deps       Deps
	cfg        *config.Config
	tr         *transcript.Transcript
	inProgress *transcript.Message
	state      State

	// opCancel is the single owned cancellation handle; opGen invalidates
	// finalize paths of superseded operations.
	opCancel context.CancelFunc
	opGen    uint64

	broker   *confirm.Broker
	logger   *zap.Logger
	turns    sync.WaitGroup
	unsubs   []func()
	disposed bool
}

// New constructs a controller with an empty session.
func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Controller{
		deps:   deps,
		cfg:    cfg,
		tr:     transcript.New(),
		state:  StateIdle,
		logger: logger,
	}
	c.broker = confirm.New(func(req confirm.Request) {
		c.safePush(func() { c.deps.View.PushConfirmationRequest(req) })
	}, logger)

	if deps.ConfigTopic != nil {
		c.unsubs = append(c.unsubs, deps.ConfigTopic.Subscribe(c.onConfigChanged, bus.SkipReplay()))
	}
	if deps.AccountTopic != nil {
		c.unsubs = append(c.unsubs, deps.AccountTopic.Subscribe(c.onAccountChanged, bus.SkipReplay()))
	}
	return c
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the id of the live session.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr.ID
}

// Wait blocks until all in-flight turns and side tasks finish. Intended
// for tests and shutdown paths.
func (c *Controller) Wait() {
	c.turns.Wait()
}

// Dispose shuts the controller down: cancels in-flight work, fails all
// pending confirmations, unsubscribes from the bus, and persists the
// session if an operation was interrupted mid-flight.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	interrupted := c.opCancel != nil
	c.cancelOperationLocked()
	c.inProgress = nil
	c.state = StateIdle
	var snap *transcript.Transcript
	if interrupted && !c.tr.IsEmpty() {
		snap = c.tr.Snapshot()
	}
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	c.broker.Dispose()
	c.turns.Wait()

	if snap != nil {
		c.saveSession(c.account(), snap)
	}
	c.logger.Debug("controller disposed")
}

// startNewOperationLocked cancels any existing operation handle, creates
// a fresh one, and returns its context. Must precede every submit/edit.
func (c *Controller) startNewOperationLocked() (context.Context, uint64) {
	c.cancelOperationLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c.opCancel = cancel
	c.opGen++
	return ctx, c.opGen
}

// cancelOperationLocked cancels and clears the handle without creating a
// new one. Used for pure abort.
func (c *Controller) cancelOperationLocked() {
	if c.opCancel != nil {
		c.opCancel()
		c.opCancel = nil
	}
}

// resolveModelLocked picks the active model: the session's selection if
// the catalog still carries it, otherwise the catalog default. Empty
// means no model is available at all.
func (c *Controller) resolveModelLocked() string {
	if sel := c.tr.SelectedModel; sel != "" && c.cfg.HasModel(sel) {
		return sel
	}
	if def, ok := c.cfg.DefaultModel(); ok {
		return def
	}
	return c.tr.SelectedModel
}

func (c *Controller) account() identity.Account {
	if c.deps.Identity == nil {
		return identity.Anonymous
	}
	return c.deps.Identity.CurrentAccount()
}

// transcriptUpdateLocked builds the outbound snapshot.
func (c *Controller) transcriptUpdateLocked() TranscriptUpdate {
	snap := c.tr.Snapshot()
	u := TranscriptUpdate{
		ChatID:     snap.ID,
		Title:      snap.Title,
		Messages:   snap.Messages,
		TokenUsage: snap.LastTokenUsage,
	}
	if c.inProgress != nil {
		m := *c.inProgress
		u.InProgress = &m
	}
	return u
}

// safePush runs a view delivery, swallowing panics: a broken surface may
// lose a frame but must never corrupt session state.
func (c *Controller) safePush(push func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("view push failed", zap.Any("panic", r))
		}
	}()
	push()
}

func (c *Controller) pushTranscript(u TranscriptUpdate) {
	c.safePush(func() { c.deps.View.PushTranscript(u) })
}

func (c *Controller) pushRegenerate(u RegenerateUpdate) {
	c.safePush(func() { c.deps.View.PushRegenerateStatus(u) })
}

func (c *Controller) pushBanner(msg string) {
	c.safePush(func() { c.deps.View.PushErrorBanner(msg) })
}

// saveSession persists a snapshot. Errors are logged, never surfaced; a
// size-budget warning goes to the system banner.
func (c *Controller) saveSession(account identity.Account, snap *transcript.Transcript) {
	if c.deps.History == nil || snap == nil || snap.IsEmpty() {
		return
	}
	warn, err := c.deps.History.SaveChat(account, snap)
	if err != nil {
		c.logger.Error("failed to persist session", zap.String("session", snap.ID), zap.Error(err))
		return
	}
	if warn {
		c.pushBanner("Chat history is near its storage limit. Delete old chats to free space.")
	}
}

// onConfigChanged swaps the live config. The next model resolution picks
// up the new catalog.
func (c *Controller) onConfigChanged(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	c.logger.Debug("controller adopted new config")
}

// onAccountChanged resets to a fresh session: per-account partitioning
// forbids carrying a live transcript across identities, and the previous
// session was already persisted after its last completed turn.
func (c *Controller) onAccountChanged(_ identity.Account) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.cancelOperationLocked()
	c.inProgress = nil
	c.state = StateIdle
	c.tr = transcript.New()
	update := c.transcriptUpdateLocked()
	c.mu.Unlock()
	c.pushTranscript(update)
}
