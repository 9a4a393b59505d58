package chat

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"sidekick/cmd/sidekick/ui"
	"sidekick/internal/confirm"
	"sidekick/internal/controller"
	"sidekick/internal/history"
	"sidekick/internal/identity"
)

// ViewMode determines which component is focused.
type ViewMode int

const (
	ChatView ViewMode = iota
	SessionListView
)

// sessionItem is a list item for the stored-session picker.
type sessionItem struct {
	id, title, date string
}

func (i sessionItem) Title() string       { return i.title }
func (i sessionItem) Description() string { return fmt.Sprintf("[%s] %s", i.date, i.id) }
func (i sessionItem) FilterValue() string { return i.title + " " + i.id }

// Model is the bubbletea model for the chat surface.
type Model struct {
	ctrl     *controller.Controller
	store    *history.Store
	account  identity.Account
	logger   *zap.Logger
	styles   ui.Styles
	renderer *glamour.TermRenderer

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	sessions list.Model

	viewMode ViewMode

	transcript controller.TranscriptUpdate
	pending    *confirm.Request
	banner     string
	regenState map[string]controller.RegenerateState

	width  int
	height int
	ready  bool
	err    error
}

// New builds the chat model. The surface must already be wired into the
// controller deps and bound to the program by the caller.
func New(ctrl *controller.Controller, store *history.Store, account identity.Account, logger *zap.Logger) Model {
	styles := ui.NewStyles(ui.DetectTheme())

	ta := textarea.New()
	ta.Placeholder = "Ask anything... (enter to send, esc to stop, ctrl+c to quit)"
	ta.Focus()
	ta.Prompt = "│ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sp.Style.Foreground(styles.Theme.Primary)

	style := "dark"
	if !styles.Theme.IsDark {
		style = "light"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		renderer = nil
	}

	sessions := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	sessions.Title = "Chat History"
	sessions.SetShowStatusBar(false)

	if logger == nil {
		logger = zap.NewNop()
	}

	return Model{
		ctrl:       ctrl,
		store:      store,
		account:    account,
		logger:     logger,
		styles:     styles,
		renderer:   renderer,
		textarea:   ta,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		sessions:   sessions,
		regenState: map[string]controller.RegenerateState{},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// streaming reports whether a response is currently in flight.
func (m Model) streaming() bool {
	return m.transcript.IsMessageInProgress() || m.ctrl.State() != controller.StateIdle
}
