package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"sidekick/internal/controller"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshViewport(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case transcriptMsg:
		atBottom := m.viewport.AtBottom()
		m.transcript = msg.update
		m.refreshViewport(atBottom)
		return m, nil

	case confirmMsg:
		req := msg.request
		m.pending = &req
		return m, nil

	case regenMsg:
		if msg.update.State == controller.RegenerateError {
			m.banner = msg.update.Error
		}
		m.regenState[msg.update.ID] = msg.update.State
		return m, nil

	case bannerMsg:
		m.banner = msg.text
		return m, nil

	case openDuplicateMsg:
		// Single-surface TUI: report where the fork went instead of
		// opening a second pane.
		m.banner = "Duplicated chat saved as " + msg.chatID
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A pending confirmation captures y/n before anything else.
	if m.pending != nil {
		switch msg.String() {
		case "y", "Y":
			m.ctrl.Dispatch(controller.ConfirmationResponse{ID: m.pending.ID, Response: true})
			m.pending = nil
			return m, nil
		case "n", "N", "esc":
			m.ctrl.Dispatch(controller.ConfirmationResponse{ID: m.pending.ID, Response: false})
			m.pending = nil
			return m, nil
		}
		return m, nil
	}

	if m.viewMode == SessionListView {
		return m.handleSessionListKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.streaming() {
			m.ctrl.Dispatch(controller.Abort{})
		}
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.textarea.Value())
		if text == "" || m.streaming() {
			return m, nil
		}
		m.banner = ""
		m.textarea.Reset()
		m.ctrl.Dispatch(controller.Submit{Text: text})
		return m, nil

	case "ctrl+n":
		m.banner = ""
		m.ctrl.Dispatch(controller.NewSession{})
		return m, nil

	case "ctrl+d":
		m.ctrl.Dispatch(controller.DuplicateSession{})
		return m, nil

	case "ctrl+h":
		m.loadSessionList()
		m.viewMode = SessionListView
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleSessionListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+h":
		m.viewMode = ChatView
		return m, nil
	case "enter":
		if item, ok := m.sessions.SelectedItem().(sessionItem); ok {
			m.ctrl.Dispatch(controller.RestoreHistory{ChatID: item.id})
		}
		m.viewMode = ChatView
		return m, nil
	case "x":
		if item, ok := m.sessions.SelectedItem().(sessionItem); ok && m.store != nil {
			if err := m.store.DeleteChat(m.account, item.id); err != nil {
				m.logger.Warn("failed to delete chat", zap.Error(err))
			}
			m.loadSessionList()
		}
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.sessions, cmd = m.sessions.Update(msg)
	return m, cmd
}

// loadSessionList refreshes the stored-session picker.
func (m *Model) loadSessionList() {
	if m.store == nil {
		return
	}
	chats, err := m.store.ListChats(m.account)
	if err != nil {
		m.logger.Warn("failed to list chats", zap.Error(err))
		return
	}
	items := make([]list.Item, 0, len(chats))
	for _, c := range chats {
		title := c.Title
		if title == "" {
			title = "Untitled chat"
		}
		items = append(items, sessionItem{
			id:    c.ID,
			title: title,
			date:  c.CreatedAt.Local().Format("Jan 2 15:04"),
		})
	}
	m.sessions.SetItems(items)
}

// layout resizes the panes after a terminal size change.
func (m *Model) layout() {
	inputHeight := m.textarea.Height() + 2
	statusHeight := 2
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-inputHeight-statusHeight, 3)
	m.textarea.SetWidth(m.width - 4)
	m.sessions.SetSize(m.width, m.height-2)
}

// refreshViewport re-renders the transcript; stick keeps the view pinned
// to the newest content.
func (m *Model) refreshViewport(stick bool) {
	m.viewport.SetContent(m.renderTranscript())
	if stick {
		m.viewport.GotoBottom()
	}
}

var _ tea.Model = Model{}
