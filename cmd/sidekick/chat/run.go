package chat

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"sidekick/internal/controller"
	"sidekick/internal/history"
	"sidekick/internal/identity"
)

// Run starts the TUI and blocks until the user quits. The surface must be
// the one wired into the controller's deps; Run binds it to the program
// so controller pushes start flowing into the Update loop.
func Run(ctrl *controller.Controller, surface *Surface, store *history.Store, account identity.Account, logger *zap.Logger) error {
	m := New(ctrl, store, account, logger)
	p := tea.NewProgram(m, tea.WithAltScreen())
	surface.Bind(p)
	_, err := p.Run()
	return err
}
