// Package chat provides the interactive TUI for sidekick. The package is
// split across files:
//   - surface.go: bridge from the session controller to the tea program
//   - model.go: types, construction, Init
//   - update.go: the Update loop and key handling
//   - view.go: rendering
package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"sidekick/internal/confirm"
	"sidekick/internal/controller"
)

// Messages delivered from the controller into the Update loop.
type (
	transcriptMsg    struct{ update controller.TranscriptUpdate }
	confirmMsg       struct{ request confirm.Request }
	regenMsg         struct{ update controller.RegenerateUpdate }
	bannerMsg        struct{ text string }
	openDuplicateMsg struct{ chatID string }
)

// Surface adapts controller pushes into tea messages. Pushes arriving
// before Bind are dropped; the controller re-pushes on every mutation so
// nothing meaningful is lost during startup.
type Surface struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewSurface creates an unbound surface.
func NewSurface() *Surface { return &Surface{} }

// Bind attaches the running program.
func (s *Surface) Bind(p *tea.Program) {
	s.mu.Lock()
	s.program = p
	s.mu.Unlock()
}

func (s *Surface) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *Surface) PushTranscript(u controller.TranscriptUpdate) {
	s.send(transcriptMsg{update: u})
}

func (s *Surface) PushConfirmationRequest(req confirm.Request) {
	s.send(confirmMsg{request: req})
}

func (s *Surface) PushRegenerateStatus(u controller.RegenerateUpdate) {
	s.send(regenMsg{update: u})
}

func (s *Surface) PushErrorBanner(message string) {
	s.send(bannerMsg{text: message})
}

func (s *Surface) OpenDuplicate(chatID string) {
	s.send(openDuplicateMsg{chatID: chatID})
}
