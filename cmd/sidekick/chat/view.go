package chat

import (
	"fmt"
	"strings"

	"sidekick/internal/transcript"
)

func (m Model) View() string {
	if !m.ready {
		return "Starting sidekick..."
	}
	if m.viewMode == SessionListView {
		return m.sessions.View()
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	if m.pending != nil {
		b.WriteString(m.styles.Confirm.Render(
			fmt.Sprintf("The assistant wants to: %s\n[y]es / [n]o", m.pending.Step)))
		b.WriteByte('\n')
	}
	if m.banner != "" {
		b.WriteString(m.styles.Banner.Render(m.banner))
		b.WriteByte('\n')
	}

	b.WriteString(m.styles.InputFrame.Render(m.textarea.View()))
	b.WriteByte('\n')
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) statusLine() string {
	var parts []string
	if m.streaming() {
		parts = append(parts, m.spinner.View()+"thinking (esc to stop)")
	}
	if m.transcript.Title != "" {
		parts = append(parts, m.transcript.Title)
	}
	if u := m.transcript.TokenUsage; u != nil {
		parts = append(parts, m.styles.Usage.Render(
			fmt.Sprintf("tokens %d in / %d out", u.PromptTokens, u.CompletionTokens)))
	}
	parts = append(parts, "ctrl+n new · ctrl+h history · ctrl+d duplicate")
	return m.styles.StatusBar.Render(strings.Join(parts, "  ·  "))
}

// renderTranscript draws the persisted messages plus the in-progress one.
func (m Model) renderTranscript() string {
	var b strings.Builder
	if m.transcript.Title != "" {
		b.WriteString(m.styles.Title.Render("# " + m.transcript.Title))
		b.WriteString("\n\n")
	}
	for i := range m.transcript.Messages {
		b.WriteString(m.renderMessage(&m.transcript.Messages[i], false))
	}
	if m.transcript.InProgress != nil {
		b.WriteString(m.renderMessage(m.transcript.InProgress, true))
	}
	return b.String()
}

func (m Model) renderMessage(msg *transcript.Message, inProgress bool) string {
	var b strings.Builder

	switch msg.Speaker {
	case transcript.SpeakerHuman:
		b.WriteString(m.styles.Human.Render("You"))
	default:
		label := "Sidekick"
		if msg.Model != "" {
			label += " " + m.styles.ModelTag.Render("("+msg.Model+")")
		}
		b.WriteString(m.styles.Assistant.Bold(true).Render(label))
	}
	if inProgress {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteByte('\n')

	for _, step := range msg.ProcessingSteps {
		line := "  · " + step.Title
		if step.Status == transcript.StepError {
			b.WriteString(m.styles.StepFailed.Render(line + " (failed)"))
		} else {
			b.WriteString(m.styles.Step.Render(line))
		}
		b.WriteByte('\n')
	}

	if msg.Text != "" {
		b.WriteString(m.renderMarkdown(msg.Text))
	}

	for _, sub := range msg.SubMessages {
		if sub.Text != "" {
			b.WriteString(m.renderMarkdown(sub.Text))
		}
		for _, hit := range sub.SearchHits {
			ref := hit.URI
			if hit.Range != "" {
				ref += ":" + hit.Range
			}
			b.WriteString(m.styles.Step.Render("  → "+ref) + "\n")
		}
	}

	if msg.Error != "" {
		b.WriteString(m.styles.ErrorText.Render(msg.Error))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	return b.String()
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return strings.TrimLeft(out, "\n")
}
