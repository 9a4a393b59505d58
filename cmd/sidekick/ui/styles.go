// Package ui provides the visual styling for the sidekick chat TUI.
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode colors (default)
	LightForeground = lipgloss.Color("#1a1d21")
	LightPrimary    = lipgloss.Color("#2563eb")
	LightAccent     = lipgloss.Color("#0d9488")
	LightMuted      = lipgloss.Color("#8b949e")
	LightBorder     = lipgloss.Color("#d0d7de")

	// Dark mode colors
	DarkForeground = lipgloss.Color("#e6edf3")
	DarkPrimary    = lipgloss.Color("#58a6ff")
	DarkAccent     = lipgloss.Color("#2dd4bf")
	DarkMuted      = lipgloss.Color("#6e7681")
	DarkBorder     = lipgloss.Color("#30363d")

	// Semantic colors, same in both modes
	Destructive = lipgloss.Color("#e5534b")
	Warning     = lipgloss.Color("#d29922")
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// DetectTheme picks light or dark from the COLORFGBG convention, falling
// back to dark.
func DetectTheme() Theme {
	if v := os.Getenv("COLORFGBG"); v != "" {
		parts := strings.Split(v, ";")
		bg := parts[len(parts)-1]
		if bg == "7" || bg == "15" {
			return LightTheme()
		}
	}
	return DarkTheme()
}

// Styles bundles the lipgloss styles used by the chat surface.
type Styles struct {
	Theme Theme

	Title      lipgloss.Style
	Human      lipgloss.Style
	Assistant  lipgloss.Style
	ModelTag   lipgloss.Style
	ErrorText  lipgloss.Style
	Banner     lipgloss.Style
	Confirm    lipgloss.Style
	StatusBar  lipgloss.Style
	InputFrame lipgloss.Style
	Step       lipgloss.Style
	StepFailed lipgloss.Style
	Usage      lipgloss.Style
}

// NewStyles builds the style set for a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Theme:     t,
		Title:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Human:     lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Assistant: lipgloss.NewStyle().Foreground(t.Foreground),
		ModelTag:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		ErrorText: lipgloss.NewStyle().Foreground(Destructive),
		Banner: lipgloss.NewStyle().
			Foreground(Warning).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Warning).
			Padding(0, 1),
		Confirm: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(t.Primary).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().Foreground(t.Muted),
		InputFrame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border),
		Step:       lipgloss.NewStyle().Foreground(t.Muted),
		StepFailed: lipgloss.NewStyle().Foreground(Destructive),
		Usage:      lipgloss.NewStyle().Foreground(t.Muted).Faint(true),
	}
}
