package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/shem-project/shem/internal/models"
)

// Styles are the lipgloss styles rendered from one Palette.
type Styles struct {
	Palette Palette

	Title  lipgloss.Style
	Text   lipgloss.Style
	Muted  lipgloss.Style
	Accent lipgloss.Style
	Border lipgloss.Style
	Bar    lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	RatingGood lipgloss.Style
	RatingFair lipgloss.Style
	RatingPoor lipgloss.Style
}

// DefaultStyles builds styles from the Standard palette.
func DefaultStyles() Styles {
	return BuildStyles(Standard)
}

// ForTheme builds styles for a palette name, falling back to Standard.
func ForTheme(name string) Styles {
	if p, ok := Palettes[name]; ok {
		return BuildStyles(p)
	}
	return DefaultStyles()
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// BuildStyles renders a palette into styles.
func BuildStyles(p Palette) Styles {
	return Styles{
		Palette: p,

		Title:  fg(p.Accent).Bold(true),
		Text:   fg(p.Text),
		Muted:  fg(p.TextMuted),
		Accent: fg(p.Accent),
		Border: fg(p.Rule),
		Bar:    fg(p.Usage),

		Success: fg(p.Efficient),
		Warning: fg(p.Borderline),
		Error:   fg(p.Fault).Bold(true),

		RatingGood: fg(p.Efficient).Bold(true),
		RatingFair: fg(p.Borderline).Bold(true),
		RatingPoor: fg(p.Wasteful).Bold(true),
	}
}

// Scenario is the style for a demand scenario label.
func (s Styles) Scenario(sc models.Scenario) lipgloss.Style {
	style := fg(s.Palette.DemandColor(sc))
	if sc == models.ScenarioAlarming {
		style = style.Bold(true)
	}
	return style
}
