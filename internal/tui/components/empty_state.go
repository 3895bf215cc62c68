// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/shem-project/shem/internal/tui/styles"
)

// EmptyState represents an empty state message with optional suggestions.
type EmptyState struct {
	// Icon is an optional icon to display.
	Icon string
	// Title is the main empty state message.
	Title string
	// Subtitle is an optional secondary message.
	Subtitle string
	// Suggestions are actionable commands or keys.
	Suggestions []Suggestion
}

// Suggestion represents a suggested command with description.
type Suggestion struct {
	Command     string
	Description string
}

// Render renders the empty state with the given styles.
func (e EmptyState) Render(styleSet styles.Styles) string {
	var lines []string

	titleLine := e.Title
	if e.Icon != "" {
		titleLine = e.Icon + "  " + titleLine
	}
	lines = append(lines, styleSet.Muted.Render(titleLine))

	if e.Subtitle != "" {
		lines = append(lines, styleSet.Muted.Render(e.Subtitle))
	}

	if len(e.Suggestions) > 0 {
		lines = append(lines, "")
		lines = append(lines, styleSet.Text.Render("Get started:"))
		for _, s := range e.Suggestions {
			cmdLine := fmt.Sprintf("  %s", styleSet.Accent.Render(s.Command))
			if s.Description != "" {
				cmdLine += styleSet.Muted.Render(fmt.Sprintf("  # %s", s.Description))
			}
			lines = append(lines, cmdLine)
		}
	}

	return strings.Join(lines, "\n")
}

// RenderCompact renders a compact single-line empty state.
func (e EmptyState) RenderCompact(styleSet styles.Styles) string {
	line := e.Title
	if e.Icon != "" {
		line = e.Icon + " " + line
	}
	if len(e.Suggestions) > 0 {
		line += fmt.Sprintf(" Try: %s", e.Suggestions[0].Command)
	}
	return styleSet.Muted.Render(line)
}

// EmptyHistory is shown before any reading has been stored.
func EmptyHistory() EmptyState {
	return EmptyState{
		Icon:     "📭",
		Title:    "No historical data found",
		Subtitle: "Readings appear here once a period has been simulated.",
		Suggestions: []Suggestion{
			{Command: "s", Description: "simulate the next period"},
			{Command: "shem simulate --count 3", Description: "simulate from the command line"},
		},
	}
}

// EmptyBreakdown is shown when the latest period has no readings.
func EmptyBreakdown() EmptyState {
	return EmptyState{
		Icon:     "📊",
		Title:    "No breakdown available",
		Subtitle: "A breakdown needs at least one stored reading.",
	}
}

// EmptyForecast is shown while the trend model is unfitted.
func EmptyForecast(have, need int) EmptyState {
	return EmptyState{
		Icon:     "📈",
		Title:    "Insufficient data to generate a prediction",
		Subtitle: fmt.Sprintf("%d of %d periods recorded.", have, need),
	}
}
