package tui

import (
	"fmt"

	"github.com/shem-project/shem/internal/forecast"
	"github.com/shem-project/shem/internal/tui/components"
)

func (m model) historyLines() []string {
	lines := []string{m.styles.Accent.Render("History"), ""}
	if len(m.history) == 0 {
		return append(lines, components.EmptyHistory().Render(m.styles))
	}

	rows := m.history
	if len(rows) > historyRows {
		rows = rows[len(rows)-historyRows:]
	}
	lines = append(lines, m.styles.Muted.Render(fmt.Sprintf("%-12s %12s %10s", "PERIOD", "USAGE", "COST")))
	for _, h := range rows {
		lines = append(lines, m.styles.Text.Render(fmt.Sprintf("%-12s %8.2f kWh %10.2f", h.PeriodKey, h.TotalUsage, h.TotalCost)))
	}
	if hidden := len(m.history) - len(rows); hidden > 0 {
		lines = append(lines, m.styles.Muted.Render(fmt.Sprintf("... %d earlier period(s)", hidden)))
	}
	if !m.status.Fitted {
		lines = append(lines, "", components.EmptyForecast(m.status.Periods, forecast.MinPeriods).RenderCompact(m.styles))
	}
	return lines
}

func (m model) breakdownLines() []string {
	lines := []string{m.styles.Accent.Render("Breakdown"), ""}
	if m.report == nil {
		return append(lines, components.EmptyBreakdown().Render(m.styles))
	}

	r := m.report
	lines = append(lines,
		fmt.Sprintf("%s %s  %s", m.styles.Text.Render(r.PeriodKey), components.RenderRatingBadge(m.styles, r.Rating), m.styles.Muted.Render(string(r.Season))),
		m.styles.Text.Render(fmt.Sprintf("Total %.2f kWh, cost %.2f", r.TotalUsage, r.TotalCost)),
		"",
	)

	labelWidth := 0
	for _, name := range r.Categories() {
		if len(name) > labelWidth {
			labelWidth = len(name)
		}
	}
	barWidth := 30
	if m.width > 0 && m.width-labelWidth-12 < barWidth {
		barWidth = max(10, m.width-labelWidth-12)
	}
	for _, name := range r.Categories() {
		bar := components.UsageBar{Label: name, Percent: r.ByCategory[name].UsagePercentage, Width: barWidth}
		lines = append(lines, bar.Render(m.styles, labelWidth))
	}

	if len(r.Suggestions) > 0 {
		lines = append(lines, "", m.styles.Text.Render("Suggestions:"))
		for _, s := range r.Suggestions {
			lines = append(lines, m.styles.Warning.Render("  • "+s))
		}
	}
	return lines
}
