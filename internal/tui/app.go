// Package tui implements the SHEM terminal dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shem-project/shem/internal/breakdown"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/monitor"
	"github.com/shem-project/shem/internal/simulation"
	"github.com/shem-project/shem/internal/tui/styles"
)

// Source is the data the dashboard reads and the one action it triggers.
type Source interface {
	History(ctx context.Context) ([]models.AggregatedPeriod, error)
	Breakdown(ctx context.Context, key string) (*breakdown.Report, error)
	Simulate(ctx context.Context, opts simulation.CycleOptions) (*simulation.Result, error)
	Model() monitor.ModelStatus
}

// Config configures the dashboard.
type Config struct {
	Source          Source
	Theme           string
	RefreshInterval time.Duration
}

const (
	minWidth       = 60
	minHeight      = 15
	defaultRefresh = 5 * time.Second
	loadTimeout    = 10 * time.Second
	historyRows    = 8
)

// RunWithConfig launches the dashboard and blocks until it exits.
func RunWithConfig(cfg Config) error {
	if cfg.Source == nil {
		return errors.New("tui: source is required")
	}
	program := tea.NewProgram(initialModel(cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

type model struct {
	source  Source
	styles  styles.Styles
	refresh time.Duration

	width  int
	height int
	view   viewID

	history     []models.AggregatedPeriod
	report      *breakdown.Report
	status      monitor.ModelStatus
	lastResult  *simulation.Result
	err         error
	simulating  bool
	lastUpdated time.Time
	now         time.Time
}

func initialModel(cfg Config) model {
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	return model{
		source:  cfg.Source,
		styles:  styles.ForTheme(cfg.Theme),
		refresh: refresh,
		view:    viewHistory,
		now:     time.Now(),
	}
}

type viewID int

const (
	viewHistory viewID = iota
	viewBreakdown
)

func nextView(current viewID) viewID {
	if current == viewHistory {
		return viewBreakdown
	}
	return viewHistory
}

type (
	tickMsg     time.Time
	snapshotMsg struct {
		history []models.AggregatedPeriod
		report  *breakdown.Report
		status  monitor.ModelStatus
		err     error
		at      time.Time
	}
	simulatedMsg struct {
		result *simulation.Result
		err    error
	}
)

func (m model) Init() tea.Cmd {
	return tea.Batch(loadCmd(m.source), tickCmd(m.refresh))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "1":
			m.view = viewHistory
		case "2":
			m.view = viewBreakdown
		case "tab", "g":
			m.view = nextView(m.view)
		case "r":
			return m, loadCmd(m.source)
		case "s":
			if m.simulating {
				return m, nil
			}
			m.simulating = true
			return m, simulateCmd(m.source)
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.now = time.Time(msg)
		return m, tea.Batch(loadCmd(m.source), tickCmd(m.refresh))
	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.history = msg.history
			m.report = msg.report
			m.status = msg.status
			m.lastUpdated = msg.at
		}
	case simulatedMsg:
		m.simulating = false
		m.err = msg.err
		if msg.err == nil {
			m.lastResult = msg.result
		}
		return m, loadCmd(m.source)
	}
	return m, nil
}

func loadCmd(source Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		history, err := source.History(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		report, err := source.Breakdown(ctx, "")
		if err != nil && !errors.Is(err, monitor.ErrNoReadings) {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{history: history, report: report, status: source.Model(), at: time.Now()}
	}
}

func simulateCmd(source Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		result, err := source.Simulate(ctx, simulation.CycleOptions{})
		return simulatedMsg{result: result, err: err}
	}
}

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) View() string {
	if m.width > 0 && m.height > 0 {
		if m.width < minWidth || m.height < minHeight {
			return strings.Join(m.smallViewLines(), "\n") + "\n"
		}
	}

	lines := []string{
		m.styles.Title.Render("SHEM · Smart Home Energy Monitor"),
		m.styles.Muted.Render(m.modelLine()),
		"",
	}

	if m.err != nil {
		lines = append(lines, m.styles.Error.Render("Error: "+m.err.Error()), "")
	}
	if m.lastResult != nil {
		lines = append(lines, m.styles.Success.Render(fmt.Sprintf("Simulated %s: %d reading(s), %.2f kWh",
			m.lastResult.Period, len(m.lastResult.Readings), m.lastResult.TotalUsage())), "")
	}

	switch m.view {
	case viewBreakdown:
		lines = append(lines, m.breakdownLines()...)
	default:
		lines = append(lines, m.historyLines()...)
	}

	lines = append(lines, "", m.styles.Muted.Render(m.lastUpdatedLine()))
	lines = append(lines, "", m.styles.Muted.Render("Shortcuts: s simulate | r refresh | 1/2 views | tab next | q quit"))
	return strings.Join(lines, "\n") + "\n"
}

func (m model) smallViewLines() []string {
	return []string{
		m.styles.Warning.Render(fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)),
		m.styles.Muted.Render(fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)),
		m.styles.Muted.Render("Press q to quit."),
	}
}

func (m model) modelLine() string {
	if !m.status.Fitted {
		return fmt.Sprintf("Trend model: unfitted (%d period(s))", m.status.Periods)
	}
	return fmt.Sprintf("Trend model: %d periods since %s, slope %+.2f kWh/month",
		m.status.Periods, m.status.Earliest, m.status.Slope)
}

func (m model) lastUpdatedLine() string {
	if m.lastUpdated.IsZero() {
		return "Last updated: --"
	}
	label := m.lastUpdated.Format("15:04:05")
	if m.isStale() {
		label += " (stale)"
	}
	if m.simulating {
		label += " · simulating..."
	}
	return "Last updated: " + label
}

// isStale reports whether more than three refreshes were missed.
func (m model) isStale() bool {
	if m.lastUpdated.IsZero() || m.now.IsZero() {
		return false
	}
	return m.now.Sub(m.lastUpdated) > 3*m.refresh
}
