package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shem-project/shem/internal/breakdown"
	"github.com/shem-project/shem/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withOutputFlags(t *testing.T, asJSON, asJSONL bool) {
	t.Helper()
	origJSON, origJSONL, origColor := jsonOutput, jsonlOutput, noColor
	jsonOutput, jsonlOutput, noColor = asJSON, asJSONL, true
	t.Cleanup(func() {
		jsonOutput, jsonlOutput, noColor = origJSON, origJSONL, origColor
	})
}

func TestWriteOutputJSON(t *testing.T) {
	withOutputFlags(t, true, false)

	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, map[string]int{"deleted": 3}))
	assert.Contains(t, buf.String(), "\n  \"deleted\": 3\n")
}

func TestWriteOutputJSONLSplitsSlices(t *testing.T) {
	withOutputFlags(t, false, true)

	readings := []models.Reading{
		{Category: models.CategoryHeating, UsageKWh: 10, Cost: 1.2, PeriodKey: "2025-01-31"},
		{Category: models.CategoryLighting, UsageKWh: 5, Cost: 0.6, PeriodKey: "2025-01-31"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, readings))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var decoded models.Reading
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, models.CategoryLighting, decoded.Category)

	buf.Reset()
	require.NoError(t, WriteOutput(&buf, map[string]string{"message": "ok"}))
	assert.Equal(t, "{\"message\":\"ok\"}\n", buf.String())
}

func TestPrintErrorIncludesPreflightHints(t *testing.T) {
	withOutputFlags(t, false, false)

	var buf bytes.Buffer
	printError(&buf, &PreflightError{Message: "no database", Hint: "pass --db", NextStep: "shem init"})
	out := buf.String()
	assert.Contains(t, out, "Error: no database")
	assert.Contains(t, out, "Hint: pass --db")
	assert.Contains(t, out, "Next: shem init")
}

func TestPrintErrorJSON(t *testing.T) {
	withOutputFlags(t, true, false)

	var buf bytes.Buffer
	printError(&buf, errors.New("boom"))
	assert.JSONEq(t, `{"error":"boom"}`, buf.String())
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "12.35 kWh", formatKWh(12.345))
	assert.Equal(t, "$0.10", formatMoney(0.1))
	assert.Equal(t, "33.3%", formatPercent(100.0/3))
	assert.Equal(t, "yes", formatYesNo(true))
	assert.Equal(t, "no", formatYesNo(false))
}

func TestWriteTableAligns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"PERIOD", "USAGE"}, [][]string{
		{"2025-01-31", "1.00 kWh"},
		{"2025-02", "22.00 kWh"},
	}))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Index(lines[0], "USAGE"), strings.Index(lines[1], "1.00"))
	assert.Equal(t, strings.Index(lines[0], "USAGE"), strings.Index(lines[2], "22.00"))
}

func TestStatusFormatsWithoutColor(t *testing.T) {
	withOutputFlags(t, false, false)

	assert.Equal(t, "B", formatRating(breakdown.RatingB))
	assert.Equal(t, "-", formatScenario(""))
	assert.Equal(t, "ALARM alarming", formatScenario(models.ScenarioAlarming))
	assert.Equal(t, "OK low", formatScenario(models.ScenarioLow))
	assert.Equal(t, string(models.EventTypeCycleCompleted), formatEventType(models.EventTypeCycleCompleted))
}

func TestSimulateOptions(t *testing.T) {
	reset := func(count int, scenario string, usage, cost float64) {
		simulateCount, simulateScenario, simulateUsage, simulateCost = count, scenario, usage, cost
	}
	t.Cleanup(func() { reset(1, "", 0, 0) })

	reset(1, "", 0, 0)
	opts, err := simulateOptions()
	require.NoError(t, err)
	assert.Empty(t, opts.Scenario)
	assert.Nil(t, opts.Totals)

	reset(2, "high", 900, 120)
	opts, err = simulateOptions()
	require.NoError(t, err)
	assert.Equal(t, models.ScenarioHigh, opts.Scenario)
	require.NotNil(t, opts.Totals)
	assert.Equal(t, 900.0, opts.Totals.UsageKWh)

	reset(0, "", 0, 0)
	_, err = simulateOptions()
	assert.Error(t, err)

	reset(1, "apocalyptic", 0, 0)
	_, err = simulateOptions()
	assert.Error(t, err)

	reset(1, "", 900, 0)
	_, err = simulateOptions()
	assert.Error(t, err)
}

func TestNoReadingsMessage(t *testing.T) {
	assert.Equal(t, "No entries available.", noReadingsMessage(""))
	assert.Equal(t, "No readings for 2025-03.", noReadingsMessage("2025-03"))
}
