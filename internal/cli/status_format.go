package cli

import (
	"fmt"

	"github.com/shem-project/shem/internal/breakdown"
	"github.com/shem-project/shem/internal/models"
)

func formatRating(rating breakdown.Rating) string {
	return colorize(string(rating), ratingColor(rating))
}

func ratingColor(rating breakdown.Rating) string {
	switch rating {
	case breakdown.RatingA, breakdown.RatingB:
		return colorGreen
	case breakdown.RatingC:
		return colorCyan
	case breakdown.RatingD:
		return colorYellow
	default:
		return colorRed
	}
}

func formatScenario(scenario models.Scenario) string {
	if scenario == "" {
		return "-"
	}
	label, color := scenarioLabel(scenario)
	return colorize(fmt.Sprintf("%s %s", label, scenario), color)
}

func scenarioLabel(scenario models.Scenario) (string, string) {
	switch scenario {
	case models.ScenarioLow, models.ScenarioModerate:
		return "OK", colorGreen
	case models.ScenarioAboveAverage:
		return "WARN", colorYellow
	case models.ScenarioHigh, models.ScenarioVeryHigh:
		return "HIGH", colorMagenta
	default:
		return "ALARM", colorRed
	}
}

func formatEventType(t models.EventType) string {
	switch t {
	case models.EventTypeCycleCompleted:
		return colorize(string(t), colorGreen)
	case models.EventTypeCycleEmpty, models.EventTypeSensorMalfunction:
		return colorize(string(t), colorYellow)
	case models.EventTypePersistFailed:
		return colorize(string(t), colorRed)
	default:
		return colorize(string(t), colorCyan)
	}
}
