package models

import "time"

// Season is a meteorological season.
type Season string

const (
	SeasonWinter Season = "Winter"
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonFall   Season = "Fall"
)

// SeasonForMonth maps a calendar month to its season.
func SeasonForMonth(m time.Month) Season {
	switch m {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonFall
	}
}

// Scenario is an overall household demand level.
type Scenario string

const (
	ScenarioLow          Scenario = "low"
	ScenarioModerate     Scenario = "moderate"
	ScenarioAboveAverage Scenario = "above_average"
	ScenarioHigh         Scenario = "high"
	ScenarioVeryHigh     Scenario = "very_high"
	ScenarioAlarming     Scenario = "alarming"
)

// Scenarios lists every scenario from lowest to highest demand.
var Scenarios = []Scenario{
	ScenarioLow,
	ScenarioModerate,
	ScenarioAboveAverage,
	ScenarioHigh,
	ScenarioVeryHigh,
	ScenarioAlarming,
}

// ParseScenario returns the scenario with the given label.
func ParseScenario(label string) (Scenario, bool) {
	for _, s := range Scenarios {
		if string(s) == label {
			return s, true
		}
	}
	return "", false
}
