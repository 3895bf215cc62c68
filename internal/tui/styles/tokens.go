package styles

import "github.com/shem-project/shem/internal/models"

// Palette assigns a color to each display role of the monitor.
type Palette struct {
	Name string

	Text      string
	TextMuted string
	Accent    string

	// Rule colors panel borders and the empty part of usage bars.
	Rule  string
	Usage string

	// Ratings A and B, C and D, F.
	Efficient  string
	Borderline string
	Wasteful   string

	// Demand holds one color per scenario, ordered like models.Scenarios.
	Demand [6]string

	// Fault marks errors and sensor malfunctions.
	Fault string
}

// DemandColor returns the color for a scenario, or TextMuted when unknown.
func (p Palette) DemandColor(s models.Scenario) string {
	for i, known := range models.Scenarios {
		if known == s && i < len(p.Demand) {
			return p.Demand[i]
		}
	}
	return p.TextMuted
}

// Palettes lists the selectable palettes by config name.
var Palettes = map[string]Palette{
	Standard.Name:     Standard,
	HighContrast.Name: HighContrast,
}
