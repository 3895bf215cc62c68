package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/shem-project/shem/internal/models"
)

func TestPalettesAreKeyedByName(t *testing.T) {
	for key, p := range Palettes {
		if key != p.Name {
			t.Errorf("palette %q registered as %q", p.Name, key)
		}
	}
	for _, name := range []string{"default", "high-contrast"} {
		if _, ok := Palettes[name]; !ok {
			t.Errorf("missing palette %q", name)
		}
	}
}

func TestEveryPaletteColorsEveryScenario(t *testing.T) {
	if len(models.Scenarios) != len(Standard.Demand) {
		t.Fatalf("%d scenarios but %d demand colors", len(models.Scenarios), len(Standard.Demand))
	}
	for _, p := range Palettes {
		seen := map[string]bool{}
		for _, sc := range models.Scenarios {
			color := p.DemandColor(sc)
			if color == "" || color == p.TextMuted {
				t.Errorf("%s: scenario %s has no demand color", p.Name, sc)
			}
			if seen[color] {
				t.Errorf("%s: scenario %s reuses color %s", p.Name, sc, color)
			}
			seen[color] = true
		}
	}
}

func TestDemandColorUnknownScenario(t *testing.T) {
	if got := Standard.DemandColor("off_the_charts"); got != Standard.TextMuted {
		t.Errorf("unknown scenario color = %s, want muted %s", got, Standard.TextMuted)
	}
}

func TestForThemeFallsBackToStandard(t *testing.T) {
	if got := ForTheme("solarized").Palette.Name; got != Standard.Name {
		t.Errorf("unknown theme resolved to %q", got)
	}
	if got := ForTheme("high-contrast").Palette.Name; got != HighContrast.Name {
		t.Errorf("high-contrast resolved to %q", got)
	}
}

func TestRatingStylesUseRatingColors(t *testing.T) {
	s := BuildStyles(HighContrast)
	cases := []struct {
		name  string
		style lipgloss.Style
		want  string
	}{
		{"good", s.RatingGood, HighContrast.Efficient},
		{"fair", s.RatingFair, HighContrast.Borderline},
		{"poor", s.RatingPoor, HighContrast.Wasteful},
		{"alarming", s.Scenario(models.ScenarioAlarming), HighContrast.Demand[5]},
	}
	for _, tc := range cases {
		if got := tc.style.GetForeground(); got != lipgloss.Color(tc.want) {
			t.Errorf("%s foreground = %v, want %s", tc.name, got, tc.want)
		}
	}
	if !s.Scenario(models.ScenarioAlarming).GetBold() {
		t.Error("alarming scenario should be bold")
	}
}
