package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/shem-project/shem/internal/tui/styles"
)

// UsageBar is a horizontal bar for one category's share of a period.
type UsageBar struct {
	Label   string
	Percent float64
	Width   int
}

// Render draws the bar followed by the percentage.
func (b UsageBar) Render(styleSet styles.Styles, labelWidth int) string {
	width := b.Width
	if width <= 0 {
		width = 20
	}
	pct := math.Max(0, math.Min(100, b.Percent))
	filled := int(math.Round(pct / 100 * float64(width)))

	bar := styleSet.Bar.Render(strings.Repeat("█", filled)) +
		styleSet.Border.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%-*s %s %5.1f%%", labelWidth, b.Label, bar, pct)
}
