package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/shem-project/shem/internal/breakdown"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/tui/styles"
)

// RenderRatingBadge renders an efficiency rating with its color.
func RenderRatingBadge(styleSet styles.Styles, rating breakdown.Rating) string {
	return ratingStyle(styleSet, rating).Render(fmt.Sprintf("[%s]", rating))
}

func ratingStyle(styleSet styles.Styles, rating breakdown.Rating) lipgloss.Style {
	switch rating {
	case breakdown.RatingA, breakdown.RatingB:
		return styleSet.RatingGood
	case breakdown.RatingC, breakdown.RatingD:
		return styleSet.RatingFair
	case breakdown.RatingF:
		return styleSet.RatingPoor
	default:
		return styleSet.Muted
	}
}

// RenderScenarioBadge renders a demand scenario label.
func RenderScenarioBadge(styleSet styles.Styles, scenario models.Scenario) string {
	if scenario == "" {
		return styleSet.Muted.Render("-")
	}
	return styleSet.Scenario(scenario).Render(string(scenario))
}
