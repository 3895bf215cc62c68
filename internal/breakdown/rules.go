package breakdown

import (
	"fmt"

	"github.com/shem-project/shem/internal/models"
)

var generalSuggestions = []string{
	"Review your usage breakdown each month to spot changes early.",
	"Shift flexible loads such as laundry and dishwashing to off-peak hours.",
}

var ratingSuggestions = map[Rating]string{
	RatingA: "Excellent efficiency. Keep maintaining your current habits.",
	RatingB: "Good efficiency. Small changes like LED lighting can earn an A.",
	RatingC: "Average efficiency. Target your largest categories for savings.",
	RatingD: "Below average efficiency. Consider an energy audit of your home.",
	RatingF: "Poor efficiency. Usage is very high; prioritize insulation and heating upgrades.",
}

// categoryRule fires when a category's share exceeds its threshold.
type categoryRule struct {
	threshold       float64
	winterThreshold float64
	advice          string
}

func (r categoryRule) limit(season models.Season) float64 {
	if season == models.SeasonWinter && r.winterThreshold > 0 {
		return r.winterThreshold
	}
	return r.threshold
}

var categoryRules = map[string]categoryRule{
	models.CategoryHeating: {
		threshold: 25, winterThreshold: 30,
		advice: "Heating dominates your usage. Lower the thermostat by 1-2 degrees and seal drafts.",
	},
	models.CategoryHVAC: {
		threshold: 25, winterThreshold: 30,
		advice: "HVAC is a large share. Service the system and replace filters regularly.",
	},
	models.CategoryWaterHeating: {
		threshold: 20,
		advice:    "Water heating is high. Lower the heater temperature and insulate hot water pipes.",
	},
	models.CategoryLighting: {
		threshold: 15,
		advice:    "Lighting is high. Switch to LED bulbs and use daylight where possible.",
	},
	models.CategoryCooking: {
		threshold: 15,
		advice:    "Cooking is high. Use lids, match pan size to burners and batch-cook meals.",
	},
	models.CategoryEntertainment: {
		threshold: 12,
		advice:    "Entertainment is high. Turn devices fully off instead of leaving them on standby.",
	},
	models.CategoryRefrigeration: {
		threshold: 12,
		advice:    "Refrigeration is high. Check door seals and keep coils clean.",
	},
	models.CategoryAlwaysOn: {
		threshold: 8,
		advice:    "Always-on load is high. Use smart power strips to cut idle draw.",
	},
	models.CategoryOther: {
		threshold: 15,
		advice:    "Other usage is high. Audit miscellaneous appliances for waste.",
	},
}

// defaultRuleThreshold applies to categories without a specific rule.
const defaultRuleThreshold = 25

// Suggest derives suggestions from the report's rating, season and shares.
func Suggest(r Report) []string {
	out := make([]string, 0, len(generalSuggestions)+1+len(r.ByCategory))
	out = append(out, generalSuggestions...)
	out = append(out, ratingSuggestions[r.Rating])

	for _, name := range r.Categories() {
		share := r.ByCategory[name].UsagePercentage
		rule, ok := categoryRules[name]
		if !ok {
			if share > defaultRuleThreshold {
				out = append(out, fmt.Sprintf("%s accounts for %.1f%% of your usage. Look for ways to reduce it.", name, share))
			}
			continue
		}
		if share > rule.limit(r.Season) {
			out = append(out, rule.advice)
		}
	}
	return out
}
