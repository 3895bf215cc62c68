package forecast

// Usage tier thresholds in kWh.
const (
	HighUsageThreshold     = 600
	ModerateUsageThreshold = 400
)

// UsageSuggestions returns advice for a monthly usage figure. It does not
// need a fitted model.
func UsageSuggestions(usage float64) []string {
	switch {
	case usage > HighUsageThreshold:
		return []string{
			"Your usage is very high. Consider insulation improvements and a smart thermostat.",
			"Use off-peak hours for laundry or dishwashing to reduce costs.",
			"Check for air leaks around doors/windows to reduce heating/cooling loss.",
		}
	case usage > ModerateUsageThreshold:
		return []string{
			"Moderate usage. Switch to LED bulbs and unplug idle electronics.",
			"Monitor large appliances and consider scheduling usage for off-peak hours.",
			"Close curtains at night to retain heat in winter (or block heat in summer).",
		}
	default:
		return []string{
			"Your usage is relatively low. Keep up the good work!",
			"Maintain energy-efficient habits like using cold water for laundry.",
			"Regularly clean or replace HVAC filters for maximum efficiency.",
		}
	}
}
