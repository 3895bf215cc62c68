package models

// Household categories.
const (
	CategoryHeating       = "Heating"
	CategoryWaterHeating  = "Water Heating"
	CategoryLighting      = "Lighting"
	CategoryCooking       = "Cooking"
	CategoryEntertainment = "Entertainment"
	CategoryRefrigeration = "Refrigeration"
	CategoryAlwaysOn      = "Always On"
	CategoryOther         = "Other"
	CategoryHVAC          = "HVAC"
)

// CategoryBaseline pairs a category with its nominal monthly usage.
type CategoryBaseline struct {
	// Name is the category name (e.g., "Heating").
	Name string `json:"name" mapstructure:"name"`

	// BaseUsageKWh is the nominal usage for one month.
	BaseUsageKWh float64 `json:"base_usage_kwh" mapstructure:"base_usage_kwh"`
}

// DefaultCategories returns the standard household sensor set.
func DefaultCategories() []CategoryBaseline {
	return []CategoryBaseline{
		{Name: CategoryHeating, BaseUsageKWh: 300},
		{Name: CategoryWaterHeating, BaseUsageKWh: 250},
		{Name: CategoryLighting, BaseUsageKWh: 200},
		{Name: CategoryCooking, BaseUsageKWh: 150},
		{Name: CategoryEntertainment, BaseUsageKWh: 150},
		{Name: CategoryRefrigeration, BaseUsageKWh: 100},
		{Name: CategoryAlwaysOn, BaseUsageKWh: 50},
		{Name: CategoryOther, BaseUsageKWh: 100},
		{Name: CategoryHVAC, BaseUsageKWh: 350},
	}
}
