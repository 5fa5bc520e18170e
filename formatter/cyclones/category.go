package cyclones

import "github.com/reefworks/domaingen/formatter"

// categoryBounds are the standard tropical-cyclone intensity bands in m/s,
// indexed by category 1 through 5. Category 5 is open-ended upward; its
// nominal upper bound gives the band a finite midpoint.
var categoryBounds = [5][2]float64{
	{33, 42},
	{43, 49},
	{50, 58},
	{59, 69},
	{70, 85},
}

// CategoryWindspeed converts an ordinal cyclone category to its
// representative mean windspeed, the midpoint of the category's intensity
// band. Category 0 means no cyclone and maps to 0.
func CategoryWindspeed(category int) (float64, error) {
	if category == 0 {
		return 0, nil
	}
	if category < 0 || category > 5 {
		return 0, &formatter.UnknownCategoryError{Value: category}
	}
	b := categoryBounds[category-1]
	return (b[0] + b[1]) / 2, nil
}
