package pricing

// Reference catalog, INR per kg.
var defaultEntries = []CatalogEntry{
	{ID: "tomato", BasePrice: 28, SeasonalAmplitude: 0.2, SeasonalCycleDays: 90, Tier: VolatilityHigh},
	{ID: "onion", BasePrice: 35, SeasonalAmplitude: 0.3, SeasonalCycleDays: 120, Tier: VolatilityHigh},
	{ID: "potato", BasePrice: 25, SeasonalAmplitude: 0.15, SeasonalCycleDays: 180, Tier: VolatilityLow},
	{ID: "carrot", BasePrice: 45, SeasonalAmplitude: 0.25, SeasonalCycleDays: 90, Tier: VolatilityMedium},
	{ID: "cauliflower", BasePrice: 40, SeasonalAmplitude: 0.35, SeasonalCycleDays: 60, Tier: VolatilityLow},
	{ID: "brinjal", BasePrice: 35, SeasonalAmplitude: 0.2, SeasonalCycleDays: 120, Tier: VolatilityLow},
	{ID: "cabbage", BasePrice: 20, SeasonalAmplitude: 0.3, SeasonalCycleDays: 60, Tier: VolatilityLow},
	{ID: "capsicum", BasePrice: 60, SeasonalAmplitude: 0.15, SeasonalCycleDays: 90, Tier: VolatilityMedium},
	{ID: "cucumber", BasePrice: 30, SeasonalAmplitude: 0.2, SeasonalCycleDays: 90, Tier: VolatilityLow},
	{ID: "radish", BasePrice: 25, SeasonalAmplitude: 0.25, SeasonalCycleDays: 60, Tier: VolatilityLow},
	{ID: "beetroot", BasePrice: 55, SeasonalAmplitude: 0.2, SeasonalCycleDays: 120, Tier: VolatilityLow},
	{ID: "spinach", BasePrice: 40, SeasonalAmplitude: 0.3, SeasonalCycleDays: 45, Tier: VolatilityLow},
	{ID: "okra", BasePrice: 45, SeasonalAmplitude: 0.25, SeasonalCycleDays: 90, Tier: VolatilityMedium},
	{ID: "peas", BasePrice: 80, SeasonalAmplitude: 0.4, SeasonalCycleDays: 60, Tier: VolatilityMedium},
	{ID: "ginger", BasePrice: 150, SeasonalAmplitude: 0.1, SeasonalCycleDays: 180, Tier: VolatilityLow},
	{ID: "garlic", BasePrice: 250, SeasonalAmplitude: 0.15, SeasonalCycleDays: 180, Tier: VolatilityLow},
	{ID: "coriander", BasePrice: 60, SeasonalAmplitude: 0.35, SeasonalCycleDays: 30, Tier: VolatilityHigh},
	{ID: "chilli", BasePrice: 120, SeasonalAmplitude: 0.2, SeasonalCycleDays: 120, Tier: VolatilityHigh},
	{ID: "bell_pepper", BasePrice: 70, SeasonalAmplitude: 0.2, SeasonalCycleDays: 90, Tier: VolatilityLow},
	{ID: "corn", BasePrice: 40, SeasonalAmplitude: 0.3, SeasonalCycleDays: 90, Tier: VolatilityLow},
}

type Location struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

var defaultLocations = []Location{
	{Name: "Delhi", Factor: 1.0},
	{Name: "Mumbai", Factor: 1.25},
	{Name: "Bangalore", Factor: 1.15},
	{Name: "Chennai", Factor: 1.05},
	{Name: "Kolkata", Factor: 0.85},
	{Name: "Hyderabad", Factor: 0.95},
}

const DefaultLocation = "Delhi"

type noiseRange struct {
	Min float64
	Max float64
}

var volatilityRanges = map[VolatilityTier]noiseRange{
	VolatilityHigh:   {0.85, 1.15},
	VolatilityMedium: {0.90, 1.10},
	VolatilityLow:    {0.95, 1.05},
}

var (
	dailyVariation = noiseRange{0.95, 1.05}
	trendVariation = noiseRange{0.95, 1.05}
	historyJitter  = noiseRange{0.85, 1.15}
)

const (
	fallbackPrice = 30.0

	defaultSeasonalAmplitude = 0.1
	defaultSeasonalCycleDays = 90
	minSeasonalFactor        = 0.5
	maxSeasonalFactor        = 2.0

	trendBand = 0.02
)
