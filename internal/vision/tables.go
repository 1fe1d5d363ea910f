package vision

type ColorLabel string

const (
	ColorRed    ColorLabel = "red"
	ColorOrange ColorLabel = "orange"
	ColorYellow ColorLabel = "yellow"
	ColorGreen  ColorLabel = "green"
	ColorBrown  ColorLabel = "brown"
	ColorWhite  ColorLabel = "white"
	// ColorPurple has a vegetable mapping but no histogram rule, so Analyze never emits it.
	ColorPurple ColorLabel = "purple"
)

var colorOrder = []ColorLabel{ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBrown, ColorWhite, ColorPurple}

// Vegetables is the detector catalog, in display order.
var Vegetables = []string{
	"tomato", "onion", "potato", "carrot", "cauliflower",
	"brinjal", "cabbage", "capsicum", "cucumber", "radish",
	"beetroot", "spinach", "okra", "peas", "ginger",
	"garlic", "coriander", "chilli", "bell_pepper", "corn",
}

var colorVegetables = map[ColorLabel][]string{
	ColorRed:    {"tomato", "chilli", "bell_pepper"},
	ColorOrange: {"carrot", "corn"},
	ColorYellow: {"corn", "onion"},
	ColorGreen:  {"cabbage", "spinach", "capsicum", "cucumber", "okra", "coriander"},
	ColorBrown:  {"potato", "onion", "ginger"},
	ColorWhite:  {"cauliflower", "radish", "garlic"},
	ColorPurple: {"brinjal", "onion", "beetroot"},
}

// detectionWeights is the probability that a candidate survives the seasonal filter.
// It models detection plausibility and is unrelated to the price seasonal cycle.
var detectionWeights = map[string]float64{
	"tomato": 0.95, "onion": 0.95, "potato": 0.95, "carrot": 0.85,
	"cauliflower": 0.75, "brinjal": 0.8, "cabbage": 0.8, "capsicum": 0.85,
	"cucumber": 0.85, "radish": 0.7, "beetroot": 0.7, "spinach": 0.75,
	"okra": 0.8, "peas": 0.65, "ginger": 0.9, "garlic": 0.9,
	"coriander": 0.85, "chilli": 0.9, "bell_pepper": 0.7, "corn": 0.6,
}

const defaultDetectionWeight = 0.7

var realisticCombinations = [][]string{
	{"tomato", "onion", "potato"},
	{"carrot", "capsicum", "cucumber"},
	{"cabbage", "cauliflower", "peas"},
	{"spinach", "coriander", "chilli"},
	{"brinjal", "okra", "tomato"},
	{"ginger", "garlic", "onion"},
	{"beetroot", "radish", "carrot"},
	{"corn", "bell_pepper", "cucumber"},
}

type quantityRange struct {
	Min float64
	Max float64
}

var quantityRanges = map[string]quantityRange{
	"tomato":      {0.3, 1.5},
	"onion":       {0.5, 2.0},
	"potato":      {0.5, 2.5},
	"carrot":      {0.2, 1.0},
	"cauliflower": {0.5, 1.2},
	"brinjal":     {0.25, 1.0},
	"cabbage":     {0.5, 1.5},
	"capsicum":    {0.15, 0.6},
	"cucumber":    {0.2, 0.8},
	"radish":      {0.2, 0.8},
	"beetroot":    {0.2, 0.8},
	"spinach":     {0.1, 0.5},
	"okra":        {0.1, 0.5},
	"peas":        {0.1, 0.5},
	"ginger":      {0.05, 0.25},
	"garlic":      {0.05, 0.15},
	"coriander":   {0.05, 0.2},
	"chilli":      {0.05, 0.25},
	"bell_pepper": {0.15, 0.6},
}

var defaultQuantityRange = quantityRange{0.1, 1.0}

// boxSizeFactors is the expected box side as a fraction of the image side.
var boxSizeFactors = map[string]float64{
	"cabbage":     0.4,
	"cauliflower": 0.35,
	"potato":      0.2,
	"onion":       0.18,
	"tomato":      0.18,
	"brinjal":     0.22,
	"cucumber":    0.25,
	"carrot":      0.2,
	"corn":        0.25,
	"spinach":     0.3,
	"coriander":   0.2,
	"beetroot":    0.15,
	"radish":      0.2,
	"capsicum":    0.16,
	"bell_pepper": 0.16,
	"okra":        0.1,
	"peas":        0.08,
	"ginger":      0.1,
	"chilli":      0.08,
	"garlic":      0.06,
}

const defaultBoxSizeFactor = 0.15

func confidenceBase(vegetable string) float64 {
	switch vegetable {
	case "tomato", "onion", "potato":
		return 0.85
	case "carrot", "capsicum", "cucumber":
		return 0.75
	default:
		return 0.65
	}
}
