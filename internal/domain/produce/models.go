package produce

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	MethodHeuristic = "smart_dummy"
	MethodModel     = "yolov8_real"

	Currency = "INR"
	Unit     = "kg"
)

// BBox в пикселях исходного изображения: 0 <= X1 < X2 <= width, 0 <= Y1 < Y2 <= height.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b BBox) Array() [4]int {
	return [4]int{b.X1, b.Y1, b.X2, b.Y2}
}

type RawDetection struct {
	Vegetable       string    `json:"vegetable"`
	Confidence      float64   `json:"confidence"`
	QuantityKg      float64   `json:"quantity_kg"`
	BBox            BBox      `json:"bbox"`
	DetectionMethod string    `json:"detection_method"`
	Timestamp       time.Time `json:"timestamp"`
}

type PricedDetection struct {
	Vegetable       string    `json:"vegetable"`
	QuantityKg      float64   `json:"quantity_kg"`
	Confidence      float64   `json:"confidence"`
	PricePerKg      float64   `json:"price_per_kg"`
	LineTotal       float64   `json:"line_total"`
	BBox            [4]int    `json:"bbox"`
	DetectionMethod string    `json:"detection_method"`
	Timestamp       time.Time `json:"timestamp"`
}

type PriceQuote struct {
	Vegetable  string    `json:"vegetable"`
	Location   string    `json:"location"`
	PricePerKg float64   `json:"price"`
	Currency   string    `json:"currency"`
	Unit       string    `json:"unit"`
	ComputedAt time.Time `json:"timestamp"`
	Source     string    `json:"source"`
}

type HistoryPoint struct {
	Date      time.Time `json:"date"`
	Price     float64   `json:"price"`
	Vegetable string    `json:"vegetable"`
	Location  string    `json:"location"`
}

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

type PriceRange struct {
	Current   float64 `json:"current"`
	Predicted float64 `json:"predicted"`
	Trend     Trend   `json:"trend"`
}

type MarketSummary struct {
	Location        string                `json:"location"`
	Date            time.Time             `json:"date"`
	TotalVegetables int                   `json:"total_vegetables"`
	AveragePrice    float64               `json:"average_price"`
	PriceStdDev     float64               `json:"price_stddev"`
	PriceRanges     map[string]PriceRange `json:"price_ranges"`
	TrendingUp      []string              `json:"trending_up"`
	TrendingDown    []string              `json:"trending_down"`
	Stable          []string              `json:"stable"`
}

type ContributionInput struct {
	Vegetable   string  `json:"vegetable"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
	SubmittedBy string  `json:"submitted_by"`
}

type Contribution struct {
	ID          int64     `json:"id"`
	Vegetable   string    `json:"vegetable"`
	Price       float64   `json:"price"`
	Location    string    `json:"location"`
	SubmittedBy string    `json:"submitted_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// Scan описывает один запрос распознавания для аудита.
type Scan struct {
	ID          uuid.UUID         `json:"id"`
	Location    string            `json:"location"`
	Method      string            `json:"detection_method"`
	Width       int               `json:"image_width"`
	Height      int               `json:"image_height"`
	SnapshotURL string            `json:"snapshot_url,omitempty"`
	Detections  []PricedDetection `json:"detections"`
	CreatedAt   time.Time         `json:"created_at"`
}
