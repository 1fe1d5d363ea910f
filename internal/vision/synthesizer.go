package vision

import (
	"fmt"
	"time"

	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/utils"
)

const (
	confidenceJitter = 0.15
	minConfidence    = 0.5
	maxConfidence    = 0.98
	boxJitterMin     = 0.8
	boxJitterMax     = 1.2
)

// Synthesizer fabricates a detection record for a vegetable the selector picked.
type Synthesizer struct {
	quantities map[string]quantityRange
	boxFactors map[string]float64
	now        func() time.Time
}

func NewSynthesizer(now func() time.Time) *Synthesizer {
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{
		quantities: quantityRanges,
		boxFactors: boxSizeFactors,
		now:        now,
	}
}

func (s *Synthesizer) Synthesize(vegetable string, height, width int, rng Rand) (produce.RawDetection, error) {
	if height <= 0 || width <= 0 {
		return produce.RawDetection{}, fmt.Errorf("%w: image has zero area (%dx%d)", produce.ErrInvalidInput, width, height)
	}

	confidence := confidenceBase(vegetable) + uniform(rng, -confidenceJitter, confidenceJitter)
	confidence = min(maxConfidence, max(minConfidence, confidence))

	qr, ok := s.quantities[vegetable]
	if !ok {
		qr = defaultQuantityRange
	}
	quantity := utils.Round(uniform(rng, qr.Min, qr.Max), 2)

	factor, ok := s.boxFactors[vegetable]
	if !ok {
		factor = defaultBoxSizeFactor
	}
	x1, x2 := placeSpan(rng, width, factor)
	y1, y2 := placeSpan(rng, height, factor)

	return produce.RawDetection{
		Vegetable:       vegetable,
		Confidence:      utils.Round(confidence, 3),
		QuantityKg:      quantity,
		BBox:            produce.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
		DetectionMethod: produce.MethodHeuristic,
		Timestamp:       s.now(),
	}, nil
}

// placeSpan picks [lo, hi) inside [0, extent) with lo < hi.
func placeSpan(rng Rand, extent int, factor float64) (int, int) {
	size := int(float64(extent) * factor * uniform(rng, boxJitterMin, boxJitterMax))
	size = min(extent, max(1, size))

	lo := rng.IntN(max(1, extent-size) + 1)
	if lo > extent-1 {
		lo = extent - 1
	}
	hi := min(extent, lo+size)
	return lo, hi
}
