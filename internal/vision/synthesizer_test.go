package vision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vegprice-service/internal/domain/produce"
)

func TestSynthesizeBoundingBoxInsideImage(t *testing.T) {
	fixed := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	synth := NewSynthesizer(func() time.Time { return fixed })

	shapes := [][2]int{{1, 1}, {1, 7}, {7, 1}, {2, 3}, {10, 10}, {480, 640}, {1080, 1920}}
	vegetables := append(append([]string(nil), Vegetables...), "dragon_fruit")

	for _, shape := range shapes {
		height, width := shape[0], shape[1]
		for _, vegetable := range vegetables {
			for seed := uint64(0); seed < 40; seed++ {
				det, err := synth.Synthesize(vegetable, height, width, seeded(seed))
				require.NoError(t, err)

				b := det.BBox
				require.True(t, 0 <= b.X1 && b.X1 < b.X2 && b.X2 <= width, "x span %+v for width %d", b, width)
				require.True(t, 0 <= b.Y1 && b.Y1 < b.Y2 && b.Y2 <= height, "y span %+v for height %d", b, height)
				require.Equal(t, produce.MethodHeuristic, det.DetectionMethod)
				require.Equal(t, fixed, det.Timestamp)
			}
		}
	}
}

func TestSynthesizeConfidenceAndQuantity(t *testing.T) {
	synth := NewSynthesizer(nil)

	for _, vegetable := range append(append([]string(nil), Vegetables...), "dragon_fruit") {
		qr, ok := quantityRanges[vegetable]
		if !ok {
			qr = defaultQuantityRange
		}
		base := confidenceBase(vegetable)

		for seed := uint64(0); seed < 100; seed++ {
			det, err := synth.Synthesize(vegetable, 480, 640, seeded(seed))
			require.NoError(t, err)

			assert.GreaterOrEqual(t, det.Confidence, minConfidence)
			assert.LessOrEqual(t, det.Confidence, maxConfidence)
			assert.InDelta(t, base, det.Confidence, confidenceJitter+0.001)

			assert.Greater(t, det.QuantityKg, 0.0)
			assert.GreaterOrEqual(t, det.QuantityKg, qr.Min-0.005)
			assert.LessOrEqual(t, det.QuantityKg, qr.Max+0.005)
		}
	}
}

func TestSynthesizeRejectsZeroArea(t *testing.T) {
	synth := NewSynthesizer(nil)

	for _, shape := range [][2]int{{0, 0}, {0, 10}, {10, 0}, {-1, 5}} {
		_, err := synth.Synthesize("tomato", shape[0], shape[1], seeded(1))
		require.ErrorIs(t, err, produce.ErrInvalidInput)
	}
}

func TestConfidenceBase(t *testing.T) {
	assert.Equal(t, 0.85, confidenceBase("tomato"))
	assert.Equal(t, 0.75, confidenceBase("cucumber"))
	assert.Equal(t, 0.65, confidenceBase("garlic"))
	assert.Equal(t, 0.65, confidenceBase("unknown"))
}
