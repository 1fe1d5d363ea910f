package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	require.Equal(t, 20, catalog.Len())
	assert.Equal(t, "tomato", catalog.IDs()[0])

	for _, e := range catalog.Entries() {
		assert.Greater(t, e.BasePrice, 0.0, e.ID)
		assert.GreaterOrEqual(t, e.SeasonalAmplitude, 0.0, e.ID)
		assert.LessOrEqual(t, e.SeasonalAmplitude, 1.0, e.ID)
		assert.Greater(t, e.SeasonalCycleDays, 0, e.ID)
		assert.Contains(t, []VolatilityTier{VolatilityHigh, VolatilityMedium, VolatilityLow}, e.Tier, e.ID)
	}
}

func TestNudgeLeavesOldSnapshotIntact(t *testing.T) {
	catalog := DefaultCatalog()
	before := catalog.Entries()

	oldPrice, newPrice, ok := catalog.Nudge("peas", 100, 0.05)

	require.True(t, ok)
	assert.Equal(t, 80.0, oldPrice)
	assert.Equal(t, 81.0, newPrice)
	assert.Equal(t, 80.0, before[13].BasePrice)

	_, _, ok = catalog.Nudge("dragon_fruit", 100, 0.05)
	assert.False(t, ok)
}
