package pricing

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/utils"
)

// Rand is the subset of math/rand/v2.Rand the engine draws from.
type Rand interface {
	Float64() float64
}

func (r noiseRange) draw(rng Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Engine simulates market prices on top of the catalog. Nothing is cached:
// every call samples fresh noise from the generator it is given.
type Engine struct {
	catalog   *Catalog
	locations []Location
	factors   map[string]float64
	now       func() time.Time
}

func NewEngine(catalog *Catalog, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	factors := make(map[string]float64, len(defaultLocations))
	for _, l := range defaultLocations {
		factors[l.Name] = l.Factor
	}
	return &Engine{
		catalog:   catalog,
		locations: defaultLocations,
		factors:   factors,
		now:       now,
	}
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

func (e *Engine) Locations() []Location {
	return append([]Location(nil), e.locations...)
}

func (e *Engine) LocationFactor(location string) float64 {
	if f, ok := e.factors[location]; ok {
		return f
	}
	return 1.0
}

// SeasonalFactor is 1 + amplitude*sin(2*pi*day/cycle), clamped to [0.5, 2.0].
func (e *Engine) SeasonalFactor(vegetable string, dayOfYear int) float64 {
	amplitude, cycle := defaultSeasonalAmplitude, defaultSeasonalCycleDays
	if entry, ok := e.catalog.Entry(vegetable); ok {
		amplitude, cycle = entry.SeasonalAmplitude, entry.SeasonalCycleDays
	}
	if cycle <= 0 {
		cycle = defaultSeasonalCycleDays
	}

	factor := 1 + amplitude*math.Sin(2*math.Pi*float64(dayOfYear)/float64(cycle))
	return math.Max(minSeasonalFactor, math.Min(maxSeasonalFactor, factor))
}

func (e *Engine) VolatilityFactor(rng Rand, vegetable string) float64 {
	tier := VolatilityLow
	if entry, ok := e.catalog.Entry(vegetable); ok {
		tier = entry.Tier
	}
	r, ok := volatilityRanges[tier]
	if !ok {
		r = volatilityRanges[VolatilityLow]
	}
	return r.draw(rng)
}

// Price returns the simulated price per kg. Unknown vegetables get a flat fallback.
func (e *Engine) Price(rng Rand, vegetable, location string) float64 {
	base, ok := e.catalog.BasePrice(vegetable)
	if !ok {
		return fallbackPrice
	}

	price := base *
		e.LocationFactor(location) *
		e.SeasonalFactor(vegetable, e.now().YearDay()) *
		dailyVariation.draw(rng) *
		e.VolatilityFactor(rng, vegetable)

	return utils.Round(price, 2)
}

func (e *Engine) Quote(rng Rand, vegetable, location string) produce.PriceQuote {
	return produce.PriceQuote{
		Vegetable:  vegetable,
		Location:   location,
		PricePerKg: e.Price(rng, vegetable, location),
		Currency:   produce.Currency,
		Unit:       produce.Unit,
		ComputedAt: e.now(),
		Source:     produce.MethodHeuristic,
	}
}

func (e *Engine) PredictPrice(rng Rand, vegetable, location string) float64 {
	current := e.Price(rng, vegetable, location)
	return utils.Round(current*trendVariation.draw(rng), 2)
}

// PriceHistory jitters one anchor price (today's) over the requested days, oldest first.
// It is not a compounding time series.
func (e *Engine) PriceHistory(rng Rand, vegetable, location string, days int) []produce.HistoryPoint {
	if days <= 0 {
		return []produce.HistoryPoint{}
	}

	anchor := e.Price(rng, vegetable, location)
	now := e.now()

	history := make([]produce.HistoryPoint, days)
	for i := 0; i < days; i++ {
		history[days-1-i] = produce.HistoryPoint{
			Date:      now.AddDate(0, 0, -i),
			Price:     utils.Round(anchor*historyJitter.draw(rng), 2),
			Vegetable: vegetable,
			Location:  location,
		}
	}
	return history
}

// MarketSummary buckets every catalog vegetable with a 2% band, while the per-item
// trend compares predicted and current directly.
func (e *Engine) MarketSummary(rng Rand, location string) produce.MarketSummary {
	ids := e.catalog.IDs()
	summary := produce.MarketSummary{
		Location:        location,
		Date:            e.now(),
		TotalVegetables: len(ids),
		PriceRanges:     make(map[string]produce.PriceRange, len(ids)),
		TrendingUp:      []string{},
		TrendingDown:    []string{},
		Stable:          []string{},
	}

	currents := make([]float64, 0, len(ids))
	for _, vegetable := range ids {
		current := e.Price(rng, vegetable, location)
		predicted := e.PredictPrice(rng, vegetable, location)
		currents = append(currents, current)

		switch {
		case predicted > current*(1+trendBand):
			summary.TrendingUp = append(summary.TrendingUp, vegetable)
		case predicted < current*(1-trendBand):
			summary.TrendingDown = append(summary.TrendingDown, vegetable)
		default:
			summary.Stable = append(summary.Stable, vegetable)
		}

		trend := produce.TrendStable
		if predicted > current {
			trend = produce.TrendUp
		} else if predicted < current {
			trend = produce.TrendDown
		}
		summary.PriceRanges[vegetable] = produce.PriceRange{
			Current:   current,
			Predicted: predicted,
			Trend:     trend,
		}
	}

	if len(currents) > 1 {
		mean, std := stat.MeanStdDev(currents, nil)
		summary.AveragePrice = utils.Round(mean, 2)
		summary.PriceStdDev = utils.Round(std, 2)
	} else if len(currents) == 1 {
		summary.AveragePrice = currents[0]
	}

	return summary
}
