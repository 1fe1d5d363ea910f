package pricing

import (
	"sync"
	"sync/atomic"

	"vegprice-service/internal/utils"
)

type VolatilityTier string

const (
	VolatilityHigh   VolatilityTier = "HIGH"
	VolatilityMedium VolatilityTier = "MEDIUM"
	VolatilityLow    VolatilityTier = "LOW"
)

type CatalogEntry struct {
	ID                string         `json:"id"`
	BasePrice         float64        `json:"base_price"`
	SeasonalAmplitude float64        `json:"seasonal_amplitude"`
	SeasonalCycleDays int            `json:"seasonal_cycle_days"`
	Tier              VolatilityTier `json:"volatility_tier"`
}

type catalogSnapshot struct {
	order   []string
	entries map[string]CatalogEntry
}

// Catalog хранит базовые цены. Читатели получают неизменяемый снимок без блокировки,
// запись идёт только через Nudge под мьютексом (copy-on-write).
type Catalog struct {
	mu   sync.Mutex
	snap atomic.Pointer[catalogSnapshot]
}

func NewCatalog(entries []CatalogEntry) *Catalog {
	snap := &catalogSnapshot{
		order:   make([]string, 0, len(entries)),
		entries: make(map[string]CatalogEntry, len(entries)),
	}
	for _, e := range entries {
		if _, dup := snap.entries[e.ID]; dup {
			continue
		}
		snap.order = append(snap.order, e.ID)
		snap.entries[e.ID] = e
	}

	c := &Catalog{}
	c.snap.Store(snap)
	return c
}

func DefaultCatalog() *Catalog {
	return NewCatalog(defaultEntries)
}

func (c *Catalog) Entry(id string) (CatalogEntry, bool) {
	e, ok := c.snap.Load().entries[id]
	return e, ok
}

func (c *Catalog) BasePrice(id string) (float64, bool) {
	e, ok := c.Entry(id)
	return e.BasePrice, ok
}

func (c *Catalog) IDs() []string {
	return append([]string(nil), c.snap.Load().order...)
}

// Entries returns a consistent copy of the whole catalog in catalog order.
func (c *Catalog) Entries() []CatalogEntry {
	snap := c.snap.Load()
	out := make([]CatalogEntry, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, snap.entries[id])
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.snap.Load().order)
}

// Nudge moves a base price toward an observed price by weight and rounds to cents.
// It is the only way a base price changes.
func (c *Catalog) Nudge(id string, observed, weight float64) (oldPrice, newPrice float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snap.Load()
	entry, ok := current.entries[id]
	if !ok {
		return 0, 0, false
	}

	oldPrice = entry.BasePrice
	entry.BasePrice = utils.Round(oldPrice+(observed-oldPrice)*weight, 2)

	next := &catalogSnapshot{
		order:   current.order,
		entries: make(map[string]CatalogEntry, len(current.entries)),
	}
	for k, v := range current.entries {
		next.entries[k] = v
	}
	next.entries[id] = entry
	c.snap.Store(next)

	return oldPrice, entry.BasePrice, true
}
