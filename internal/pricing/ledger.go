package pricing

import (
	"math"
	"strings"
	"sync"
	"time"

	"vegprice-service/internal/domain/produce"
)

// contributionWeight is how far one contribution pulls the base price toward itself.
const contributionWeight = 0.05

// Receipt is a recorded contribution plus the base price move it caused, if any.
type Receipt struct {
	produce.Contribution
	Adjusted bool
	OldBase  float64
	NewBase  float64
}

// Ledger is the append-only list of user price contributions.
type Ledger struct {
	mu      sync.Mutex
	catalog *Catalog
	entries []produce.Contribution
	now     func() time.Time
}

func NewLedger(catalog *Catalog, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{catalog: catalog, now: now}
}

func validContribution(in produce.ContributionInput) bool {
	if strings.TrimSpace(in.Vegetable) == "" ||
		strings.TrimSpace(in.Location) == "" ||
		strings.TrimSpace(in.SubmittedBy) == "" {
		return false
	}
	return in.Price > 0 && !math.IsInf(in.Price, 0) && !math.IsNaN(in.Price)
}

// Add records a contribution and nudges the base price of a known vegetable.
// A malformed record returns false and leaves both the ledger and the catalog untouched.
func (l *Ledger) Add(in produce.ContributionInput) (Receipt, bool) {
	if !validContribution(in) {
		return Receipt{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c := produce.Contribution{
		ID:          int64(len(l.entries)) + 1,
		Vegetable:   in.Vegetable,
		Price:       in.Price,
		Location:    in.Location,
		SubmittedBy: in.SubmittedBy,
		Timestamp:   l.now(),
	}
	l.entries = append(l.entries, c)

	// Неизвестные овощи попадают в журнал, но цены не трогают.
	oldBase, newBase, adjusted := l.catalog.Nudge(c.Vegetable, c.Price, contributionWeight)

	return Receipt{Contribution: c, Adjusted: adjusted, OldBase: oldBase, NewBase: newBase}, true
}

func (l *Ledger) List() []produce.Contribution {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]produce.Contribution(nil), l.entries...)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
