package vision

const (
	explorationSamples = 2
	maxTargetCount     = 4
)

// Selector turns color labels into a small set of plausible vegetables.
type Selector struct {
	vegetables   []string
	colorMap     map[ColorLabel][]string
	weights      map[string]float64
	combinations [][]string
}

func NewSelector() *Selector {
	return &Selector{
		vegetables:   Vegetables,
		colorMap:     colorVegetables,
		weights:      detectionWeights,
		combinations: realisticCombinations,
	}
}

// orderedSet keeps insertion order so the same seed always yields the same selection.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.items = append(s.items, v)
	}
}

func (s *orderedSet) len() int { return len(s.items) }

// Candidates expands labels through the color table and adds exploration noise.
func (s *Selector) Candidates(labels LabelSet, rng Rand) []string {
	pool := newOrderedSet()
	for _, label := range labels.Labels() {
		pool.add(s.colorMap[label]...)
	}
	pool.add(sampleDistinct(rng, s.vegetables, explorationSamples)...)
	return pool.items
}

// Select returns at most four distinct vegetables.
// The target count is drawn from [1, min(4, pool)] before the seasonal filter runs,
// and one realistic combination tops up the survivors when they fall short.
func (s *Selector) Select(labels LabelSet, rng Rand) []string {
	pool := s.Candidates(labels, rng)
	if len(pool) == 0 {
		return nil
	}

	target := 1 + rng.IntN(min(maxTargetCount, len(pool)))

	kept := newOrderedSet()
	for _, vegetable := range pool {
		weight, ok := s.weights[vegetable]
		if !ok {
			weight = defaultDetectionWeight
		}
		if rng.Float64() < weight {
			kept.add(vegetable)
		}
	}

	if kept.len() < target && len(s.combinations) > 0 {
		kept.add(s.combinations[rng.IntN(len(s.combinations))]...)
	}

	return sampleDistinct(rng, kept.items, min(target, kept.len()))
}
