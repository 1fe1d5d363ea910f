package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/pricing"
	"vegprice-service/internal/utils"
	"vegprice-service/internal/vision"
)

var (
	ErrInvalidInput  = produce.ErrInvalidInput
	ErrAuditDisabled = errors.New("scan audit is not configured")
)

const (
	maxHistoryDays     = 365
	defaultHistoryDays = 30
)

// Detector is a trained model that may or may not be reachable.
type Detector interface {
	Loaded() bool
	Detect(ctx context.Context, frame vision.Frame) ([]produce.RawDetection, error)
}

// AuditSink receives scans and contributions for write-only storage.
type AuditSink interface {
	RecordScan(ctx context.Context, scan *produce.Scan) error
	RecordContribution(ctx context.Context, receipt pricing.Receipt) error
	FindScans(ctx context.Context, location *string, from, to *time.Time, limit, offset int) ([]produce.Scan, error)
}

type ModelInfo struct {
	ModelType           string   `json:"model_type"`
	ModelLoaded         bool     `json:"model_loaded"`
	SupportedVegetables []string `json:"supported_vegetables"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
}

type Option func(*MarketService)

func WithDetector(d Detector) Option {
	return func(s *MarketService) { s.detector = d }
}

func WithAudit(a AuditSink) Option {
	return func(s *MarketService) { s.audit = a }
}

// WithRandSource sets the per-request generator factory.
func WithRandSource(src func() *rand.Rand) Option {
	return func(s *MarketService) { s.newRand = src }
}

func WithClock(now func() time.Time) Option {
	return func(s *MarketService) { s.now = now }
}

// WithDefaults sets the fallback location and threshold. A blank location keeps Delhi.
func WithDefaults(location string, threshold float64) Option {
	return func(s *MarketService) {
		if loc := utils.NormalizeLocation(location); loc != "" {
			s.defaultLocation = loc
		}
		s.threshold = threshold
	}
}

// NewRandSource returns a factory of independent generators. Seed 0 means
// nondeterministic; any other seed replays the same sequence of generators.
func NewRandSource(seed uint64) func() *rand.Rand {
	if seed == 0 {
		return func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}

	var mu sync.Mutex
	master := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func() *rand.Rand {
		mu.Lock()
		defer mu.Unlock()
		return rand.New(rand.NewPCG(master.Uint64(), master.Uint64()))
	}
}

type MarketService struct {
	engine      *pricing.Engine
	ledger      *pricing.Ledger
	selector    *vision.Selector
	synthesizer *vision.Synthesizer
	detector    Detector
	audit       AuditSink
	newRand     func() *rand.Rand
	now         func() time.Time

	defaultLocation string
	threshold       float64

	log zerolog.Logger
}

func NewMarketService(engine *pricing.Engine, ledger *pricing.Ledger, log zerolog.Logger, opts ...Option) *MarketService {
	s := &MarketService{
		engine:          engine,
		ledger:          ledger,
		selector:        vision.NewSelector(),
		newRand:         NewRandSource(0),
		now:             time.Now,
		defaultLocation: pricing.DefaultLocation,
		threshold:       0.6,
		log:             log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.synthesizer = vision.NewSynthesizer(s.now)
	return s
}

// ResolveLocation normalizes a city name and falls back to the default location.
func (s *MarketService) ResolveLocation(raw string) string {
	if loc := utils.NormalizeLocation(raw); loc != "" {
		return loc
	}
	return s.defaultLocation
}

// DetectAndPrice runs detection on the frame and prices everything at or above threshold.
// The trained detector is used when loaded; on failure the color heuristic takes over.
func (s *MarketService) DetectAndPrice(ctx context.Context, frame vision.Frame, location string, threshold float64) ([]produce.PricedDetection, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: confidence_threshold must be within [0, 1], got %v", ErrInvalidInput, threshold)
	}

	loc := s.ResolveLocation(location)
	rng := s.newRand()

	raw, err := s.detect(ctx, frame, rng)
	if err != nil {
		return nil, err
	}

	priced := make([]produce.PricedDetection, 0, len(raw))
	for _, d := range raw {
		if d.Confidence < threshold {
			continue
		}
		price := s.engine.Price(rng, d.Vegetable, loc)
		priced = append(priced, produce.PricedDetection{
			Vegetable:       d.Vegetable,
			QuantityKg:      d.QuantityKg,
			Confidence:      d.Confidence,
			PricePerKg:      price,
			LineTotal:       utils.Round(d.QuantityKg*price, 2),
			BBox:            d.BBox.Array(),
			DetectionMethod: d.DetectionMethod,
			Timestamp:       d.Timestamp,
		})
	}

	s.log.Info().
		Str("location", loc).
		Int("width", frame.Width).
		Int("height", frame.Height).
		Int("raw_count", len(raw)).
		Int("priced_count", len(priced)).
		Float64("threshold", threshold).
		Msg("detection priced")

	return priced, nil
}

func (s *MarketService) detect(ctx context.Context, frame vision.Frame, rng *rand.Rand) ([]produce.RawDetection, error) {
	if s.detector != nil && s.detector.Loaded() {
		detections, err := s.detector.Detect(ctx, frame)
		if err == nil {
			return detections, nil
		}
		s.log.Warn().Err(err).Msg("model detection failed, falling back to color heuristic")
	}

	labels, err := vision.Analyze(frame)
	if err != nil {
		return nil, err
	}

	names := s.selector.Select(labels, rng)
	s.log.Debug().
		Strs("colors", labels.Strings()).
		Strs("selected", names).
		Msg("heuristic selection")

	detections := make([]produce.RawDetection, 0, len(names))
	for _, name := range names {
		d, err := s.synthesizer.Synthesize(name, frame.Height, frame.Width, rng)
		if err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}
	return detections, nil
}

// RecordScan stores a finished scan if an audit sink is configured.
func (s *MarketService) RecordScan(ctx context.Context, scan *produce.Scan) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.RecordScan(ctx, scan); err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

// FindScans reads the audit trail. from/to are RFC3339; limit is capped at 100.
func (s *MarketService) FindScans(ctx context.Context, location, from, to *string, limit, offset int) ([]produce.Scan, error) {
	if s.audit == nil {
		return nil, ErrAuditDisabled
	}

	var loc *string
	if location != nil {
		if normalized := utils.NormalizeLocation(*location); normalized != "" {
			loc = &normalized
		}
	}

	var fromTime, toTime *time.Time
	if from != nil && *from != "" {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid from time format", ErrInvalidInput)
		}
		fromTime = &t
	}
	if to != nil && *to != "" {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid to time format", ErrInvalidInput)
		}
		toTime = &t
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	scans, err := s.audit.FindScans(ctx, loc, fromTime, toTime, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find scans: %w", err)
	}
	return scans, nil
}

func (s *MarketService) GetPrice(vegetable, location string) produce.PriceQuote {
	return s.engine.Quote(s.newRand(), utils.NormalizeVegetable(vegetable), s.ResolveLocation(location))
}

// GetPrices quotes the given vegetables, or the whole catalog when none are given.
func (s *MarketService) GetPrices(location string, vegetables []string) []produce.PriceQuote {
	loc := s.ResolveLocation(location)
	if len(vegetables) == 0 {
		vegetables = s.engine.Catalog().IDs()
	}

	rng := s.newRand()
	quotes := make([]produce.PriceQuote, 0, len(vegetables))
	for _, v := range vegetables {
		name := utils.NormalizeVegetable(v)
		if name == "" {
			continue
		}
		quotes = append(quotes, s.engine.Quote(rng, name, loc))
	}
	return quotes
}

// GetPriceHistory accepts 1..365 days; zero means the default window.
func (s *MarketService) GetPriceHistory(vegetable, location string, days int) ([]produce.HistoryPoint, error) {
	name := utils.NormalizeVegetable(vegetable)
	if name == "" {
		return nil, fmt.Errorf("%w: vegetable is required", ErrInvalidInput)
	}
	if days == 0 {
		days = defaultHistoryDays
	}
	if days < 1 || days > maxHistoryDays {
		return nil, fmt.Errorf("%w: days must be within [1, %d], got %d", ErrInvalidInput, maxHistoryDays, days)
	}
	return s.engine.PriceHistory(s.newRand(), name, s.ResolveLocation(location), days), nil
}

func (s *MarketService) GetMarketSummary(location string) produce.MarketSummary {
	return s.engine.MarketSummary(s.newRand(), s.ResolveLocation(location))
}

// AddContribution records a user price. It never fails the caller: a rejected
// record returns false, and audit errors are only logged.
func (s *MarketService) AddContribution(ctx context.Context, in produce.ContributionInput) bool {
	in.Vegetable = utils.NormalizeVegetable(in.Vegetable)
	in.Location = utils.NormalizeLocation(in.Location)
	in.SubmittedBy = strings.TrimSpace(in.SubmittedBy)

	receipt, ok := s.ledger.Add(in)
	if !ok {
		s.log.Warn().
			Str("vegetable", in.Vegetable).
			Str("location", in.Location).
			Float64("price", in.Price).
			Msg("rejected malformed contribution")
		return false
	}

	event := s.log.Info().
		Int64("contribution_id", receipt.ID).
		Str("vegetable", receipt.Vegetable).
		Str("location", receipt.Location).
		Float64("price", receipt.Price).
		Bool("adjusted", receipt.Adjusted)
	if receipt.Adjusted {
		event = event.Float64("old_base", receipt.OldBase).Float64("new_base", receipt.NewBase)
	}
	event.Msg("contribution recorded")

	if s.audit != nil {
		if err := s.audit.RecordContribution(ctx, receipt); err != nil {
			s.log.Error().Err(err).Int64("contribution_id", receipt.ID).Msg("failed to audit contribution")
		}
	}
	return true
}

func (s *MarketService) Contributions() []produce.Contribution {
	return s.ledger.List()
}

func (s *MarketService) Vegetables() []string {
	return s.engine.Catalog().IDs()
}

func (s *MarketService) Locations() []pricing.Location {
	return s.engine.Locations()
}

func (s *MarketService) DefaultLocation() string {
	return s.defaultLocation
}

func (s *MarketService) ConfidenceThreshold() float64 {
	return s.threshold
}

func (s *MarketService) ModelInfo() ModelInfo {
	loaded := s.detector != nil && s.detector.Loaded()
	modelType := produce.MethodHeuristic
	if loaded {
		modelType = produce.MethodModel
	}
	return ModelInfo{
		ModelType:           modelType,
		ModelLoaded:         loaded,
		SupportedVegetables: s.Vegetables(),
		ConfidenceThreshold: s.threshold,
	}
}
