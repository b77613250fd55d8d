package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/listingmatch/backend/internal/domain"
)

// Matching defaults
const (
	DefaultManufacturerMargin = 0.45
	DefaultModelMargin        = 0.25
	DefaultSmallWordSize      = 3
	DefaultWorkers            = 4
)

// DefaultIgnorableWords occur in too many listings to tell products apart
var DefaultIgnorableWords = []string{"zoom", "camera", "digital", "optical"}

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	ManufacturerMargin float64
	ModelMargin        float64
	SmallWordSize      int
	Workers            int
	IgnorableWords     []string

	// ExplicitMargins makes zero margins count as set instead of taking the
	// defaults. Negative margins always take the defaults.
	ExplicitMargins bool
}

// DefaultMatchConfig returns the tuned matching parameters
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{}.withDefaults()
}

// withDefaults fills unset values with the defaults. Margins are unset when
// negative, or zero without ExplicitMargins.
// A nil IgnorableWords gets the default list; an empty non-nil list disables it.
func (c MatchConfig) withDefaults() MatchConfig {
	if c.marginUnset(c.ManufacturerMargin) {
		c.ManufacturerMargin = DefaultManufacturerMargin
	}
	if c.marginUnset(c.ModelMargin) {
		c.ModelMargin = DefaultModelMargin
	}
	if c.SmallWordSize <= 0 {
		c.SmallWordSize = DefaultSmallWordSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.IgnorableWords == nil {
		c.IgnorableWords = append([]string(nil), DefaultIgnorableWords...)
	}
	return c
}

func (c MatchConfig) marginUnset(margin float64) bool {
	return margin < 0 || (margin == 0 && !c.ExplicitMargins)
}

func (c MatchConfig) ignorableSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.IgnorableWords))
	for _, word := range c.IgnorableWords {
		for _, token := range Tokenize(Normalize(word)) {
			set[token] = struct{}{}
		}
	}
	return set
}

// MatchingService assigns listings to catalog products. The indices are built
// once in NewMatchingService and only read afterwards.
type MatchingService struct {
	config        MatchConfig
	products      []domain.Product
	manufacturers *ManufacturerMatcher
	progress      domain.ProgressReporter
	logger        zerolog.Logger

	// classify is swapped in tests to inject faults
	classify func(domain.Listing) domain.Classification
}

// NewMatchingService builds the manufacturer and model indices for products.
// An empty catalog is valid: every listing then ends unmatched.
func NewMatchingService(products []domain.Product, config MatchConfig, logger zerolog.Logger) *MatchingService {
	if len(products) == 0 {
		logger.Warn().Msg("product catalog is empty, no listing can be matched")
	}

	config = config.withDefaults()
	start := time.Now()

	s := &MatchingService{
		config:        config,
		products:      products,
		manufacturers: NewManufacturerMatcher(products, config),
		logger:        logger,
	}
	s.classify = s.Classify

	logger.Info().
		Int("products", len(products)).
		Int("manufacturers", len(s.manufacturers.Manufacturers())).
		Float64("manufacturer_margin", config.ManufacturerMargin).
		Float64("model_margin", config.ModelMargin).
		Dur("elapsed", time.Since(start)).
		Msg("matching indices built")

	return s
}

// SetProgressReporter registers a reporter notified once per processed listing
func (s *MatchingService) SetProgressReporter(progress domain.ProgressReporter) {
	s.progress = progress
}

// Config returns the effective configuration
func (s *MatchingService) Config() MatchConfig {
	return s.config
}

// Products returns the catalog in its original order
func (s *MatchingService) Products() []domain.Product {
	return s.products
}

// Classify runs one listing through the manufacturer then model stage.
// A stage without a decisive match ends the listing as unmatched.
func (s *MatchingService) Classify(listing domain.Listing) domain.Classification {
	manufacturer, ok := s.manufacturers.Lookup(listing)
	if !ok {
		return domain.Classification{Stage: domain.StageUnmatched}
	}

	result := domain.Classification{Stage: domain.StageManufacturerResolved, Manufacturer: manufacturer}

	models, ok := s.manufacturers.ModelMatcher(manufacturer)
	if !ok {
		result.Stage = domain.StageUnmatched
		return result
	}

	productName, ok := models.Lookup(Normalize(listing.Title))
	if !ok {
		result.Stage = domain.StageUnmatched
		return result
	}

	result.Stage = domain.StageAssigned
	result.ProductName = productName
	return result
}

// SafeClassify is Classify with a panic converted into ErrClassificationFailed
func (s *MatchingService) SafeClassify(listing domain.Listing) (result domain.Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.Classification{Stage: domain.StageUnmatched}
			err = fmt.Errorf("%w: %v", domain.ErrClassificationFailed, r)
		}
	}()
	return s.classify(listing), nil
}

// runCounters are shared by the workers of one run
type runCounters struct {
	assigned atomic.Int64
	failed   atomic.Int64
}

// Match classifies every listing on a fixed pool of workers and groups the
// accepted ones by product. Nothing is returned until all workers exit.
// Inside each group listings keep their input order.
func (s *MatchingService) Match(ctx context.Context, listings []domain.Listing) (*domain.MatchResult, *domain.RunReport, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()

	logger.Info().
		Int("listings", len(listings)).
		Int("workers", s.config.Workers).
		Msg("matching listings")

	result := domain.NewMatchResult(s.products)
	queue := NewListingQueue(listings)
	counters := &runCounters{}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.config.Workers; i++ {
		workerID := i
		g.Go(func() error {
			return s.worker(gctx, workerID, queue, result, counters, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Int("remaining", queue.Remaining()).Msg("matching aborted")
		return nil, nil, err
	}

	for _, group := range result.Groups() {
		group.SortByPosition()
	}

	assigned := int(counters.assigned.Load())
	report := &domain.RunReport{
		RunID:     runID,
		Listings:  len(listings),
		Assigned:  assigned,
		Unmatched: len(listings) - assigned,
		Failed:    int(counters.failed.Load()),
		Workers:   s.config.Workers,
		Duration:  time.Since(start),
	}

	logger.Info().
		Int("assigned", report.Assigned).
		Int("unmatched", report.Unmatched).
		Int("failed", report.Failed).
		Dur("elapsed", report.Duration).
		Msg("matching complete")

	return result, report, nil
}

// worker drains the queue until it is empty or ctx is cancelled
func (s *MatchingService) worker(
	ctx context.Context,
	workerID int,
	queue *ListingQueue,
	result *domain.MatchResult,
	counters *runCounters,
	logger zerolog.Logger,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		listing, ok := queue.TryPop()
		if !ok {
			return nil
		}

		classification, err := s.SafeClassify(listing)
		switch {
		case err != nil:
			counters.failed.Add(1)
			logger.Error().
				Err(err).
				Int("worker", workerID).
				Int("position", listing.Position).
				Str("title", listing.Title).
				Msg("listing classification failed")
		case classification.Matched():
			if group, found := result.Get(classification.ProductName); found {
				group.Append(listing)
				counters.assigned.Add(1)
			}
		}

		logger.Trace().
			Int("worker", workerID).
			Int("position", listing.Position).
			Str("stage", classification.Stage.String()).
			Str("product", classification.ProductName).
			Msg("listing classified")

		if s.progress != nil {
			s.progress.Add(1)
		}
	}
}
