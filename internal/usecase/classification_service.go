package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/listingmatch/backend/internal/domain"
)

// ClassificationServiceConfig holds configuration for the classification service
type ClassificationServiceConfig struct {
	CacheTTL time.Duration
}

// ClassificationService classifies single listings on demand, caching the
// outcome, and runs batch matches through the MatchingService.
type ClassificationService struct {
	cache    domain.CacheRepository
	matching *MatchingService
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewClassificationService creates a new classification service with dependencies.
// cache may be nil.
func NewClassificationService(
	cache domain.CacheRepository,
	matching *MatchingService,
	config ClassificationServiceConfig,
	logger zerolog.Logger,
) *ClassificationService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &ClassificationService{
		cache:    cache,
		matching: matching,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ClassifyListing resolves one listing to a product.
// Flow: check cache -> classify -> cache -> return
func (s *ClassificationService) ClassifyListing(ctx context.Context, listing domain.Listing) (domain.Classification, error) {
	if strings.TrimSpace(listing.Title) == "" && strings.TrimSpace(listing.Manufacturer) == "" {
		return domain.Classification{}, domain.ErrInvalidRequest
	}

	cacheKey := s.generateCacheKey(listing)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	result, err := s.matching.SafeClassify(listing)
	if err != nil {
		return result, err
	}

	if err := s.setInCache(ctx, cacheKey, result); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache classification")
	}

	return result, nil
}

// MatchBatch matches a batch of listings against the catalog
func (s *ClassificationService) MatchBatch(ctx context.Context, listings []domain.Listing) (*domain.MatchResult, *domain.RunReport, error) {
	if len(listings) == 0 {
		return nil, nil, domain.ErrInvalidRequest
	}
	return s.matching.Match(ctx, listings)
}

// ProductCount returns the number of catalog products
func (s *ClassificationService) ProductCount() int {
	return len(s.matching.Products())
}

// generateCacheKey hashes the normalized manufacturer and title.
// Format: "classification:{xxhash hex}"
func (s *ClassificationService) generateCacheKey(listing domain.Listing) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(Normalize(listing.Manufacturer))
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(Normalize(listing.Title))
	return "classification:" + strconv.FormatUint(digest.Sum64(), 16)
}

// cachedClassification is the cached form of a Classification
type cachedClassification struct {
	Stage        string `json:"stage"`
	Manufacturer string `json:"manufacturer"`
	ProductName  string `json:"product_name"`
}

func (s *ClassificationService) getFromCache(ctx context.Context, key string) (domain.Classification, error) {
	if s.cache == nil {
		return domain.Classification{}, domain.ErrCacheMiss
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return domain.Classification{}, err
	}

	// Cached values come back as generic JSON (memory) or a JSON string (redis)
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	default:
		data, err = json.Marshal(v)
		if err != nil {
			return domain.Classification{}, fmt.Errorf("decode cached classification: %w", err)
		}
	}

	var cached cachedClassification
	if err := json.Unmarshal(data, &cached); err != nil {
		return domain.Classification{}, fmt.Errorf("decode cached classification: %w", err)
	}

	stage, ok := parseStage(cached.Stage)
	if !ok {
		return domain.Classification{}, domain.ErrCacheMiss
	}

	return domain.Classification{
		Stage:        stage,
		Manufacturer: cached.Manufacturer,
		ProductName:  cached.ProductName,
	}, nil
}

func (s *ClassificationService) setInCache(ctx context.Context, key string, result domain.Classification) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, cachedClassification{
		Stage:        result.Stage.String(),
		Manufacturer: result.Manufacturer,
		ProductName:  result.ProductName,
	}, s.cacheTTL)
}

func parseStage(name string) (domain.Stage, bool) {
	for _, stage := range []domain.Stage{domain.StageAssigned, domain.StageUnmatched} {
		if stage.String() == name {
			return stage, true
		}
	}
	return domain.StagePending, false
}
