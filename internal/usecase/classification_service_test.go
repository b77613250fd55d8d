package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listingmatch/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled int
	setCalled int
	lastTTL   time.Duration
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.getCalled++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalled++
	m.lastTTL = ttl
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func newTestClassificationService(t *testing.T, cache domain.CacheRepository) *ClassificationService {
	t.Helper()
	return NewClassificationService(
		cache,
		newTestService(t, testCatalog(), MatchConfig{}),
		ClassificationServiceConfig{},
		zerolog.Nop(),
	)
}

func TestNewClassificationService(t *testing.T) {
	t.Run("uses default TTL when zero", func(t *testing.T) {
		svc := newTestClassificationService(t, nil)
		assert.Equal(t, 24*time.Hour, svc.cacheTTL)
	})

	t.Run("keeps provided TTL", func(t *testing.T) {
		svc := NewClassificationService(nil, newTestService(t, testCatalog(), MatchConfig{}),
			ClassificationServiceConfig{CacheTTL: time.Hour}, zerolog.Nop())
		assert.Equal(t, time.Hour, svc.cacheTTL)
	})
}

func TestClassifyListing(t *testing.T) {
	ctx := context.Background()
	listing := domain.Listing{Title: "Nikon D90 12.3MP", Manufacturer: "Nikon"}

	t.Run("rejects empty listing", func(t *testing.T) {
		svc := newTestClassificationService(t, NewMockCacheRepository())

		_, err := svc.ClassifyListing(ctx, domain.Listing{Title: "  "})
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	})

	t.Run("classifies and caches on miss", func(t *testing.T) {
		cache := NewMockCacheRepository()
		svc := newTestClassificationService(t, cache)

		got, err := svc.ClassifyListing(ctx, listing)
		require.NoError(t, err)

		assert.Equal(t, "Nikon_D90", got.ProductName)
		assert.Equal(t, 1, cache.setCalled)
		assert.Equal(t, 24*time.Hour, cache.lastTTL)
		assert.Len(t, cache.data, 1)
	})

	t.Run("returns cached classification on hit", func(t *testing.T) {
		cache := NewMockCacheRepository()
		svc := newTestClassificationService(t, cache)

		_, err := svc.ClassifyListing(ctx, listing)
		require.NoError(t, err)

		// Differently formatted listing normalizes to the same key
		got, err := svc.ClassifyListing(ctx, domain.Listing{Title: "NIKON d90, 12.3mp", Manufacturer: "nikon"})
		require.NoError(t, err)

		assert.Equal(t, domain.StageAssigned, got.Stage)
		assert.Equal(t, "Nikon_D90", got.ProductName)
		assert.Equal(t, "nikon", got.Manufacturer)
		assert.Equal(t, 1, cache.setCalled)
		assert.Equal(t, 2, cache.getCalled)
	})

	t.Run("decodes JSON string values", func(t *testing.T) {
		cache := NewMockCacheRepository()
		svc := newTestClassificationService(t, cache)
		cache.data[svc.generateCacheKey(listing)] = `{"stage":"unmatched","manufacturer":"nikon","product_name":""}`

		got, err := svc.ClassifyListing(ctx, listing)
		require.NoError(t, err)

		assert.Equal(t, domain.StageUnmatched, got.Stage)
		assert.Equal(t, 0, cache.setCalled)
	})

	t.Run("cache failures do not fail the request", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.getError = domain.ErrCacheUnavailable
		cache.setError = domain.ErrCacheUnavailable
		svc := newTestClassificationService(t, cache)

		got, err := svc.ClassifyListing(ctx, listing)
		require.NoError(t, err)
		assert.Equal(t, "Nikon_D90", got.ProductName)
	})

	t.Run("works without a cache", func(t *testing.T) {
		svc := newTestClassificationService(t, nil)

		got, err := svc.ClassifyListing(ctx, domain.Listing{Title: "Olympus Stylus", Manufacturer: "Olympus"})
		require.NoError(t, err)
		assert.False(t, got.Matched())
	})
}

func TestMatchBatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestClassificationService(t, nil)

	t.Run("rejects empty batch", func(t *testing.T) {
		_, _, err := svc.MatchBatch(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	})

	t.Run("matches the batch", func(t *testing.T) {
		result, report, err := svc.MatchBatch(ctx, testListings())
		require.NoError(t, err)
		assert.Equal(t, 4, result.MatchedCount())
		assert.Equal(t, 6, report.Listings)
	})

	t.Run("reports catalog size", func(t *testing.T) {
		assert.Equal(t, 5, svc.ProductCount())
	})
}
