package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/listingmatch/backend/internal/domain"
)

func newTestService(t *testing.T, products []domain.Product, config MatchConfig) *MatchingService {
	t.Helper()
	return NewMatchingService(products, config, zerolog.Nop())
}

func testListings() []domain.Listing {
	return []domain.Listing{
		{Title: "Canon PowerShot A70 3.2MP Digital Camera", Manufacturer: "Canon", Currency: "USD", Price: "99.99"},
		{Title: "Canon EOS 5D Mark II body", Manufacturer: "Canon", Currency: "USD", Price: "1999.00"},
		{Title: "Nikon D90 12.3MP", Manufacturer: "Nikon", Currency: "CAD", Price: "799.00"},
		{Title: "Sony Cyber-shot DSC-W310 12MP", Manufacturer: "Sony", Currency: "GBP", Price: "89.00"},
		{Title: "Canon battery pack", Manufacturer: "Canon", Currency: "USD", Price: "19.99"},
		{Title: "Olympus Stylus", Manufacturer: "Olympus", Currency: "EUR", Price: "129.00"},
	}
}

func TestNewMatchingService(t *testing.T) {
	t.Run("accepts empty catalog", func(t *testing.T) {
		svc := NewMatchingService(nil, MatchConfig{}, zerolog.Nop())
		require.NotNil(t, svc)
		assert.Empty(t, svc.Products())
	})

	t.Run("uses defaults when zero", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{})
		cfg := svc.Config()
		assert.Equal(t, 0.45, cfg.ManufacturerMargin)
		assert.Equal(t, 0.25, cfg.ModelMargin)
		assert.Equal(t, 3, cfg.SmallWordSize)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, []string{"zoom", "camera", "digital", "optical"}, cfg.IgnorableWords)
	})

	t.Run("uses defaults when negative", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{Workers: -2, ModelMargin: -1})
		assert.Equal(t, 4, svc.Config().Workers)
		assert.Equal(t, 0.25, svc.Config().ModelMargin)
	})

	t.Run("keeps explicit zero margins", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{ExplicitMargins: true})
		assert.Equal(t, 0.0, svc.Config().ManufacturerMargin)
		assert.Equal(t, 0.0, svc.Config().ModelMargin)
	})

	t.Run("negative margins take defaults even when explicit", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{ExplicitMargins: true, ModelMargin: -0.5})
		assert.Equal(t, 0.25, svc.Config().ModelMargin)
		assert.Equal(t, 0.0, svc.Config().ManufacturerMargin)
	})

	t.Run("keeps provided values", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{
			ManufacturerMargin: 0.6,
			Workers:            8,
			IgnorableWords:     []string{},
		})
		assert.Equal(t, 0.6, svc.Config().ManufacturerMargin)
		assert.Equal(t, 8, svc.Config().Workers)
		assert.Empty(t, svc.Config().IgnorableWords)
	})
}

func TestClassify(t *testing.T) {
	single := []domain.Product{
		{Name: "Canon_PowerShot_A70", Manufacturer: "Canon", Model: "PowerShot A70"},
	}
	svc := newTestService(t, single, MatchConfig{})

	t.Run("assigns the matching product", func(t *testing.T) {
		got := svc.Classify(domain.Listing{Title: "Canon PowerShot A70 Digital Camera", Manufacturer: "Canon"})
		assert.Equal(t, domain.StageAssigned, got.Stage)
		assert.Equal(t, "canon", got.Manufacturer)
		assert.Equal(t, "Canon_PowerShot_A70", got.ProductName)
		assert.True(t, got.Matched())
	})

	t.Run("manufacturer mismatch is unmatched", func(t *testing.T) {
		got := svc.Classify(domain.Listing{Title: "Nikon D90", Manufacturer: "Nikon"})
		assert.Equal(t, domain.StageUnmatched, got.Stage)
		assert.Empty(t, got.Manufacturer)
		assert.False(t, got.Matched())
	})

	t.Run("ignorable title resolves manufacturer only", func(t *testing.T) {
		got := svc.Classify(domain.Listing{Title: "Camera", Manufacturer: "Canon"})
		assert.Equal(t, domain.StageUnmatched, got.Stage)
		assert.Equal(t, "canon", got.Manufacturer)
		assert.Empty(t, got.ProductName)
	})
}

func TestClassify_ZeroModelMargin(t *testing.T) {
	products := []domain.Product{
		{Name: "Canon_PowerShot_S90", Manufacturer: "Canon", Family: "PowerShot", Model: "S90"},
		{Name: "Canon_IXUS_S90", Manufacturer: "Canon", Family: "IXUS", Model: "S90"},
	}
	listing := domain.Listing{Title: "Canon S90", Manufacturer: "Canon"}

	t.Run("default margin leaves the tie unmatched", func(t *testing.T) {
		svc := newTestService(t, products, MatchConfig{})
		got := svc.Classify(listing)
		assert.Equal(t, domain.StageUnmatched, got.Stage)
		assert.Equal(t, "canon", got.Manufacturer)
	})

	t.Run("zero margin resolves the tie by name order", func(t *testing.T) {
		svc := newTestService(t, products, MatchConfig{ExplicitMargins: true, ManufacturerMargin: 0.45})
		got := svc.Classify(listing)
		assert.Equal(t, domain.StageAssigned, got.Stage)
		assert.Equal(t, "Canon_IXUS_S90", got.ProductName)
	})
}

func TestSafeClassify(t *testing.T) {
	svc := newTestService(t, testCatalog(), MatchConfig{})
	svc.classify = func(domain.Listing) domain.Classification {
		panic("index corrupted")
	}

	got, err := svc.SafeClassify(domain.Listing{Title: "Nikon D90", Manufacturer: "Nikon"})

	assert.True(t, errors.Is(err, domain.ErrClassificationFailed))
	assert.Contains(t, err.Error(), "index corrupted")
	assert.Equal(t, domain.StageUnmatched, got.Stage)
}

type countingReporter struct {
	n atomic.Int64
}

func (c *countingReporter) Add(n int) {
	c.n.Add(int64(n))
}

func TestMatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()

	t.Run("groups listings by product in catalog order", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{})

		result, report, err := svc.Match(ctx, testListings())
		require.NoError(t, err)

		groups := result.Groups()
		require.Len(t, groups, 5)
		wantCounts := map[string]int{
			"Canon_PowerShot_A70":     1,
			"Canon_EOS_5D":            1,
			"Nikon_D90":               1,
			"Sony_DSC-W310":           1,
			"Konica_Minolta_DiMAGE_X": 0,
		}
		for _, group := range groups {
			assert.Equal(t, wantCounts[group.Product.Name], group.Len(), group.Product.Name)
		}
		assert.Equal(t, "Canon_PowerShot_A70", groups[0].Product.Name)
		assert.Equal(t, "Konica_Minolta_DiMAGE_X", groups[4].Product.Name)

		assert.Equal(t, 6, report.Listings)
		assert.Equal(t, 4, report.Assigned)
		assert.Equal(t, 2, report.Unmatched)
		assert.Equal(t, 0, report.Failed)
		assert.NotEmpty(t, report.RunID)
	})

	t.Run("result is identical for any worker count", func(t *testing.T) {
		var listings []domain.Listing
		for i := 0; i < 50; i++ {
			listings = append(listings, testListings()...)
		}

		positionsFor := func(workers int) map[string][]int {
			svc := newTestService(t, testCatalog(), MatchConfig{Workers: workers})
			result, _, err := svc.Match(ctx, listings)
			require.NoError(t, err)

			out := make(map[string][]int)
			for _, group := range result.Groups() {
				positions := []int{}
				for _, listing := range group.Listings() {
					positions = append(positions, listing.Position)
				}
				out[group.Product.Name] = positions
			}
			return out
		}

		sequential := positionsFor(1)
		assert.Len(t, sequential["Nikon_D90"], 50)
		for _, workers := range []int{2, 4, 16} {
			assert.Equal(t, sequential, positionsFor(workers), "workers=%d", workers)
		}
	})

	t.Run("isolates a failing listing", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{Workers: 3})
		svc.classify = func(listing domain.Listing) domain.Classification {
			if listing.Title == "boom" {
				panic("unexpected input")
			}
			return svc.Classify(listing)
		}

		listings := append(testListings(), domain.Listing{Title: "boom", Manufacturer: "Canon"})
		result, report, err := svc.Match(ctx, listings)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, 4, report.Assigned)
		assert.Equal(t, 4, result.MatchedCount())
	})

	t.Run("reports progress per listing", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{})
		reporter := &countingReporter{}
		svc.SetProgressReporter(reporter)

		_, _, err := svc.Match(ctx, testListings())
		require.NoError(t, err)

		assert.Equal(t, int64(6), reporter.n.Load())
	})

	t.Run("empty catalog leaves every listing unmatched", func(t *testing.T) {
		svc := newTestService(t, nil, MatchConfig{})

		result, report, err := svc.Match(ctx, testListings())
		require.NoError(t, err)

		assert.Equal(t, 0, result.Len())
		assert.Empty(t, result.Groups())
		assert.Equal(t, 0, report.Assigned)
		assert.Equal(t, len(testListings()), report.Unmatched)
		assert.Equal(t, 0, report.Failed)
	})

	t.Run("empty listing set yields empty groups", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{})

		result, report, err := svc.Match(ctx, nil)
		require.NoError(t, err)

		assert.Equal(t, 5, result.Len())
		assert.Equal(t, 0, result.MatchedCount())
		assert.Equal(t, 0, report.Assigned)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		svc := newTestService(t, testCatalog(), MatchConfig{})
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		result, report, err := svc.Match(cancelled, testListings())

		assert.True(t, errors.Is(err, context.Canceled))
		assert.Nil(t, result)
		assert.Nil(t, report)
	})
}

func TestListingQueue(t *testing.T) {
	t.Run("pops in order with positions", func(t *testing.T) {
		q := NewListingQueue(testListings()[:2])

		first, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, 0, first.Position)

		second, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, 1, second.Position)
		assert.Equal(t, "Canon EOS 5D Mark II body", second.Title)

		_, ok = q.TryPop()
		assert.False(t, ok)
		assert.Equal(t, 0, q.Remaining())
	})

	t.Run("empty queue signals immediately", func(t *testing.T) {
		q := NewListingQueue(nil)
		_, ok := q.TryPop()
		assert.False(t, ok)
	})
}
