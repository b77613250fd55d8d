package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpDelivery "github.com/listingmatch/backend/internal/delivery/http"
	"github.com/listingmatch/backend/internal/domain"
	"github.com/listingmatch/backend/internal/infrastructure/cache"
	"github.com/listingmatch/backend/internal/infrastructure/jsonl"
	"github.com/listingmatch/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var productsFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the matching API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			logger := a.logger

			if productsFile == "" {
				productsFile = cfg.Server.ProductsFile
			}
			if productsFile == "" {
				return errors.New("a products file is required (--products or LISTINGMATCH_SERVER_PRODUCTS_FILE)")
			}

			logger.Info().
				Str("version", httpDelivery.Version).
				Str("environment", cfg.Server.Environment).
				Str("port", cfg.Server.Port).
				Str("cache", cfg.Cache.Type).
				Dur("cache_ttl", cfg.Cache.TTL).
				Msg("starting listingmatch server")

			products, err := jsonl.LoadProducts(productsFile)
			if err != nil {
				return fmt.Errorf("load products: %w", err)
			}

			matching := usecase.NewMatchingService(products, a.matchConfig(), logger)

			classificationCache, closeCache, err := a.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			service := usecase.NewClassificationService(
				classificationCache,
				matching,
				usecase.ClassificationServiceConfig{CacheTTL: cfg.Cache.TTL},
				logger,
			)

			handler := httpDelivery.NewHandler(service, logger)
			router := httpDelivery.SetupRouter(cfg, handler, logger)

			server := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", server.Addr).Msg("server listening")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server failed: %w", err)
			case <-cmd.Context().Done():
			}

			logger.Info().Msg("shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVarP(&productsFile, "products", "p", "", "products file (one JSON object per line)")

	return cmd
}

// openCache builds the configured classification cache. The returned cache
// is nil when caching is disabled.
func (a *app) openCache(ctx context.Context) (domain.CacheRepository, func(), error) {
	switch a.cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(a.cfg.Cache.RedisURL, "listingmatch:")
		if err != nil {
			return nil, nil, err
		}
		if err := redisCache.Ping(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("redis not reachable, classifications will not be cached until it is")
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	case "memory":
		memoryCache := cache.NewMemoryCache(a.cfg.Cache.MaxEntries, cache.DefaultCleanupInterval)
		return memoryCache, func() { _ = memoryCache.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
