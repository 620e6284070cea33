package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/console/checkout"
	"github.com/advanced-supermart/console-backend/services/console/models"
	"github.com/advanced-supermart/console-backend/services/console/repository"
)

// collectionCopier copies one collection page by page, decoding every record
// into its model so backend-specific types never leak into the target.
type collectionCopier func(ctx context.Context, src, dst docstore.Store) (int, error)

func copiers(batchSize int, dryRun bool, logger *zap.Logger) map[string]collectionCopier {
	return map[string]collectionCopier{
		repository.ProductsCollection: func(ctx context.Context, src, dst docstore.Store) (int, error) {
			return copyCollection[models.Product](ctx, src, dst, repository.ProductsCollection, batchSize, dryRun, logger)
		},
		repository.UsersCollection: func(ctx context.Context, src, dst docstore.Store) (int, error) {
			return copyCollection[models.User](ctx, src, dst, repository.UsersCollection, batchSize, dryRun, logger)
		},
		checkout.CartsCollection: func(ctx context.Context, src, dst docstore.Store) (int, error) {
			return copyCollection[models.Cart](ctx, src, dst, checkout.CartsCollection, batchSize, dryRun, logger)
		},
		checkout.OrdersCollection: func(ctx context.Context, src, dst docstore.Store) (int, error) {
			return copyCollection[models.Order](ctx, src, dst, checkout.OrdersCollection, batchSize, dryRun, logger)
		},
	}
}

func copyCollection[T any](ctx context.Context, src, dst docstore.Store, collection string, batchSize int, dryRun bool, logger *zap.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var migrated int
	for skip := 0; ; skip += batchSize {
		docs, _, err := src.List(ctx, collection, batchSize, skip)
		if err != nil {
			return migrated, fmt.Errorf("list %s: %w", collection, err)
		}
		for _, doc := range docs {
			var record T
			if err := doc.Decode(&record); err != nil {
				logger.Warn("Skipping undecodable record",
					zap.String("collection", collection), zap.String("id", doc.ID()), zap.Error(err))
				continue
			}
			if !dryRun {
				if err := dst.Put(ctx, collection, doc.ID(), record); err != nil {
					logger.Error("Failed to write record",
						zap.String("collection", collection), zap.String("id", doc.ID()), zap.Error(err))
					continue
				}
			}
			migrated++
			if migrated%100 == 0 {
				logger.Info("Progress", zap.String("collection", collection), zap.Int("migrated", migrated))
			}
		}
		if len(docs) < batchSize {
			return migrated, nil
		}
	}
}
