package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CatalogStore is the local read model the storefront serves product
// lookups from.
type CatalogStore interface {
	UpsertProduct(ctx context.Context, p *models.CatalogItem) error
	GetProductByID(ctx context.Context, id string) (*models.CatalogItem, error)
	GetProducts(ctx context.Context, filter store.CatalogFilter) ([]models.CatalogItem, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.CatalogItem, error)
	DeactivateMissing(ctx context.Context, keepIDs []string) error
}

// CatalogService keeps the local catalog read model in step with the
// remote product service and serves storefront product reads.
type CatalogService struct {
	products ProductAPI
	store    CatalogStore
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products ProductAPI, catalogStore CatalogStore) *CatalogService {
	return &CatalogService{
		products: products,
		store:    catalogStore,
		logger:   util.GetLogger(),
	}
}

// Sync pulls the full remote catalog into the read model and
// deactivates items removed upstream.
func (cs *CatalogService) Sync(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.Sync")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CatalogSyncLatency.Observe(time.Since(start).Seconds())
	}()

	items, err := cs.products.GetProducts(ctx, ProductFilter{})
	if err != nil {
		return fmt.Errorf("failed to fetch remote catalog: %w", err)
	}

	keepIDs := make([]string, 0, len(items))
	for i := range items {
		if err := cs.store.UpsertProduct(ctx, &items[i]); err != nil {
			cs.logger.Error("Failed to upsert catalog item",
				zap.String("product_id", items[i].ID),
				zap.Error(err))
			continue
		}
		keepIDs = append(keepIDs, items[i].ID)
	}

	if err := cs.store.DeactivateMissing(ctx, keepIDs); err != nil {
		cs.logger.Error("Failed to deactivate removed items", zap.Error(err))
	}

	cs.logger.Info("Catalog sync completed", zap.Int("count", len(keepIDs)))
	return nil
}

// GetProduct retrieves a catalog item from the read model.
func (cs *CatalogService) GetProduct(ctx context.Context, productID string) (*models.CatalogItem, error) {
	return cs.store.GetProductByID(ctx, productID)
}

// ListProducts lists catalog items from the read model.
func (cs *CatalogService) ListProducts(ctx context.Context, filter store.CatalogFilter) ([]models.CatalogItem, error) {
	return cs.store.GetProducts(ctx, filter)
}

// GetProductsByIDs batch-fetches catalog items from the read model,
// used to re-validate cart lines in one round trip.
func (cs *CatalogService) GetProductsByIDs(ctx context.Context, ids []string) ([]models.CatalogItem, error) {
	return cs.store.GetProductsByIDs(ctx, ids)
}
