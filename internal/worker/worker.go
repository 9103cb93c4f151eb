package worker

import (
	"context"
	"log"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/service"
)

// StatusWorker consumes pushed order-status events and feeds them to
// the tracking service.
type StatusWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewStatusWorker creates a new status worker
func NewStatusWorker(consumer *broker.Consumer, tracking *service.TrackingService) *StatusWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderStatusChanged(tracking.HandleStatusEvent)

	return &StatusWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *StatusWorker) Start(ctx context.Context) error {
	log.Println("Starting status worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StatusWorker) Stop() error {
	log.Println("Stopping status worker...")
	return w.consumer.Close()
}

// CatalogSyncWorker refreshes the local catalog read model on an
// interval.
type CatalogSyncWorker struct {
	catalog  *service.CatalogService
	interval time.Duration
}

// NewCatalogSyncWorker creates a new catalog sync worker
func NewCatalogSyncWorker(catalog *service.CatalogService, interval time.Duration) *CatalogSyncWorker {
	return &CatalogSyncWorker{
		catalog:  catalog,
		interval: interval,
	}
}

// Start syncs immediately, then on every tick until the context is
// cancelled.
func (w *CatalogSyncWorker) Start(ctx context.Context) error {
	log.Println("Starting catalog sync worker...")

	if err := w.catalog.Sync(ctx); err != nil {
		log.Printf("Initial catalog sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Catalog sync worker stopping...")
			return ctx.Err()
		case <-ticker.C:
			if err := w.catalog.Sync(ctx); err != nil {
				log.Printf("Catalog sync failed: %v", err)
			}
		}
	}
}
