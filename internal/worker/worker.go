package worker

import (
	"context"
	"fmt"

	"inventory-dashboard/internal/broker"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/util"

	"go.uber.org/zap"
)

// Consumer delivers messages to a handler until its context ends
type Consumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// RestockStore records restock requests exactly once per event
type RestockStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	CreateRestockRequest(ctx context.Context, req *models.RestockRequest) error
}

// RestockWorker turns low stock events into restock requests
type RestockWorker struct {
	consumer     Consumer
	eventHandler *broker.EventHandler
	store        RestockStore
	logger       *zap.Logger
}

// NewRestockWorker creates a new restock worker
func NewRestockWorker(consumer Consumer, store RestockStore) *RestockWorker {
	w := &RestockWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		store:        store,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnLowStockDetected(w.HandleLowStockDetected)
	return w
}

// Start starts the worker
func (w *RestockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting restock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RestockWorker) Stop() error {
	w.logger.Info("Stopping restock worker")
	return w.consumer.Close()
}

// HandleLowStockDetected records a restock request for the product. Redelivered
// events are skipped.
func (w *RestockWorker) HandleLowStockDetected(ctx context.Context, event *models.LowStockDetectedEvent) error {
	ctx, span := util.StartSpan(ctx, "RestockWorker.HandleLowStockDetected")
	defer span.End()

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	req := &models.RestockRequest{
		EventID:      event.EventID,
		SessionID:    event.SessionID,
		ProductID:    event.ProductID,
		ProductName:  event.ProductName,
		Stock:        event.Stock,
		SupplierName: event.SupplierName,
		Contact:      event.Contact,
	}
	if err := w.store.CreateRestockRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to create restock request: %w", err)
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	util.RestockRequestsTotal.Inc()
	w.logger.Info("Restock request created",
		zap.String("session_id", event.SessionID),
		zap.Int64("product_id", event.ProductID),
		zap.Int64("stock", event.Stock),
		zap.String("supplier", event.SupplierName),
	)
	return nil
}
