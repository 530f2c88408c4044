package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes a keyed event
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing ledger events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// SessionKey partitions events by session so a session's events stay ordered
func SessionKey(sessionID string) string {
	return fmt.Sprintf("session-%s", sessionID)
}

// PublishStockAdjusted publishes StockAdjusted event
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	return ep.producer.PublishEvent(ctx, SessionKey(event.SessionID), event)
}

// PublishSaleRecorded publishes SaleRecorded event
func (ep *EventPublisher) PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, SessionKey(event.SessionID), event)
}

// PublishLowStockDetected publishes LowStockDetected event
func (ep *EventPublisher) PublishLowStockDetected(ctx context.Context, event *models.LowStockDetectedEvent) error {
	return ep.producer.PublishEvent(ctx, SessionKey(event.SessionID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onLowStockDetected func(context.Context, *models.LowStockDetectedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnLowStockDetected registers a handler for LowStockDetected events
func (eh *EventHandler) OnLowStockDetected(handler func(context.Context, *models.LowStockDetectedEvent) error) {
	eh.onLowStockDetected = handler
}

// HandleMessage routes messages to appropriate handlers. Event types
// without a registered handler are acknowledged and skipped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID),
	)

	switch baseEvent.EventType {
	case models.EventTypeLowStockDetected:
		if eh.onLowStockDetected != nil {
			var event models.LowStockDetectedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal LowStockDetected event: %w", err)
			}
			return eh.onLowStockDetected(ctx, &event)
		}

	case models.EventTypeStockAdjusted, models.EventTypeSaleRecorded:
		// consumed by downstream reporting, nothing to do here

	default:
		logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
