package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"inventory-dashboard/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key   string
	event interface{}
}

type fakeProducer struct {
	sent []published
	err  error
}

func (f *fakeProducer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{key: key, event: event})
	return nil
}

func TestEventPublisherKeysBySession(t *testing.T) {
	producer := &fakeProducer{}
	ep := NewEventPublisher(producer)
	ctx := context.Background()

	base := models.BaseEvent{EventID: "e1", SessionID: "abc", Timestamp: time.Now()}

	require.NoError(t, ep.PublishStockAdjusted(ctx, &models.StockAdjustedEvent{BaseEvent: base}))
	require.NoError(t, ep.PublishSaleRecorded(ctx, &models.SaleRecordedEvent{BaseEvent: base}))
	require.NoError(t, ep.PublishLowStockDetected(ctx, &models.LowStockDetectedEvent{BaseEvent: base}))

	require.Len(t, producer.sent, 3)
	for _, p := range producer.sent {
		assert.Equal(t, "session-abc", p.key)
	}
}

func TestEventPublisherPropagatesErrors(t *testing.T) {
	ep := NewEventPublisher(&fakeProducer{err: errors.New("broker down")})

	err := ep.PublishSaleRecorded(context.Background(), &models.SaleRecordedEvent{})
	assert.EqualError(t, err, "broker down")
}

func TestHandleMessageRoutesLowStock(t *testing.T) {
	eh := NewEventHandler()

	var got *models.LowStockDetectedEvent
	eh.OnLowStockDetected(func(ctx context.Context, e *models.LowStockDetectedEvent) error {
		got = e
		return nil
	})

	value, err := json.Marshal(models.LowStockDetectedEvent{
		BaseEvent:   models.BaseEvent{EventID: "e2", EventType: models.EventTypeLowStockDetected, SessionID: "s"},
		ProductID:   4,
		ProductName: "Gula",
		Stock:       3,
		Threshold:   10,
	})
	require.NoError(t, err)

	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: value}))
	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.ProductID)
	assert.Equal(t, "Gula", got.ProductName)
}

func TestHandleMessageIgnoresOtherEvents(t *testing.T) {
	eh := NewEventHandler()
	called := false
	eh.OnLowStockDetected(func(ctx context.Context, e *models.LowStockDetectedEvent) error {
		called = true
		return nil
	})

	for _, eventType := range []string{models.EventTypeSaleRecorded, "SOMETHING_ELSE"} {
		value, _ := json.Marshal(models.BaseEvent{EventID: "x", EventType: eventType})
		assert.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: value}))
	}
	assert.False(t, called)

	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")}))
}
