package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"inventory-dashboard/internal/broker"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/store"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsumer replays a fixed set of messages
type fakeConsumer struct {
	messages []kafka.Message
	errs     []error
	closed   bool
}

func (f *fakeConsumer) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range f.messages {
		f.errs = append(f.errs, handler(ctx, msg))
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	f.closed = true
	return nil
}

func lowStockMessage(t *testing.T, eventID string) kafka.Message {
	t.Helper()

	value, err := json.Marshal(models.LowStockDetectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   eventID,
			EventType: models.EventTypeLowStockDetected,
			SessionID: "s1",
		},
		ProductID:    2,
		ProductName:  "Teh",
		Stock:        4,
		Threshold:    10,
		SupplierName: "Supplier B",
		Contact:      "b@example.com",
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(broker.SessionKey("s1")), Value: value}
}

func newStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.NewStore(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRestockWorkerCreatesRequestOnce(t *testing.T) {
	s := newStore(t)
	consumer := &fakeConsumer{messages: []kafka.Message{
		lowStockMessage(t, "evt-1"),
		lowStockMessage(t, "evt-1"),
		lowStockMessage(t, "evt-2"),
	}}

	w := NewRestockWorker(consumer, s)
	require.NoError(t, w.Start(context.Background()))
	for _, err := range consumer.errs {
		assert.NoError(t, err)
	}

	requests, err := s.ListRestockRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "evt-1", requests[0].EventID)
	assert.Equal(t, "Teh", requests[0].ProductName)
	assert.Equal(t, "Supplier B", requests[0].SupplierName)

	require.NoError(t, w.Stop())
	assert.True(t, consumer.closed)
}

type failingStore struct {
	marked int
}

func (f *failingStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return false, nil
}

func (f *failingStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	f.marked++
	return nil
}

func (f *failingStore) CreateRestockRequest(ctx context.Context, req *models.RestockRequest) error {
	return errors.New("disk full")
}

func TestRestockWorkerDoesNotMarkFailedEvents(t *testing.T) {
	fs := &failingStore{}
	w := NewRestockWorker(&fakeConsumer{}, fs)

	err := w.HandleLowStockDetected(context.Background(), &models.LowStockDetectedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-9", EventType: models.EventTypeLowStockDetected},
		ProductID: 1,
	})
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, fs.marked)
}
