package session

import (
	"context"
	"os"
	"testing"
	"time"

	"inventory-dashboard/internal/ledger"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/redisclient"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLedger(t *testing.T, opts ...ledger.Option) *ledger.Ledger {
	t.Helper()

	l := ledger.New(opts...)
	require.NoError(t, l.AddProduct(models.Product{ID: 1, Name: "Kopi", Stock: 12, Price: decimal.NewFromInt(15000)}))
	require.NoError(t, l.AddProduct(models.Product{ID: 2, Name: "Teh", Stock: 4, Price: decimal.RequireFromString("7999.99")}))
	_, err := l.RecordSale(ledger.SaleRequest{ProductID: 1, Quantity: 3, IdempotencyKey: "abc"})
	require.NoError(t, err)
	return l
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	l := sampleLedger(t)

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "s1", l))
	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, l, got)
	assert.Equal(t, 1, s.Len())

	unlock, err := s.Lock(ctx, "s1")
	require.NoError(t, err)
	unlock()

	require.NoError(t, s.Delete(ctx, "s1"))
	assert.ErrorIs(t, s.Delete(ctx, "s1"), ErrNotFound)
	_, err = s.Lock(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreLockSerialises(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, "s1", sampleLedger(t)))

	unlock, err := s.Lock(ctx, "s1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := s.Lock(ctx, "s1")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestMemoryStoreEvict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "old", ledger.New()))
	now = now.Add(30 * time.Minute)
	require.NoError(t, s.Save(ctx, "fresh", ledger.New()))
	now = now.Add(30 * time.Minute)

	assert.Equal(t, 1, s.Evict(45*time.Minute))

	_, err := s.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Load(ctx, "fresh")
	assert.NoError(t, err)
}

func TestSnapshotEncoding(t *testing.T) {
	l := sampleLedger(t)

	data, err := EncodeSnapshot(l)
	require.NoError(t, err)

	restored, err := DecodeSnapshot(data, ledger.WithRestockThreshold(5))
	require.NoError(t, err)

	assert.Equal(t, len(l.Sales()), len(restored.Sales()))
	assert.Equal(t, l.NextSaleID(), restored.NextSaleID())
	assert.Equal(t, int64(5), restored.Threshold())

	p, err := restored.Product(2)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("7999.99").Equal(p.Price))

	sale := restored.Sales()[0]
	require.NotNil(t, sale.OrderDate)
	assert.True(t, decimal.NewFromInt(45000).Equal(sale.TotalPrice))

	_, err = restored.RecordSale(ledger.SaleRequest{ProductID: 1, Quantity: 1, IdempotencyKey: "abc"})
	assert.ErrorIs(t, err, ledger.ErrDuplicateSale)

	_, err = DecodeSnapshot([]byte("{not json"))
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires redis (set REDIS_TEST_ADDR)")
	}

	client, err := redisclient.NewClient(addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client, time.Minute)

	require.NoError(t, s.Save(ctx, "it-session", sampleLedger(t)))
	defer s.Delete(ctx, "it-session")

	unlock, err := s.Lock(ctx, "it-session")
	require.NoError(t, err)
	unlock()

	got, err := s.Load(ctx, "it-session")
	require.NoError(t, err)
	assert.Len(t, got.Sales(), 1)

	_, err = s.Load(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}
