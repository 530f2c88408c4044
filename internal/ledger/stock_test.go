package ledger

import (
	"testing"

	"inventory-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustStock(t *testing.T) {
	l := newTestLedger(t)

	m, err := l.AdjustStock(1, Increase, 5)
	require.NoError(t, err)
	assert.Equal(t, models.MovementIncrease, m.Kind)
	assert.Equal(t, int64(20), m.StockBefore)
	assert.Equal(t, int64(25), m.StockAfter)

	m, err = l.AdjustStock(1, Decrease, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(18), m.StockAfter)

	p, _ := l.Product(1)
	assert.Equal(t, int64(18), p.Stock)
	assert.Len(t, l.Movements(), 2)
}

func TestAdjustStockRejections(t *testing.T) {
	l := newTestLedger(t)

	tests := []struct {
		name      string
		productID int64
		dir       Direction
		amount    int64
		wantErr   error
	}{
		{"zero amount", 1, Increase, 0, ErrInvalidQuantity},
		{"negative amount", 1, Decrease, -3, ErrInvalidQuantity},
		{"unknown product", 77, Increase, 1, ErrProductNotFound},
		{"unknown direction", 1, Direction("sideways"), 1, ErrInvalidDirection},
		{"below zero", 4, Decrease, 4, ErrNegativeStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.AdjustStock(tt.productID, tt.dir, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, l.Movements())
	p, _ := l.Product(4)
	assert.Equal(t, int64(3), p.Stock)
}

func TestAdjustStockAllowNegative(t *testing.T) {
	l := newTestLedger(t, WithAllowNegativeStock(true))

	m, err := l.AdjustStock(4, Decrease, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), m.StockAfter)
}

func TestLowStock(t *testing.T) {
	l := newTestLedger(t)

	low := l.LowStock()
	require.Len(t, low, 2)

	assert.Equal(t, int64(2), low[0].Product.ID)
	require.NotNil(t, low[0].Supplier)
	assert.Equal(t, "Supplier B", low[0].Supplier.Name)
	assert.Equal(t, "b@example.com", low[0].Supplier.Contact)

	assert.Equal(t, int64(4), low[1].Product.ID)
	assert.Nil(t, low[1].Supplier)

	_, err := l.AdjustStock(1, Decrease, 10)
	require.NoError(t, err)
	assert.Len(t, l.LowStock(), 3)

	_, err = l.AdjustStock(2, Increase, 1)
	require.NoError(t, err)
	assert.Len(t, l.LowStock(), 2)
}

func TestLowStockCustomThresholdAndSuppliers(t *testing.T) {
	l := newTestLedger(t,
		WithRestockThreshold(3),
		WithSuppliers([]models.Supplier{
			{ProductID: 4, Name: "Gula Jaya", Contact: "gula@example.com"},
			{ProductID: 4, Name: "Second", Contact: "second@example.com"},
		}),
	)

	low := l.LowStock()
	require.Len(t, low, 1)
	require.NotNil(t, low[0].Supplier)
	assert.Equal(t, "Gula Jaya", low[0].Supplier.Name)

	item, ok := l.CheckLowStock(4)
	assert.True(t, ok)
	assert.Equal(t, int64(3), item.Product.Stock)

	_, ok = l.CheckLowStock(2)
	assert.False(t, ok)
}
