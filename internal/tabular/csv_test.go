package tabular

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"inventory-dashboard/internal/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `product_id,product_name,quantity_y,price,sales_id,order_id,quantity_x,total_price,order_date
1,Kopi,20,15000,1,1,2,30000,2024-01-05
1,Kopi,20,15000,2,2,1,15000,2024-01-20 14:00:00
2,Teh,8,8000,3,3,3,24000,2024-02-11
3,Gula,40,12000,4,4,1,12000,someday
4,Susu,5,9500,,,,,
`

func TestLoad(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 4, res.Sales)
	assert.Equal(t, 1, res.SkippedDates)

	l := res.Ledger
	assert.Equal(t, 4, l.ProductCount())

	p, err := l.Product(1)
	require.NoError(t, err)
	assert.Equal(t, "Kopi", p.Name)
	assert.Equal(t, int64(20), p.Stock)
	assert.True(t, decimal.NewFromInt(15000).Equal(p.Price))

	sales := l.Sales()
	require.Len(t, sales, 4)
	require.NotNil(t, sales[1].OrderDate)
	assert.Equal(t, time.Date(2024, 1, 20, 14, 0, 0, 0, time.UTC), *sales[1].OrderDate)
	assert.Nil(t, sales[3].OrderDate)
	assert.Equal(t, "someday", sales[3].RawOrderDate)

	assert.Equal(t, int64(5), l.NextSaleID())

	trend := l.MonthlyTrend()
	require.Len(t, trend, 2)
	assert.True(t, decimal.NewFromInt(45000).Equal(trend[0].TotalPrice))
}

func TestLoadMissingStockColumn(t *testing.T) {
	input := "product_id,product_name,price\n1,Kopi,15000\n"

	_, err := Load(strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), ColStock)
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"no price column", "product_id,product_name,quantity_y\n1,Kopi,3\n"},
		{"bad stock", "product_id,product_name,quantity_y,price\n1,Kopi,lots,100\n"},
		{"bad product id", "product_id,product_name,quantity_y,price\nx,Kopi,1,100\n"},
		{"bad price", "product_id,product_name,quantity_y,price\n1,Kopi,1,cheap\n"},
		{"sale without quantity column", "product_id,product_name,quantity_y,price,sales_id\n1,Kopi,1,100,1\n"},
		{"stock out of range", "product_id,product_name,quantity_y,price\n1,Kopi,1e30,100\n"},
		{"product id out of range", "product_id,product_name,quantity_y,price\n-1e19,Kopi,1,100\n"},
		{"unterminated quote", "product_id,product_name,quantity_y,price\n1,\"Kopi,1,100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestLoadPricePerUnitAndDerivedTotal(t *testing.T) {
	input := "\ufeffProduct_ID,product_name,quantity_y,price_per_unit,sales_id,quantity_x\n" +
		"7,Roti,12.0,2500.5,10,4\n"

	res, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	p, err := res.Ledger.Product(7)
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.Stock)
	assert.True(t, decimal.RequireFromString("2500.5").Equal(p.Price))

	sales := res.Ledger.Sales()
	require.Len(t, sales, 1)
	assert.Equal(t, int64(10), sales[0].OrderID)
	assert.True(t, decimal.RequireFromString("10002").Equal(sales[0].TotalPrice))
	assert.Equal(t, 1, res.SkippedDates)
}

func TestLoadAppendedRowsWithoutProductCells(t *testing.T) {
	input := "product_id,product_name,quantity_y,price,sales_id,order_id,quantity_x,price_per_unit,total_price,order_date\n" +
		"1,Kopi,18,15000,1,1,2,,30000,2024-01-05\n" +
		"1,,,,6,6,2,15000,30000,2024-03-01 08:15:00.123456\n"

	res, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	p, _ := res.Ledger.Product(1)
	assert.Equal(t, "Kopi", p.Name)
	assert.Equal(t, int64(18), p.Stock)
	assert.Len(t, res.Ledger.Sales(), 2)
	assert.Equal(t, 0, res.SkippedDates)
}

func TestLoadAppliesLedgerOptions(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCSV), ledger.WithRestockThreshold(5))
	require.NoError(t, err)

	low := res.Ledger.LowStock()
	require.Len(t, low, 1)
	assert.Equal(t, int64(4), low[0].Product.ID)
}

func TestWriteRoundTrip(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	l := res.Ledger
	_, err = l.RecordSale(ledger.SaleRequest{ProductID: 2, Quantity: 2})
	require.NoError(t, err)
	_, err = l.AdjustStock(4, ledger.Increase, 10)
	require.NoError(t, err)

	var first bytes.Buffer
	require.NoError(t, Write(&first, l))

	again, err := Load(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)

	var second bytes.Buffer
	require.NoError(t, Write(&second, again.Ledger))

	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, l.Products(), again.Ledger.Products())
	assert.Len(t, again.Ledger.Sales(), 5)
	assert.Equal(t, l.NextSaleID(), again.Ledger.NextSaleID())
	assert.True(t, l.TotalSales().Equal(again.Ledger.TotalSales()))
}

func TestWriteLayout(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res.Ledger))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Equal(t, "1,Kopi,20,15000,1,1,2,15000,30000,2024-01-05 00:00:00", lines[1])
	assert.Equal(t, "3,Gula,40,12000,4,4,1,12000,12000,someday", lines[4])
	assert.Equal(t, "4,Susu,5,9500,,,,,,", lines[5])
}
