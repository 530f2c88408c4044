package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds the dashboard headline metrics
type Summary struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	ProductCount  int             `json:"product_count"`
	LowStockCount int             `json:"low_stock_count"`
}

// TrendPoint is one calendar month of sales. For cumulative series the
// values are running totals up to and including Month.
type TrendPoint struct {
	Month      time.Time       `json:"month"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Quantity   int64           `json:"quantity"`
}

// ProductSales is the summed sales value of one product name
type ProductSales struct {
	ProductName string          `json:"product_name"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// StockPoint pairs a product's sales with its remaining stock
type StockPoint struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	QuantitySold int64           `json:"quantity_sold"`
	Stock        int64           `json:"stock"`
}

// Report bundles every chart series
type Report struct {
	MonthlyTrend   []TrendPoint   `json:"monthly_trend"`
	SalesByProduct []ProductSales `json:"sales_by_product"`
	Cumulative     []TrendPoint   `json:"cumulative"`
	SalesVsStock   []StockPoint   `json:"sales_vs_stock"`
}

// TotalSales sums total_price over every sale
func (l *Ledger) TotalSales() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totalSales()
}

// ProductCount returns the number of distinct products
func (l *Ledger) ProductCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.products)
}

// Summary returns the dashboard metrics
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	low := 0
	for _, p := range l.products {
		if p.Stock <= l.threshold {
			low++
		}
	}
	return Summary{
		TotalSales:    l.totalSales(),
		ProductCount:  len(l.products),
		LowStockCount: low,
	}
}

// MonthlyTrend groups dated sales by calendar month, oldest first.
// Sales without a parsable order date are skipped.
func (l *Ledger) MonthlyTrend() []TrendPoint {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.monthlyTrend()
}

// CumulativeSales returns the running sum of the monthly trend
func (l *Ledger) CumulativeSales() []TrendPoint {
	l.mu.Lock()
	defer l.mu.Unlock()

	return cumulate(l.monthlyTrend())
}

// SalesByProduct sums sales per product name, largest first
func (l *Ledger) SalesByProduct() []ProductSales {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.salesByProduct()
}

// SalesVsStock returns sold value, sold units and stock per product, ordered by id
func (l *Ledger) SalesVsStock() []StockPoint {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.salesVsStock()
}

// Report computes every chart series under a single lock
func (l *Ledger) Report() Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	trend := l.monthlyTrend()
	return Report{
		MonthlyTrend:   trend,
		SalesByProduct: l.salesByProduct(),
		Cumulative:     cumulate(trend),
		SalesVsStock:   l.salesVsStock(),
	}
}

func (l *Ledger) totalSales() decimal.Decimal {
	total := decimal.Zero
	for _, s := range l.sales {
		total = total.Add(s.TotalPrice)
	}
	return total
}

func (l *Ledger) monthlyTrend() []TrendPoint {
	buckets := make(map[time.Time]*TrendPoint)
	for _, s := range l.sales {
		if s.OrderDate == nil {
			continue
		}
		d := s.OrderDate.UTC()
		month := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := buckets[month]
		if !ok {
			b = &TrendPoint{Month: month, TotalPrice: decimal.Zero}
			buckets[month] = b
		}
		b.TotalPrice = b.TotalPrice.Add(s.TotalPrice)
		b.Quantity += s.Quantity
	}

	out := make([]TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

func cumulate(trend []TrendPoint) []TrendPoint {
	out := make([]TrendPoint, len(trend))
	running := decimal.Zero
	var qty int64
	for i, p := range trend {
		running = running.Add(p.TotalPrice)
		qty += p.Quantity
		out[i] = TrendPoint{Month: p.Month, TotalPrice: running, Quantity: qty}
	}
	return out
}

func (l *Ledger) salesByProduct() []ProductSales {
	totals := make(map[string]decimal.Decimal)
	for _, p := range l.products {
		if _, ok := totals[p.Name]; !ok {
			totals[p.Name] = decimal.Zero
		}
	}
	for _, s := range l.sales {
		name := l.productName(s.ProductID)
		totals[name] = totals[name].Add(s.TotalPrice)
	}

	out := make([]ProductSales, 0, len(totals))
	for name, total := range totals {
		out = append(out, ProductSales{ProductName: name, TotalPrice: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalPrice.Cmp(out[j].TotalPrice); c != 0 {
			return c > 0
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out
}

func (l *Ledger) salesVsStock() []StockPoint {
	points := make(map[int64]*StockPoint, len(l.products))
	for id, p := range l.products {
		points[id] = &StockPoint{ProductID: id, ProductName: p.Name, TotalPrice: decimal.Zero, Stock: p.Stock}
	}
	for _, s := range l.sales {
		pt, ok := points[s.ProductID]
		if !ok {
			continue
		}
		pt.TotalPrice = pt.TotalPrice.Add(s.TotalPrice)
		pt.QuantitySold += s.Quantity
	}

	out := make([]StockPoint, 0, len(points))
	for _, pt := range points {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (l *Ledger) productName(id int64) string {
	if p, ok := l.products[id]; ok {
		return p.Name
	}
	return ""
}
