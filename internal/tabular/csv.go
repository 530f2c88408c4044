// Package tabular converts the dashboard's wide CSV layout, one row per sale
// joined with its product, to and from a ledger.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"inventory-dashboard/internal/ledger"
	"inventory-dashboard/internal/models"

	"github.com/shopspring/decimal"
)

// ErrMalformedInput is returned for uploads missing required columns or holding unreadable values
var ErrMalformedInput = errors.New("malformed input")

// Column names of the wide layout
const (
	ColProductID    = "product_id"
	ColProductName  = "product_name"
	ColStock        = "quantity_y"
	ColPrice        = "price"
	ColSalesID      = "sales_id"
	ColOrderID      = "order_id"
	ColQuantity     = "quantity_x"
	ColPricePerUnit = "price_per_unit"
	ColTotalPrice   = "total_price"
	ColOrderDate    = "order_date"
)

// Header is the column order written by Write
var Header = []string{
	ColProductID, ColProductName, ColStock, ColPrice,
	ColSalesID, ColOrderID, ColQuantity, ColPricePerUnit, ColTotalPrice, ColOrderDate,
}

// DateLayout is the order_date format written by Write
const DateLayout = "2006-01-02 15:04:05"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Result is a loaded ledger plus ingestion counters
type Result struct {
	Ledger       *ledger.Ledger
	Rows         int
	Sales        int
	SkippedDates int
}

type columns map[string]int

func (c columns) has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// Load parses a wide CSV into a new ledger built with opts
func Load(r io.Reader, opts ...ledger.Option) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedInput, err)
	}

	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	for _, required := range []string{ColProductID, ColProductName, ColStock} {
		if !cols.has(required) {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedInput, required)
		}
	}
	priceCol := ColPrice
	if !cols.has(ColPrice) {
		if !cols.has(ColPricePerUnit) {
			return nil, fmt.Errorf("%w: missing column %q or %q", ErrMalformedInput, ColPrice, ColPricePerUnit)
		}
		priceCol = ColPricePerUnit
	}

	res := &Result{Ledger: ledger.New(opts...)}
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedInput, line, err)
		}
		if blank(rec) {
			continue
		}
		res.Rows++

		id, err := parseInt(cols.get(rec, ColProductID))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: column %q: %v", ErrMalformedInput, line, ColProductID, err)
		}
		// only the first row of a product defines it; later rows may leave product cells empty
		known, err := res.Ledger.Product(id)
		if err != nil {
			if known, err = parseProduct(cols, rec, id, priceCol); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
			}
			if err := res.Ledger.AddProduct(known); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}

		if cols.get(rec, ColSalesID) == "" {
			continue
		}
		sale, dated, err := parseSale(cols, rec, known)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}
		if err := res.Ledger.AppendSale(sale); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		res.Sales++
		if !dated {
			res.SkippedDates++
		}
	}

	return res, nil
}

func parseProduct(cols columns, rec []string, id int64, priceCol string) (models.Product, error) {
	stock, err := parseInt(cols.get(rec, ColStock))
	if err != nil {
		return models.Product{}, fmt.Errorf("column %q: %v", ColStock, err)
	}
	rawPrice := cols.get(rec, priceCol)
	if rawPrice == "" {
		rawPrice = cols.get(rec, ColPricePerUnit)
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return models.Product{}, fmt.Errorf("column %q: %v", priceCol, err)
	}
	return models.Product{
		ID:    id,
		Name:  cols.get(rec, ColProductName),
		Stock: stock,
		Price: price,
	}, nil
}

// parseSale reports whether the order date parsed
func parseSale(cols columns, rec []string, product models.Product) (models.Sale, bool, error) {
	salesID, err := parseInt(cols.get(rec, ColSalesID))
	if err != nil {
		return models.Sale{}, false, fmt.Errorf("column %q: %v", ColSalesID, err)
	}
	orderID := salesID
	if raw := cols.get(rec, ColOrderID); raw != "" {
		if orderID, err = parseInt(raw); err != nil {
			return models.Sale{}, false, fmt.Errorf("column %q: %v", ColOrderID, err)
		}
	}
	if !cols.has(ColQuantity) {
		return models.Sale{}, false, fmt.Errorf("missing column %q", ColQuantity)
	}
	qty, err := parseInt(cols.get(rec, ColQuantity))
	if err != nil {
		return models.Sale{}, false, fmt.Errorf("column %q: %v", ColQuantity, err)
	}

	unit := product.Price
	if raw := cols.get(rec, ColPricePerUnit); raw != "" {
		if unit, err = decimal.NewFromString(raw); err != nil {
			return models.Sale{}, false, fmt.Errorf("column %q: %v", ColPricePerUnit, err)
		}
	}
	total := unit.Mul(decimal.NewFromInt(qty))
	if raw := cols.get(rec, ColTotalPrice); raw != "" {
		if total, err = decimal.NewFromString(raw); err != nil {
			return models.Sale{}, false, fmt.Errorf("column %q: %v", ColTotalPrice, err)
		}
	}

	sale := models.Sale{
		SalesID:    salesID,
		OrderID:    orderID,
		ProductID:  product.ID,
		Quantity:   qty,
		UnitPrice:  unit,
		TotalPrice: total,
	}
	rawDate := cols.get(rec, ColOrderDate)
	if d, ok := parseDate(rawDate); ok {
		sale.OrderDate = &d
		return sale, true, nil
	}
	sale.RawOrderDate = rawDate
	return sale, false, nil
}

// parseInt accepts integral floats such as "12.0"
func parseInt(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("empty value")
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return int64(f), nil
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d.UTC(), true
		}
	}
	return time.Time{}, false
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Write serialises the ledger in the wide layout: every sale joined with its
// product's current stock and price, then each product that has no sales.
func Write(w io.Writer, l *ledger.Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	products := l.Products()
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	sold := make(map[int64]bool)
	for _, s := range l.Sales() {
		p := byID[s.ProductID]
		sold[p.ID] = true
		if err := cw.Write(append(productFields(p), saleFields(s)...)); err != nil {
			return err
		}
	}
	for _, p := range products {
		if sold[p.ID] {
			continue
		}
		if err := cw.Write(append(productFields(p), "", "", "", "", "", "")); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func productFields(p models.Product) []string {
	return []string{
		strconv.FormatInt(p.ID, 10),
		p.Name,
		strconv.FormatInt(p.Stock, 10),
		p.Price.String(),
	}
}

func saleFields(s models.Sale) []string {
	date := s.RawOrderDate
	if s.OrderDate != nil {
		date = s.OrderDate.UTC().Format(DateLayout)
	}
	return []string{
		strconv.FormatInt(s.SalesID, 10),
		strconv.FormatInt(s.OrderID, 10),
		strconv.FormatInt(s.Quantity, 10),
		s.UnitPrice.String(),
		s.TotalPrice.String(),
		date,
	}
}
