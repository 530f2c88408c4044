package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"inventory-dashboard/internal/ledger"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/store"
	"inventory-dashboard/internal/tabular"
	"inventory-dashboard/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore holds one ledger per session id
type SessionStore interface {
	Save(ctx context.Context, id string, l *ledger.Ledger) error
	Load(ctx context.Context, id string) (*ledger.Ledger, error)
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) (func(), error)
}

// EventPublisher publishes ledger events
type EventPublisher interface {
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
	PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error
	PublishLowStockDetected(ctx context.Context, event *models.LowStockDetectedEvent) error
}

// ArchiveStore persists ledger snapshots beyond the session lifetime
type ArchiveStore interface {
	SaveArchive(ctx context.Context, sessionID string, snap ledger.Snapshot) (*store.Archive, error)
	LoadArchive(ctx context.Context, archiveID string) (ledger.Snapshot, error)
	ListArchives(ctx context.Context) ([]store.Archive, error)
	ListRestockRequests(ctx context.Context) ([]models.RestockRequest, error)
}

// LedgerService handles session ledgers
type LedgerService struct {
	sessions   SessionStore
	archives   ArchiveStore
	publisher  EventPublisher
	ledgerOpts []ledger.Option
	logger     *zap.Logger
}

// NewLedgerService creates a new ledger service. A nil publisher disables
// events and a nil archive store disables archiving.
func NewLedgerService(
	sessions SessionStore,
	archives ArchiveStore,
	publisher EventPublisher,
	ledgerOpts ...ledger.Option,
) *LedgerService {
	return &LedgerService{
		sessions:   sessions,
		archives:   archives,
		publisher:  publisher,
		ledgerOpts: ledgerOpts,
		logger:     util.GetLogger(),
	}
}

// ErrArchivingDisabled is returned when no archive store is configured
var ErrArchivingDisabled = errors.New("archiving is not configured")

// SessionResponse describes a freshly created session
type SessionResponse struct {
	SessionID    string         `json:"session_id"`
	Rows         int            `json:"rows"`
	Sales        int            `json:"sales"`
	SkippedDates int            `json:"skipped_dates"`
	Summary      ledger.Summary `json:"summary"`
}

// InventoryResponse is the inventory screen
type InventoryResponse struct {
	Threshold int64                 `json:"threshold"`
	Products  []models.Product      `json:"products"`
	LowStock  []ledger.LowStockItem `json:"low_stock"`
}

// AdjustStockRequest represents a manual stock update
type AdjustStockRequest struct {
	ProductID int64            `json:"product_id"`
	Direction ledger.Direction `json:"direction" binding:"required"`
	Quantity  int64            `json:"quantity" binding:"required"`
}

// RecordSaleRequest is the body of a sale submission
type RecordSaleRequest struct {
	ProductID      int64  `json:"product_id"`
	Quantity       int64  `json:"quantity" binding:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// AdjustStockResponse is the product after a stock update
type AdjustStockResponse struct {
	Product  models.Product       `json:"product"`
	Movement models.StockMovement `json:"movement"`
	LowStock bool                 `json:"low_stock"`
}

// RecordSaleResponse is the appended sale and the product's remaining stock
type RecordSaleResponse struct {
	Sale     models.Sale    `json:"sale"`
	Product  models.Product `json:"product"`
	LowStock bool           `json:"low_stock"`
}

// CreateSession loads an uploaded table into a new session
func (s *LedgerService) CreateSession(ctx context.Context, r io.Reader) (*SessionResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.CreateSession")
	defer span.End()

	res, err := tabular.Load(r, s.ledgerOpts...)
	if err != nil {
		util.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	sessionID := uuid.New().String()
	if err := s.sessions.Save(ctx, sessionID, res.Ledger); err != nil {
		util.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	util.UploadsTotal.WithLabelValues("accepted").Inc()
	util.UploadRows.Observe(float64(res.Rows))

	logger := util.SessionLogger(sessionID)
	logger.Info("Session created",
		zap.Int("rows", res.Rows),
		zap.Int("sales", res.Sales),
	)
	if res.SkippedDates > 0 {
		logger.Debug("Sales without a readable order date excluded from time series",
			zap.Int("skipped_dates", res.SkippedDates))
	}

	return &SessionResponse{
		SessionID:    sessionID,
		Rows:         res.Rows,
		Sales:        res.Sales,
		SkippedDates: res.SkippedDates,
		Summary:      res.Ledger.Summary(),
	}, nil
}

// DeleteSession discards a session
func (s *LedgerService) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, span := util.StartSpan(ctx, "LedgerService.DeleteSession")
	defer span.End()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	util.SessionLogger(sessionID).Info("Session deleted")
	return nil
}

// Dashboard returns the headline metrics
func (s *LedgerService) Dashboard(ctx context.Context, sessionID string) (*ledger.Summary, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Dashboard")
	defer span.End()

	l, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := l.Summary()
	return &summary, nil
}

// Inventory returns every product plus the low-stock list joined with suppliers
func (s *LedgerService) Inventory(ctx context.Context, sessionID string) (*InventoryResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Inventory")
	defer span.End()

	l, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &InventoryResponse{
		Threshold: l.Threshold(),
		Products:  l.Products(),
		LowStock:  l.LowStock(),
	}, nil
}

// Movements returns the stock movement log
func (s *LedgerService) Movements(ctx context.Context, sessionID string) ([]models.StockMovement, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Movements")
	defer span.End()

	l, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return l.Movements(), nil
}

// Sales returns every sale in insertion order
func (s *LedgerService) Sales(ctx context.Context, sessionID string) ([]models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Sales")
	defer span.End()

	l, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return l.Sales(), nil
}

// Reports returns every chart series
func (s *LedgerService) Reports(ctx context.Context, sessionID string) (*ledger.Report, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Reports")
	defer span.End()

	l, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	report := l.Report()
	return &report, nil
}

// Export writes the session as a wide CSV table
func (s *LedgerService) Export(ctx context.Context, sessionID string, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "LedgerService.Export")
	defer span.End()

	l, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	return tabular.Write(w, l)
}

// AdjustStock applies a manual stock increase or decrease
func (s *LedgerService) AdjustStock(ctx context.Context, sessionID string, req *AdjustStockRequest) (*AdjustStockResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.AdjustStock")
	defer span.End()

	var resp AdjustStockResponse
	var low ledger.LowStockItem
	var threshold int64
	err := s.mutate(ctx, sessionID, func(l *ledger.Ledger) error {
		movement, err := l.AdjustStock(req.ProductID, req.Direction, req.Quantity)
		if err != nil {
			return err
		}
		resp.Movement = movement
		resp.Product, _ = l.Product(req.ProductID)
		low, resp.LowStock = l.CheckLowStock(req.ProductID)
		threshold = l.Threshold()
		return nil
	})
	if err != nil {
		util.StockAdjustmentsRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	util.StockAdjustmentsTotal.WithLabelValues(string(req.Direction)).Inc()
	util.SessionLogger(sessionID).Info("Stock adjusted",
		zap.Int64("product_id", req.ProductID),
		zap.String("direction", string(req.Direction)),
		zap.Int64("quantity", req.Quantity),
		zap.Int64("stock", resp.Product.Stock),
	)

	if s.publisher != nil {
		event := &models.StockAdjustedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeStockAdjusted, sessionID),
			ProductID:   req.ProductID,
			Direction:   string(req.Direction),
			Quantity:    req.Quantity,
			StockBefore: resp.Movement.StockBefore,
			StockAfter:  resp.Movement.StockAfter,
		}
		if err := s.publisher.PublishStockAdjusted(ctx, event); err != nil {
			s.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
		}
	}
	if resp.LowStock {
		s.lowStockDetected(ctx, sessionID, low, threshold)
	}

	return &resp, nil
}

// RecordSale sells a product and appends the sale to the session
func (s *LedgerService) RecordSale(ctx context.Context, sessionID string, req *RecordSaleRequest) (*RecordSaleResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RecordSale")
	defer span.End()

	var resp RecordSaleResponse
	var low ledger.LowStockItem
	var threshold int64
	err := s.mutate(ctx, sessionID, func(l *ledger.Ledger) error {
		sale, err := l.RecordSale(ledger.SaleRequest{
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return err
		}
		resp.Sale = sale
		resp.Product, _ = l.Product(req.ProductID)
		low, resp.LowStock = l.CheckLowStock(req.ProductID)
		threshold = l.Threshold()
		return nil
	})
	if err != nil {
		util.SalesRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		if errors.Is(err, ledger.ErrDuplicateSale) {
			s.logger.Info("Duplicate sale request detected",
				zap.String("session_id", sessionID),
				zap.String("idempotency_key", req.IdempotencyKey))
		}
		return nil, err
	}

	util.SalesRecordedTotal.Inc()
	util.SessionLogger(sessionID).Info("Sale recorded",
		zap.Int64("sales_id", resp.Sale.SalesID),
		zap.Int64("product_id", resp.Sale.ProductID),
		zap.Int64("quantity", resp.Sale.Quantity),
		zap.String("total_price", resp.Sale.TotalPrice.String()),
	)

	if s.publisher != nil {
		event := &models.SaleRecordedEvent{
			BaseEvent:  newBaseEvent(models.EventTypeSaleRecorded, sessionID),
			SalesID:    resp.Sale.SalesID,
			ProductID:  resp.Sale.ProductID,
			Quantity:   resp.Sale.Quantity,
			TotalPrice: resp.Sale.TotalPrice,
			StockAfter: resp.Product.Stock,
		}
		if err := s.publisher.PublishSaleRecorded(ctx, event); err != nil {
			s.logger.Error("Failed to publish SaleRecorded event", zap.Error(err))
		}
	}
	if resp.LowStock {
		s.lowStockDetected(ctx, sessionID, low, threshold)
	}

	return &resp, nil
}

// Archive persists the session's current state
func (s *LedgerService) Archive(ctx context.Context, sessionID string) (*store.Archive, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Archive")
	defer span.End()

	if s.archives == nil {
		return nil, ErrArchivingDisabled
	}

	l, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	archive, err := s.archives.SaveArchive(ctx, sessionID, l.Snapshot())
	util.ArchiveLatency.WithLabelValues("save").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to save archive: %w", err)
	}

	util.SessionLogger(sessionID).Info("Session archived", zap.String("archive_id", archive.ID))
	return archive, nil
}

// RestoreArchive opens a new session from an archived snapshot
func (s *LedgerService) RestoreArchive(ctx context.Context, archiveID string) (*SessionResponse, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RestoreArchive")
	defer span.End()

	if s.archives == nil {
		return nil, ErrArchivingDisabled
	}

	start := time.Now()
	snap, err := s.archives.LoadArchive(ctx, archiveID)
	util.ArchiveLatency.WithLabelValues("restore").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	l, err := ledger.Restore(snap, s.ledgerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore archive %s: %w", archiveID, err)
	}

	sessionID := uuid.New().String()
	if err := s.sessions.Save(ctx, sessionID, l); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	skipped := 0
	for _, sale := range snap.Sales {
		if sale.OrderDate == nil {
			skipped++
		}
	}

	util.SessionLogger(sessionID).Info("Session restored", zap.String("archive_id", archiveID))
	return &SessionResponse{
		SessionID:    sessionID,
		Rows:         len(snap.Sales) + unsoldProducts(snap),
		Sales:        len(snap.Sales),
		SkippedDates: skipped,
		Summary:      l.Summary(),
	}, nil
}

// ListArchives returns stored archives, newest first
func (s *LedgerService) ListArchives(ctx context.Context) ([]store.Archive, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.ListArchives")
	defer span.End()

	if s.archives == nil {
		return nil, ErrArchivingDisabled
	}
	return s.archives.ListArchives(ctx)
}

// RestockRequests returns the requests raised by the restock worker
func (s *LedgerService) RestockRequests(ctx context.Context) ([]models.RestockRequest, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RestockRequests")
	defer span.End()

	if s.archives == nil {
		return nil, ErrArchivingDisabled
	}
	return s.archives.ListRestockRequests(ctx)
}

// mutate runs fn against the session ledger under the session lock and
// saves the result. Nothing is saved when fn fails.
func (s *LedgerService) mutate(ctx context.Context, sessionID string, fn func(*ledger.Ledger) error) error {
	unlock, err := s.sessions.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	l, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	if err := s.sessions.Save(ctx, sessionID, l); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *LedgerService) lowStockDetected(ctx context.Context, sessionID string, item ledger.LowStockItem, threshold int64) {
	util.LowStockAlertsTotal.Inc()
	s.logger.Warn("Low stock detected",
		zap.String("session_id", sessionID),
		zap.Int64("product_id", item.Product.ID),
		zap.Int64("stock", item.Product.Stock),
	)

	if s.publisher == nil {
		return
	}

	event := &models.LowStockDetectedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeLowStockDetected, sessionID),
		ProductID:   item.Product.ID,
		ProductName: item.Product.Name,
		Stock:       item.Product.Stock,
		Threshold:   threshold,
	}
	if item.Supplier != nil {
		event.SupplierName = item.Supplier.Name
		event.Contact = item.Supplier.Contact
	}
	if err := s.publisher.PublishLowStockDetected(ctx, event); err != nil {
		s.logger.Error("Failed to publish LowStockDetected event", zap.Error(err))
	}
}

func newBaseEvent(eventType, sessionID string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

func unsoldProducts(snap ledger.Snapshot) int {
	sold := make(map[int64]bool, len(snap.Sales))
	for _, sale := range snap.Sales {
		sold[sale.ProductID] = true
	}
	n := 0
	for _, p := range snap.Products {
		if !sold[p.ID] {
			n++
		}
	}
	return n
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ledger.ErrInvalidDirection):
		return "invalid_direction"
	case errors.Is(err, ledger.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ledger.ErrNegativeStock):
		return "negative_stock"
	case errors.Is(err, ledger.ErrDuplicateSale):
		return "duplicate"
	default:
		return "error"
	}
}
