package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventory-dashboard/internal/ledger"
	"inventory-dashboard/internal/service"
	"inventory-dashboard/internal/session"
	"inventory-dashboard/internal/store"
	"inventory-dashboard/internal/tabular"
	"inventory-dashboard/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ExportFilename is the attachment name of exported tables
const ExportFilename = "updated_data.csv"

// ReadinessCheck reports whether a dependency can serve requests
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	ledgerService  *service.LedgerService
	maxUploadBytes int64
	checks         map[string]ReadinessCheck
}

// NewHandler creates a new HTTP handler
func NewHandler(ledgerService *service.LedgerService, maxUploadBytes int64, checks map[string]ReadinessCheck) *Handler {
	return &Handler{
		ledgerService:  ledgerService,
		maxUploadBytes: maxUploadBytes,
		checks:         checks,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sessions", h.createSession)
		v1.DELETE("/sessions/:id", h.deleteSession)
		v1.GET("/sessions/:id/dashboard", h.getDashboard)
		v1.GET("/sessions/:id/inventory", h.getInventory)
		v1.POST("/sessions/:id/inventory/adjust", h.adjustStock)
		v1.GET("/sessions/:id/inventory/movements", h.getMovements)
		v1.GET("/sessions/:id/sales", h.getSales)
		v1.POST("/sessions/:id/sales", h.recordSale)
		v1.GET("/sessions/:id/reports", h.getReports)
		v1.GET("/sessions/:id/export", h.exportSession)
		v1.POST("/sessions/:id/archive", h.archiveSession)

		v1.GET("/archives", h.listArchives)
		v1.POST("/archives/:id/restore", h.restoreArchive)
		v1.GET("/restock-requests", h.listRestockRequests)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports not ready while any dependency check fails
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createSession accepts a multipart "file" field or a raw CSV body
func (h *Handler) createSession(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(c, "Upload too large", err)
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Missing upload",
				"details": err.Error(),
			})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Unreadable upload",
				"details": err.Error(),
			})
			return
		}
		defer file.Close()
		body = file
	}

	resp, err := h.ledgerService.CreateSession(c.Request.Context(), body)
	if err != nil {
		respondError(c, "Failed to load upload", err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// deleteSession discards a session
func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.ledgerService.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getDashboard handles the headline metrics
func (h *Handler) getDashboard(c *gin.Context) {
	summary, err := h.ledgerService.Dashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to load dashboard", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// getInventory handles the product and low-stock listing
func (h *Handler) getInventory(c *gin.Context) {
	inv, err := h.ledgerService.Inventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to load inventory", err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// adjustStock handles manual stock updates
func (h *Handler) adjustStock(c *gin.Context) {
	var req service.AdjustStockRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.Direction = ledger.Direction(strings.ToLower(string(req.Direction)))

	resp, err := h.ledgerService.AdjustStock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "Failed to adjust stock", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getMovements lists manual stock adjustments, oldest first
func (h *Handler) getMovements(c *gin.Context) {
	movements, err := h.ledgerService.Movements(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to load movements", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements})
}

// getSales lists recorded sales
func (h *Handler) getSales(c *gin.Context) {
	sales, err := h.ledgerService.Sales(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to load sales", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

// recordSale handles sale submission
func (h *Handler) recordSale(c *gin.Context) {
	var req service.RecordSaleRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.ledgerService.RecordSale(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "Failed to record sale", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// getReports handles the trend and per-product aggregates
func (h *Handler) getReports(c *gin.Context) {
	report, err := h.ledgerService.Reports(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to build reports", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// exportSession streams the session as a CSV attachment
func (h *Handler) exportSession(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.ledgerService.Export(c.Request.Context(), c.Param("id"), &buf); err != nil {
		respondError(c, "Failed to export session", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// archiveSession persists a snapshot of the session
func (h *Handler) archiveSession(c *gin.Context) {
	archive, err := h.ledgerService.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to archive session", err)
		return
	}
	c.JSON(http.StatusCreated, archive)
}

// listArchives handles the archive listing
func (h *Handler) listArchives(c *gin.Context) {
	archives, err := h.ledgerService.ListArchives(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list archives", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archives": archives})
}

// restoreArchive opens a new session from an archive
func (h *Handler) restoreArchive(c *gin.Context) {
	resp, err := h.ledgerService.RestoreArchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to restore archive", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// listRestockRequests lists requests raised for low-stock products
func (h *Handler) listRestockRequests(c *gin.Context) {
	requests, err := h.ledgerService.RestockRequests(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list restock requests", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restock_requests": requests})
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		util.GetLogger().Error(message,
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, ledger.ErrProductNotFound),
		errors.Is(err, store.ErrArchiveNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrNegativeStock),
		errors.Is(err, ledger.ErrDuplicateSale):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidDirection):
		return http.StatusBadRequest
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, tabular.ErrMalformedInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrArchivingDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
