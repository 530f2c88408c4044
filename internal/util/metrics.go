package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_uploads_total",
		Help: "Total number of table uploads by result",
	}, []string{"result"})

	UploadRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_upload_rows",
		Help:    "Number of data rows per accepted upload",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	SalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sales_recorded_total",
		Help: "Total number of sales recorded",
	})

	SalesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_sales_rejected_total",
		Help: "Total number of rejected sales",
	}, []string{"reason"})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_stock_adjustments_total",
		Help: "Total number of manual stock adjustments",
	}, []string{"direction"})

	StockAdjustmentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_stock_adjustments_rejected_total",
		Help: "Total number of rejected stock adjustments",
	}, []string{"reason"})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_low_stock_alerts_total",
		Help: "Total number of low stock detections after a mutation",
	})

	RestockRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_restock_requests_total",
		Help: "Total number of restock requests created by the worker",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_active_sessions",
		Help: "Number of in-memory ledger sessions",
	})

	SessionsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sessions_evicted_total",
		Help: "Total number of idle sessions evicted",
	})

	ArchiveLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_archive_latency_seconds",
		Help:    "Latency of archive save and restore operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
