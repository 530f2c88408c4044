package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-dashboard/config"
	"inventory-dashboard/internal/api"
	"inventory-dashboard/internal/broker"
	"inventory-dashboard/internal/ledger"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/redisclient"
	"inventory-dashboard/internal/service"
	"inventory-dashboard/internal/session"
	"inventory-dashboard/internal/store"
	"inventory-dashboard/internal/util"
	"inventory-dashboard/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting inventory dashboard")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	ctx := context.Background()
	if err := db.SeedSuppliers(ctx, models.DefaultSuppliers()); err != nil {
		logger.Fatal("Failed to seed suppliers", zap.Error(err))
	}
	suppliers, err := db.ListSuppliers(ctx)
	if err != nil {
		logger.Fatal("Failed to load suppliers", zap.Error(err))
	}

	ledgerOpts := []ledger.Option{
		ledger.WithRestockThreshold(cfg.Business.RestockThreshold),
		ledger.WithAllowNegativeStock(cfg.Business.AllowNegativeStock),
		ledger.WithSuppliers(suppliers),
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	checks := map[string]api.ReadinessCheck{"database": db.Ping}

	var sessions service.SessionStore
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Redis connected, sessions stored in Redis")

		sessions = session.NewRedisStore(redisClient, cfg.Redis.SessionTTL, ledgerOpts...)
		checks["redis"] = redisClient.Ping
	} else {
		memory := session.NewMemoryStore()
		go memory.RunJanitor(workerCtx, time.Minute, cfg.Redis.SessionTTL, func(n int) {
			util.SessionsEvictedTotal.Add(float64(n))
			util.ActiveSessions.Set(float64(memory.Len()))
			logger.Info("Evicted idle sessions", zap.Int("count", n))
		})
		sessions = &gaugedMemoryStore{MemoryStore: memory}
		logger.Info("Sessions stored in process memory")
	}

	var publisher service.EventPublisher
	var restockWorker *worker.RestockWorker
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicLedger)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicLedger, cfg.Kafka.ConsumerGroup)
		restockWorker = worker.NewRestockWorker(consumer, db)
		go func() {
			if err := restockWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Restock worker error", zap.Error(err))
			}
		}()
	} else {
		logger.Info("No Kafka brokers configured, ledger events disabled")
	}

	ledgerService := service.NewLedgerService(sessions, db, publisher, ledgerOpts...)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(ledgerService, int64(cfg.Server.MaxUploadMB)<<20, checks)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if restockWorker != nil {
		restockWorker.Stop()
	}

	logger.Info("Server exited")
}

// gaugedMemoryStore keeps the active session gauge in step with the memory store
type gaugedMemoryStore struct {
	*session.MemoryStore
}

func (g *gaugedMemoryStore) Save(ctx context.Context, id string, l *ledger.Ledger) error {
	err := g.MemoryStore.Save(ctx, id, l)
	util.ActiveSessions.Set(float64(g.Len()))
	return err
}

func (g *gaugedMemoryStore) Delete(ctx context.Context, id string) error {
	err := g.MemoryStore.Delete(ctx, id)
	util.ActiveSessions.Set(float64(g.Len()))
	return err
}
