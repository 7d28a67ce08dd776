package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/observability"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	serviceName := cfg.ServiceName + "-restock"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelCfg := observability.OTelConfig{Endpoint: cfg.OtelEndpoint, AuthHeader: cfg.OtelAuthHeader, ServiceName: serviceName}
	otelShutdown, err := observability.Setup(ctx, otelCfg)
	log := observability.NewLogger(cfg.LogLevel, serviceName)
	if err != nil {
		log.Error("otel setup", zap.Error(err))
	} else if otelCfg.Enabled() {
		log = observability.WithOTel(cfg.LogLevel, serviceName)
	}
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for the restock worker")
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	svc := &inventory.Service{
		Repo:        &orders.Repo{DB: db},
		Events:      prod,
		Log:         log,
		ServiceName: serviceName,
	}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		svc.Cache = redisx.NewCache(rdb)
	} else {
		log.Warn("REDIS_ADDR not set: restock events are not deduplicated")
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.RestockGroup, orders.TopicRestock, cfg.RestockWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("restock consumer started",
			zap.String("group", cfg.RestockGroup),
			zap.String("topic", orders.TopicRestock),
			zap.Int("workers", cfg.RestockWorkers),
		)
		if err := cons.Start(ctx, svc.HandleRestock); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	<-done

	prod.Close()
	prod.WaitClosed()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := otelShutdown(ctx2); err != nil {
		log.Error("otel shutdown", zap.Error(err))
	}
}
