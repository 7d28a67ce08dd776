package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/httpx"
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
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelCfg := observability.OTelConfig{Endpoint: cfg.OtelEndpoint, AuthHeader: cfg.OtelAuthHeader, ServiceName: cfg.ServiceName}
	otelShutdown, err := observability.Setup(ctx, otelCfg)
	log := observability.NewLogger(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		log.Error("otel setup", zap.Error(err))
	} else if otelCfg.Enabled() {
		log = observability.WithOTel(cfg.LogLevel, cfg.ServiceName)
	}
	defer func() { _ = log.Sync() }()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	h := &httpx.Handler{
		Store:   &orders.Repo{DB: db},
		Log:     log,
		Service: cfg.ServiceName,
	}

	// Redis (optional)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		h.Cache = redisx.NewCache(rdb)
	}

	// Kafka producer (optional)
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start()
		h.Events = prod
	}

	router := httpx.NewRouter(log, cfg.RequestTimeout)
	h.Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	if err := otelShutdown(ctx2); err != nil {
		log.Error("otel shutdown", zap.Error(err))
	}
}
