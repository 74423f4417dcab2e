package main

import (
	"context"
	"github.com/ariefcatur/go-digital-shop/internal/app"
	"github.com/ariefcatur/go-digital-shop/internal/config"
	kafkax "github.com/ariefcatur/go-digital-shop/internal/kafka"
	"github.com/ariefcatur/go-digital-shop/internal/logging"
	"github.com/ariefcatur/go-digital-shop/internal/payment/pakasir"
	"github.com/ariefcatur/go-digital-shop/internal/telegram"
	"github.com/ariefcatur/go-digital-shop/internal/telemetry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// worker consumes payment notifications written by cmd/api (DISPATCH_MODE=kafka)
// and runs delivery. Store harus dipakai bersama api: postgres, atau sqlite di file yang sama.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.BotToken == "" || len(cfg.KafkaBrokers) == 0 {
		log.Fatalf("config: worker needs BOT_TOKEN and KAFKA_BROKERS")
	}
	logger := logging.MustNewLogger(cfg.ServiceName+"-worker", cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn("memory_store_in_worker", zap.String("note", "orders created by the api are not visible here"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.Init(ctx, cfg.ServiceName+"-worker", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("tracer_init_failed", zap.Error(err))
	}

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("stores_open_failed", zap.Error(err))
	}
	defer stores.Close()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("telegram_init_failed", zap.Error(err))
	}
	gateway := pakasir.New(pakasir.Config{BaseURL: cfg.PakasirBaseURL, Slug: cfg.PakasirSlug, APIKey: cfg.PakasirAPIKey})

	svc, stopEvents, err := app.NewService(cfg, stores, gateway, &telegram.Channel{API: api}, logger)
	if err != nil {
		logger.Fatal("service_init_failed", zap.Error(err))
	}
	dlq := kafkax.NewSyncProducer(cfg.KafkaBrokers, cfg.PaymentDLQTopic)
	defer func() { _ = dlq.Close() }()
	handler := &kafkax.PaymentHandler{Service: svc, DLQ: dlq, Log: logger}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, cfg.PaymentTopic, cfg.Workers, logger).
		WithDeadLetter(handler.DeadLetter)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("payment_consumer_started",
			zap.String("group", cfg.WorkerGroup), zap.String("topic", cfg.PaymentTopic), zap.Int("workers", cfg.Workers))
		if err := cons.Start(ctx, handler.Handle); err != nil {
			logger.Error("consumer_exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting_down")
	cancel()
	<-done
	stopEvents()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = shutdownTracer(ctx2)
}
