package main

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-digital-shop/internal/app"
	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/config"
	"github.com/ariefcatur/go-digital-shop/internal/httpx"
	"github.com/ariefcatur/go-digital-shop/internal/jobs"
	kafkax "github.com/ariefcatur/go-digital-shop/internal/kafka"
	"github.com/ariefcatur/go-digital-shop/internal/logging"
	"github.com/ariefcatur/go-digital-shop/internal/payment/pakasir"
	"github.com/ariefcatur/go-digital-shop/internal/redisx"
	"github.com/ariefcatur/go-digital-shop/internal/telegram"
	"github.com/ariefcatur/go-digital-shop/internal/telemetry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.RequireBot(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.MustNewLogger(cfg.ServiceName+"-api", cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.Init(ctx, cfg.ServiceName+"-api", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("tracer_init_failed", zap.Error(err))
	}

	// Stores (ledger + pool + redis)
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("stores_open_failed", zap.Error(err))
	}
	defer stores.Close()

	// Telegram & Pakasir
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("telegram_init_failed", zap.Error(err))
	}
	gateway := pakasir.New(pakasir.Config{
		BaseURL: cfg.PakasirBaseURL,
		Slug:    cfg.PakasirSlug,
		APIKey:  cfg.PakasirAPIKey,
	})

	svc, stopEvents, err := app.NewService(cfg, stores, gateway, &telegram.Channel{API: api}, logger)
	if err != nil {
		logger.Fatal("service_init_failed", zap.Error(err))
	}

	// Job pool: semua kerja webhook jalan di sini
	pool := jobs.New(cfg.Workers, 1024, cfg.JobTimeout, logger)
	pool.Start(ctx)

	bot := &telegram.Bot{API: api, Shop: svc, Jobs: pool, AdminID: cfg.AdminChatID, Log: logger}
	if stores.Redis != nil {
		bot.Dedup = &redisx.Dedup{RDB: stores.Redis, TTL: cfg.DedupTTL}
		bot.Limiter = &redisx.Limiter{RDB: stores.Redis, Limit: cfg.BuyRateLimit, Window: cfg.BuyRateWindow}
	} else {
		logger.Warn("redis_disabled", zap.String("note", "no update dedup, no buy rate limit"))
	}

	var dispatcher checkout.Dispatcher = &checkout.InlineDispatcher{Service: svc, Jobs: pool}
	var notifProducer *kafkax.SyncProducer
	if cfg.DispatchMode == config.DispatchKafka {
		notifProducer = kafkax.NewSyncProducer(cfg.KafkaBrokers, cfg.PaymentTopic)
		dispatcher = &kafkax.NotificationPublisher{P: notifProducer, Service: cfg.ServiceName + "-api"}
	}

	router := httpx.NewRouter(logger)
	(&httpx.WebhookHandler{
		TelegramSecret: cfg.WebhookSecret,
		PakasirSecret:  cfg.PakasirWebhookSecret,
		Updates:        bot,
		Payments:       dispatcher,
		ParsePayment:   pakasir.Parser{Slug: cfg.PakasirSlug}.Parse,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("http_listening", zap.String("addr", cfg.HTTPAddr), zap.String("dispatch", cfg.DispatchMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http_listen_failed", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting_down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pool.Stop() // job yang sudah antre tetap diselesaikan
	if notifProducer != nil {
		_ = notifProducer.Close()
	}
	stopEvents()
	if err := shutdownTracer(ctx2); err != nil {
		logger.Warn("tracer_shutdown_failed", zap.Error(err))
	}
	cancel()
}
