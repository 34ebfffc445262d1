package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "notification-engine/contracts/mq"
	"notification-engine/internal/config"
	"notification-engine/internal/httpserver"
	"notification-engine/internal/mqhandler"
	"notification-engine/internal/repository"
	"notification-engine/internal/service"
	"notification-engine/pkg/db"
	"notification-engine/pkg/logger"
	"notification-engine/pkg/mq"
	"notification-engine/pkg/outbox"
	redisclient "notification-engine/pkg/redis"
	"notification-engine/pkg/util"
	"notification-engine/pkg/webpush"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting notification worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	// Redis: event dedup and retry counters
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	dedupTTL := time.Duration(cfg.Worker.DedupTTLSeconds) * time.Second
	if dedupTTL <= 0 {
		dedupTTL = time.Hour
	}
	retryTTL := time.Duration(cfg.Worker.RetryTTLSeconds) * time.Second
	if retryTTL <= 0 {
		retryTTL = time.Hour
	}
	deduper := util.NewDeduperWithLogger(rdb, dedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, retryTTL)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := repository.InitSchema(context.Background(), dbConn); err != nil {
		log.Fatal("Failed to init schema", zap.Error(err))
	}
	log.Info("Database ready")

	// Repositories
	notificationRepo := repository.NewNotificationRepository(dbConn)
	subscriptionRepo := repository.NewSubscriptionRepository(dbConn)
	preferenceRepo := repository.NewPreferenceRepository(dbConn)
	outboxRepo := outbox.NewRepository(dbConn)

	// Web Push sender. Without VAPID keys the worker still runs; the
	// dispatcher skips every push and says so once.
	var sender service.PushSender
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		client, err := webpush.NewClient(webpush.Config{
			Subject:    cfg.Push.Subject,
			PublicKey:  cfg.Push.VAPIDPublicKey,
			PrivateKey: cfg.Push.VAPIDPrivateKey,
		})
		if err != nil {
			log.Fatal("Invalid VAPID configuration", zap.Error(err))
		}
		sender = client
		log.Info("Web Push sender configured", zap.String("subject", cfg.Push.Subject))
	} else {
		log.Warn("VAPID keys not configured, push delivery disabled")
	}

	// MQ publisher: outbox relay and DLQ parking
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	if err := publisher.SetupDLQ(
		mqcontracts.RoutingKeyNotifyRequest,
		mqcontracts.RoutingKeySubscriptionRegistered,
		mqcontracts.RoutingKeySubscriptionRemoved,
	); err != nil {
		log.Fatal("Failed to declare DLQ topology", zap.Error(err))
	}

	// Services
	resolver := service.NewPreferenceResolver(preferenceRepo, log)
	recorder := service.NewRecorder(dbConn, notificationRepo, log)
	dispatcher := service.NewPushDispatcher(subscriptionRepo, sender, cfg.Push.TTLSeconds, log)
	notifier := service.NewNotifier(resolver, recorder, dispatcher, log)
	subscriptions := service.NewSubscriptionService(subscriptionRepo, log)

	// Outbox relay
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxDispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	if cfg.Outbox.MaxRetries > 0 {
		outboxDispatcher.WithMaxRetries(cfg.Outbox.MaxRetries)
	}
	if cfg.Outbox.IntervalSeconds > 0 {
		outboxDispatcher.WithInterval(time.Duration(cfg.Outbox.IntervalSeconds) * time.Second)
	}
	if cfg.Outbox.BatchSize > 0 {
		outboxDispatcher.WithBatchSize(cfg.Outbox.BatchSize)
	}
	go outboxDispatcher.Start(ctx)

	// MQ handlers
	maxRetries := int64(cfg.Worker.RetryMax)
	notifyHandler := mqhandler.NewNotifyRequestHandler(notifier, deduper, publisher, log)
	registeredHandler := mqhandler.NewSubscriptionRegisteredHandler(subscriptions, retryCounter, publisher, maxRetries, log)
	removedHandler := mqhandler.NewSubscriptionRemovedHandler(subscriptions, retryCounter, publisher, maxRetries, log)

	consumers := []struct {
		queue      string
		routingKey string
		handler    mq.MessageHandler
	}{
		{"notify.request.q", mqcontracts.RoutingKeyNotifyRequest, notifyHandler.Handle},
		{"push.subscription.registered.q", mqcontracts.RoutingKeySubscriptionRegistered, registeredHandler.Handle},
		{"push.subscription.removed.q", mqcontracts.RoutingKeySubscriptionRemoved, removedHandler.Handle},
	}

	running := make([]*mq.Consumer, 0, len(consumers))
	for _, c := range consumers {
		log.Info("Initializing consumer",
			zap.String("queue", c.queue),
			zap.String("routing_key", c.routingKey),
		)
		consumer, err := mq.NewConsumer(cfg.MQ.URL, c.queue, c.routingKey, log)
		if err != nil {
			log.Fatal("Failed to init consumer", zap.String("queue", c.queue), zap.Error(err))
		}
		consumer.SetHandler(c.handler)

		go func(queue string, consumer *mq.Consumer) {
			log.Info("Starting consumer", zap.String("queue", queue))
			if err := consumer.StartConsuming(); err != nil {
				log.Fatal("Consumer failed", zap.String("queue", queue), zap.Error(err))
			}
		}(c.queue, consumer)

		running = append(running, consumer)
	}

	// Ops HTTP server
	replayService := outbox.NewReplayService(outboxRepo)
	router := httpserver.NewRouter(dbConn, publisher, notificationRepo, replayService, outboxRepo, log)

	port := cfg.Server.Port
	if port == "" {
		port = "8090"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("Notification worker is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notification worker...")

	cancel()
	for _, consumer := range running {
		consumer.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Notification worker shutdown complete")
}
