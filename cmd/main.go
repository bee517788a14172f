package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"cazlyncNotifier/internal/auth"
	"cazlyncNotifier/internal/config"
	"cazlyncNotifier/internal/db"
	"cazlyncNotifier/internal/delivery"
	"cazlyncNotifier/internal/engine"
	"cazlyncNotifier/internal/handlers"
	"cazlyncNotifier/internal/metrics"
	"cazlyncNotifier/internal/notification"
	"cazlyncNotifier/internal/queue"
	"cazlyncNotifier/internal/routes"
	"cazlyncNotifier/internal/worker"
	"cazlyncNotifier/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("notifier exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	firebaseConfig, err := config.LoadFirebaseConfig()
	if err != nil {
		return err
	}
	if firebaseConfig.PrivateKeyEncrypted {
		kmsClient, err := config.NewKMSClient(ctx)
		if err != nil {
			return err
		}
		if err := firebaseConfig.DecryptPrivateKey(ctx, kmsClient); err != nil {
			return err
		}
	}

	firebaseClient, err := config.NewFirebaseClient(ctx, firebaseConfig)
	if err != nil {
		return err
	}
	defer firebaseClient.Close()

	store := db.NewStore(firebaseClient.Firestore)
	sender := delivery.NewClient(firebaseClient.Messaging, cfg.FCMSendRate, cfg.FCMSendTimeout)

	dispatcher := notification.NewDispatcher(store, sender, cfg.DispatchConcurrency)
	dispatcher.Observer = metrics.ObserveOutcome

	redisOpt := queue.RedisOpt(cfg.RedisAddr)
	broadcastTimeout := queue.BroadcastPageTimeout(cfg.UserPageSize, cfg.WorkerConcurrency, cfg.FCMSendRate)
	queueClient := queue.NewClient(redisOpt, cfg.WelcomeDelay, broadcastTimeout)
	defer queueClient.Close()

	eng := engine.New(store, dispatcher, queueClient, cfg.UserPageSize)

	scheduler, err := queue.NewScheduler(redisOpt, []queue.Job{
		{TaskType: queue.TaskPremiumExpiry, Cron: cfg.PremiumExpiryCron, TimeZone: cfg.PremiumExpiryTZ},
		{TaskType: queue.TaskDailyDigest, Cron: cfg.DailyDigestCron, TimeZone: cfg.DailyDigestTZ},
	})
	if err != nil {
		return err
	}

	srv := server.NewServer(routes.Deps{
		Events:    handlers.NewEventHandler(queueClient),
		JWTSecret: cfg.IngressJWTSecret,
		Limiter:   auth.NewRateLimiter(cfg.IngressRatePerMinute),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.NewWorker(redisOpt, cfg.WorkerConcurrency, eng).Start(gctx)
	})

	g.Go(func() error {
		if err := scheduler.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		scheduler.Shutdown()
		return nil
	})

	g.Go(func() error {
		return srv.Start(":" + cfg.Port)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("notifier started", "port", cfg.Port, "redis", cfg.RedisAddr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("notifier stopped")
	return nil
}
