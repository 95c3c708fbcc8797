package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"WorkoutMate/config"
	"WorkoutMate/internal/cache"
	"WorkoutMate/internal/queue"
	"WorkoutMate/internal/repository"
	"WorkoutMate/pkg/logger"
	"WorkoutMate/pkg/metrics"
	"WorkoutMate/pkg/otel"
	"WorkoutMate/storage"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownOtel, err := otel.InitOpenTelemetry(ctx, otel.Config{
		ServiceName:  config.Cfg.ServiceName + "-worker",
		Environment:  config.Cfg.Environment,
		OTLPEndpoint: config.Cfg.OTelEndpoint,
		SampleRatio:  config.Cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize metrics", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := storage.Close(context.Background(),
			storage.Hook{Name: "telemetry", Close: shutdownOtel},
		); err != nil {
			logger.Logger.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	handler := queue.NewReminderHandler(repository.Reminders(), cache.NewHintStore(), time.Now)

	// 通道断开后退避重连，直到收到退出信号
	backoff := time.Second
	for ctx.Err() == nil {
		err := queue.StartDeadlineReminderConsumer(ctx, handler)
		if ctx.Err() != nil {
			break
		}
		logger.Logger.Error("Deadline reminder consumer stopped, restarting",
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
