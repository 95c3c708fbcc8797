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
	"WorkoutMate/internal/schedule"
	"WorkoutMate/pkg/logger"
	"WorkoutMate/pkg/metrics"
	"WorkoutMate/pkg/otel"
	"WorkoutMate/pkg/snowflake"
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

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownOtel, err := otel.InitOpenTelemetry(ctx, otel.Config{
		ServiceName:  config.Cfg.ServiceName + "-scheduler",
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
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer func() {
		if err := storage.Close(context.Background(),
			storage.Hook{Name: "telemetry", Close: shutdownOtel},
		); err != nil {
			logger.Logger.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
		zap.Int("lead_minutes", config.Cfg.ReminderLeadMinutes),
	)

	runReminderLoop(ctx)

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runReminderLoop 按 REMINDER_SCAN_SECONDS 周期扫描订阅
func runReminderLoop(ctx context.Context) {
	s := schedule.GetReminderScheduler()

	interval := time.Duration(config.Cfg.ReminderScanSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, interval)
			if _, err := s.ScanDueReminders(runCtx); err != nil {
				logger.Logger.Error("Reminder scan failed", zap.Error(err))
			}
			cancel()
		}
	}
}
