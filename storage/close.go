package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"WorkoutMate/pkg/logger"
	"WorkoutMate/storage/database"
	"WorkoutMate/storage/mq"
	"WorkoutMate/storage/redis"
)

const defaultCloseTimeout = 15 * time.Second

// Hook 随存储一起释放的进程级资源，例如后端客户端与 telemetry
type Hook struct {
	Name  string
	Close func(context.Context) error
}

// Close 先停提醒队列，再关 Redis 与订阅库，最后按传入顺序执行 hooks。
// 单个资源失败不会中断后续步骤，错误合并返回
func Close(ctx context.Context, hooks ...Hook) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCloseTimeout)
		defer cancel()
	}

	steps := append([]Hook{
		{Name: "reminder_queue", Close: mq.Close},
		{Name: "hint_cache", Close: redis.Close},
		{Name: "reminder_store", Close: database.Close},
	}, hooks...)

	log := logger.Component("storage")
	var errs []error
	for _, step := range steps {
		if step.Close == nil {
			continue
		}
		start := time.Now()
		if err := step.Close(ctx); err != nil {
			log.Error("Failed to close resource",
				zap.String("resource", step.Name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		log.Info("Resource closed",
			zap.String("resource", step.Name),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return errors.Join(errs...)
}
