package cache

import (
	"context"
	"fmt"
	"time"

	"WorkoutMate/storage/redis"
)

const (
	reminderSentPrefix     = "reminder:sent"
	messageProcessedPrefix = "message:processed"

	reminderSentTTL = 26 * time.Hour
	processedTTL    = 48 * time.Hour
)

// TryMarkReminderSent 同一订阅每天只提醒一次。返回 true 表示本次获得发送权
func TryMarkReminderSent(ctx context.Context, date string, subscriptionID int64) (bool, error) {
	key := redis.Key(reminderSentPrefix, date, fmt.Sprintf("%d", subscriptionID))
	ok, err := redis.Client().SetNX(ctx, key, "1", reminderSentTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return ok, nil
}

// UnmarkReminderSent 发布失败时撤销标记，下一轮扫描可以重试
func UnmarkReminderSent(ctx context.Context, date string, subscriptionID int64) error {
	key := redis.Key(reminderSentPrefix, date, fmt.Sprintf("%d", subscriptionID))
	return redis.Client().Del(ctx, key).Err()
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = processedTTL
	}
	ok, err := redis.Client().SetNX(ctx, redis.Key(messageProcessedPrefix, messageID), "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return ok, nil
}

// UnmarkMessageProcessing 处理失败时调用，允许重试
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	return redis.Client().Del(ctx, redis.Key(messageProcessedPrefix, messageID)).Err()
}

// MarkMessageProcessed 处理成功后延长 TTL
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, redis.Key(messageProcessedPrefix, messageID), "completed", ttl).Err()
}
