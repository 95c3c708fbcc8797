package cache

import (
	"context"
	"errors"
	"time"

	ri "github.com/redis/go-redis/v9"

	"WorkoutMate/storage/redis"
)

const (
	completionPrefix = "completion"
	dateLayout       = "2006-01-02"
	// 提示只对当天有效，保留两天足以覆盖跨午夜的读取
	completionTTL = 48 * time.Hour
)

// HintStore 保存“今日已认证”提示，值为认证当天的本地日期。
// 只是性能提示，权威值永远来自后端帖子
type HintStore struct {
	breaker *CircuitBreaker
}

func NewHintStore() *HintStore {
	return &HintStore{breaker: RedisBreaker}
}

func completionKey(userID, communityID string) string {
	return redis.Key(completionPrefix, userID, communityID)
}

// Get 仅当缓存日期等于 day 所在日期时返回 true
func (h *HintStore) Get(ctx context.Context, userID, communityID string, day time.Time) (bool, error) {
	var value string
	err := h.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		value, err = redis.Client().Get(ctx, completionKey(userID, communityID)).Result()
		if errors.Is(err, ri.Nil) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return value == day.Format(dateLayout), nil
}

// Set 记录 day 当天已认证
func (h *HintStore) Set(ctx context.Context, userID, communityID string, day time.Time) error {
	return h.breaker.Call(ctx, func(ctx context.Context) error {
		return redis.Client().Set(ctx, completionKey(userID, communityID), day.Format(dateLayout), completionTTL).Err()
	})
}

// Clear 幂等，键不存在也不报错
func (h *HintStore) Clear(ctx context.Context, userID, communityID string) error {
	return h.breaker.Call(ctx, func(ctx context.Context) error {
		return redis.Client().Del(ctx, completionKey(userID, communityID)).Err()
	})
}
