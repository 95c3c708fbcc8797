package cache

import (
	"context"
	"time"

	"WorkoutMate/storage/redis"
)

// 基于 SETNX 的分布式锁，防止多个调度器副本重复扫描
const lockPrefix = "lock"

func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return redis.Client().SetNX(ctx, redis.Key(lockPrefix, key), 1, ttl).Result()
}

func Unlock(ctx context.Context, key string) error {
	return redis.Client().Del(ctx, redis.Key(lockPrefix, key)).Err()
}
