package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	ri "github.com/redis/go-redis/v9"

	"WorkoutMate/storage/redis"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	// 空值缓存TTL，较短时间避免长期占用
	emptyValueTTL = 30 * time.Second
	// TTL 随机抖动上限，避免同一批键同时过期
	ttlJitterMax = 10 * time.Second
)

// ErrEmptyValue 命中空值缓存：上次查询确认不存在
var ErrEmptyValue = errors.New("cached empty value")

// ProtectedCache 带空值保护与过期抖动的 JSON 缓存，经由 RedisBreaker 访问
type ProtectedCache struct {
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
	breaker   *CircuitBreaker
}

func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
		breaker:   RedisBreaker,
	}
}

// Set 缓存正常值，value 为 nil 时写入空值标识
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	data := emptyValueFlag
	ttl := pc.emptyTTL

	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal cache value: %w", err)
		}
		data = string(raw)
		ttl = jitter(pc.ttl)
	}

	return pc.breaker.Call(ctx, func(ctx context.Context) error {
		return redis.Client().Set(ctx, redis.Key(pc.keyPrefix, key), data, ttl).Err()
	})
}

// Get 返回是否命中。命中空值时返回 (true, ErrEmptyValue)
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var data string
	err := pc.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		data, err = redis.Client().Get(ctx, redis.Key(pc.keyPrefix, key)).Result()
		if errors.Is(err, ri.Nil) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to get cache: %w", err)
	}

	switch data {
	case "":
		return false, nil
	case emptyValueFlag:
		return true, ErrEmptyValue
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Delete 删除缓存
func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return pc.breaker.Call(ctx, func(ctx context.Context) error {
		return redis.Client().Del(ctx, redis.Key(pc.keyPrefix, key)).Err()
	})
}

func jitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	max := ttl / 10
	if max > ttlJitterMax {
		max = ttlJitterMax
	}
	if max <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(int64(max)))
}

// 预定义的缓存实例
var (
	// 社区记录：搜索目录与详情，认证配置修改后最多延迟一个 TTL 生效
	CommunityDirectoryCache = NewProtectedCache("community:directory", time.Minute)
	CommunityRecordCache    = NewProtectedCache("community:record", time.Minute)
)
