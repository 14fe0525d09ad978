package cache

import (
	"context"
	"fmt"
	"time"
)

// AcquireSyncLock 以 SETNX 占用单用户同步标记，避免并发重复同步。
// 缓存未启用时直接放行。
func AcquireSyncLock(ctx context.Context, userID uint, ttl time.Duration) (bool, error) {
	if !Enabled() {
		return true, nil
	}
	key := buildKey(fmt.Sprintf("affiliate:sync_lock:%d", userID))
	return redisClient.SetNX(ctx, key, 1, ttl).Result()
}

// ReleaseSyncLock 释放单用户同步标记
func ReleaseSyncLock(ctx context.Context, userID uint) error {
	if !Enabled() {
		return nil
	}
	key := buildKey(fmt.Sprintf("affiliate:sync_lock:%d", userID))
	return redisClient.Del(ctx, key).Err()
}
