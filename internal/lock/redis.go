// Package lock 提供基于 redis 的互斥锁，用于保证同一个周期配送不会被并发展开
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
)

var _ scheduler.Locker = (*RedisLocker)(nil)

// 只删除自己持有的锁，锁过期后被他人获取时不会误删
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	prefix string
	// 释放锁时使用的超时时间
	releaseTimeout time.Duration
}

func NewRedisLocker(client *redis.Client, releaseTimeout time.Duration) *RedisLocker {
	return &RedisLocker{
		client:         client,
		prefix:         "mealbox:lock:",
		releaseTimeout: releaseTimeout,
	}
}

// TryLock 尝试获取锁，锁已被占用时返回 ok 为 false
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	key = l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		// 请求的 context 可能已经取消，这里单独创建
		ctx, cancel := context.WithTimeout(context.Background(), l.releaseTimeout)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}

	return unlock, true, nil
}
