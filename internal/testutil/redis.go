package testutil

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
)

// SetupRedisContainer 启动一个 redis 容器，无法启动时跳过测试
func SetupRedisContainer(ctx context.Context, t *testing.T) (*redis.Client, func()) {
	t.Helper()

	// 没有 docker 时 testcontainers 可能直接 panic
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("无法启动 redis 容器: %v", r)
		}
	}()

	container, err := redismodule.Run(ctx, "redis:8-alpine")
	if err != nil {
		t.Skipf("无法启动 redis 容器: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Skipf("无法获取 redis 地址: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	cleanup := func() {
		if err := client.Close(); err != nil {
			t.Logf("关闭 redis 客户端失败: %v", err)
		}
		if err := container.Terminate(ctx); err != nil {
			t.Logf("销毁 redis 容器失败: %v", err)
		}
	}

	return client, cleanup
}
