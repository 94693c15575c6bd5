package lock

import (
	"context"
	"fmt"
	"time"

	"ms-events/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Connect sets up the redis client backing the publish lock and tests the connection
func Connect(ctx context.Context, addr string, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s for publish locking", addr))
	return client, nil
}
