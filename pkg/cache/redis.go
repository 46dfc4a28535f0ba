package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/school-hub-api/pkg/config"
)

const pingTimeout = 5 * time.Second

// NewRedis returns a Redis client used for vendor sessions and normalized
// school data. The connection is verified before returning.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return client, nil
}

// Key builds a namespaced cache key, e.g. Key("data", accountID, "grades", periodID).
func Key(kind string, parts ...string) string {
	key := "school-hub:" + kind
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
