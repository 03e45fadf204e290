package redisinfra

import (
	"strings"

	"github.com/palitan-tayo-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client. A comma-separated REDIS_ADDR yields a
// cluster client; a single address a plain one.
func NewClient(cfg *config.Config) redis.UniversalClient {
	var addrs []string
	for _, a := range strings.Split(cfg.RedisAddr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
