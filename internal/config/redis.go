package config

// Redis backs the response cache for the enriched reservation list and the
// distributed rate limiter.  Both features are optional: when no Redis
// server can be reached at startup this constructor returns nil and the
// middleware degrades to pass-through, so the reservation API keeps working
// without it.

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from the environment and verifies it
// with a short ping.  Recognized variables:
//
//	REDIS_ADDR            host:port shorthand
//	REDIS_HOST/REDIS_PORT individual parts; take precedence over REDIS_ADDR
//	REDIS_PASSWORD        optional password
//	REDIS_DB              database number (default 0)
//	REDIS_TLS             enable TLS when truthy
//
// The returned client is nil when the server cannot be reached; callers
// must treat nil as "caching and rate limiting disabled".
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis: ping %s failed: %v", addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
