package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

var Redis *redis.Client

func InitializeRedis() {
	// Get Redis URL from environment, fallback to localhost for development
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
		log.Println("⚠️  REDIS_URL not set, using localhost:6379 (development mode)")
	}

	Redis = redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: "", // No password for now
		DB:       0,
	})

	log.Println("🔧 Redis initialized with address:", redisURL)
}

// AcquireDailyLock takes a per-day lock so a sweep runs once even when several
// server instances are up. Returns true when this instance won the lock.
// Without Redis (tests, single-instance dev) the lock is a no-op.
func AcquireDailyLock(ctx context.Context, job string, day time.Time) bool {
	if Redis == nil {
		return true
	}

	key := fmt.Sprintf("sweep:%s:%s", job, day.Format("2006-01-02"))
	ok, err := Redis.SetNX(ctx, key, "1", 48*time.Hour).Result()
	if err != nil {
		log.Printf("⚠️  Redis lock %s failed: %v (running sweep anyway)", key, err)
		return true
	}
	return ok
}
