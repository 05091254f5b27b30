package db

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// Redis holds the profile document store. The API layer writes profile
// and signup documents; the pipeline only reads them.
var Redis *redis.Client
var Ctx = context.Background()

const (
	ProfileKeyPrefix = "aidigest:profile:"
	UserKeyPrefix    = "aidigest:user:"
)

func ConnectRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		fmt.Println("REDIS_URL environment variable is not set")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	Redis = redis.NewClient(opt)

	_, err = Redis.Ping(Ctx).Result()
	return err
}

func CloseRedis() {
	if Redis != nil {
		Redis.Close()
	}
}
