package db

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/l-t-m-f/XO-TicTacToe/internal/config"
)

// NewRedisClient creates and returns a new Redis client for the configured
// server, pinging it once to ensure the connection is established.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
