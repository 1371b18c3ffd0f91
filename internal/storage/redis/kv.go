package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"news_reader/internal/storage"
)

type Config struct {
	Address  string
	Password string
	DB       int
}

// KV stores values as plain redis strings without expiration.
type KV struct {
	client *redis.Client
}

// New connects and pings the server.
func New(ctx context.Context, cfg Config) (*KV, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &KV{client: client}, nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	return k.client.Set(ctx, key, value, 0).Err()
}

// SetMany issues all writes in a MULTI/EXEC block.
func (k *KV) SetMany(ctx context.Context, entries map[string][]byte) error {
	_, err := k.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	})
	return err
}

func (k *KV) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return k.client.Del(ctx, keys...).Err()
}

func (k *KV) Close() error {
	return k.client.Close()
}
