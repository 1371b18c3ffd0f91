package memory

import (
	"context"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"news_reader/internal/storage"
)

// KV keeps values in process memory. Nothing expires.
type KV struct {
	cache *gocache.Cache
	mu    sync.RWMutex
}

func New() *KV {
	return &KV{cache: gocache.New(gocache.NoExpiration, 0)}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.RLock()
	v, ok := k.cache.Get(key)
	k.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	src := v.([]byte)
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k.mu.Lock()
	k.cache.Set(key, clone(value), gocache.NoExpiration)
	k.mu.Unlock()
	return nil
}

func (k *KV) SetMany(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for key, value := range entries {
		k.cache.Set(key, clone(value), gocache.NoExpiration)
	}
	return nil
}

func (k *KV) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		k.cache.Delete(key)
	}
	return nil
}

func (k *KV) Close() error {
	k.cache.Flush()
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
