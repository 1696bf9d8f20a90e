package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"doc-markup/internal/pdfmeta"
)

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(addr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) GetPageGeometry(ctx context.Context, docID uuid.UUID) (*pdfmeta.Info, error) {
	data, err := c.client.Get(ctx, Key(docID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var info pdfmeta.Info
	if err := json.Unmarshal(data, &info); err != nil {
		// A corrupt entry is a miss; drop it so the next set repairs it.
		_ = c.client.Del(ctx, Key(docID)).Err()
		return nil, nil
	}
	return &info, nil
}

func (c *RedisCache) SetPageGeometry(ctx context.Context, docID uuid.UUID, info *pdfmeta.Info, ttl time.Duration) error {
	if info == nil {
		return nil
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(docID), data, ttl).Err()
}

func (c *RedisCache) InvalidateDocument(ctx context.Context, docID uuid.UUID) error {
	return c.client.Del(ctx, Key(docID)).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
