package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/websage/backend/pkg/logger"
	"github.com/websage/backend/pkg/utils"
)

// Client caches extracted page text by URL so repeated extraction requests
// skip the fetch. Entries are TTL-bound; the cache is an optimization, not
// a store of record.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GetPage(ctx context.Context, url string) (string, bool, error) {
	data, err := c.client.Get(ctx, pageKey(url)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get page cache: %w", err)
	}

	logger.Debug("Page cache hit", zap.String("url", url))
	return data, true, nil
}

func (c *Client) SetPage(ctx context.Context, url, content string) error {
	err := c.client.Set(ctx, pageKey(url), content, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set page cache: %w", err)
	}

	logger.Debug("Page cached", zap.String("url", url), zap.Duration("ttl", c.ttl))
	return nil
}

func pageKey(url string) string {
	return fmt.Sprintf("page:%s", utils.HashString(url))
}
