package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

const redisKeyPrefix = "outreach:crawl:"

// RedisCache implements CrawlCache on Redis. Expiry is delegated to key TTLs.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// RedisOptions configures NewRedisCache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	_, err := resilience.Retry(ctx, resilience.DefaultPolicy("redis.ping"), func(ctx context.Context) (string, error) {
		return client.Ping(ctx).Result()
	})
	if err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "redis: ping %s", opts.Addr)
	}
	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, prefix: redisKeyPrefix}
}

func (c *RedisCache) key(url string) string {
	return c.prefix + url
}

func (c *RedisCache) GetCachedCrawl(ctx context.Context, url string) (*model.CrawlCache, error) {
	raw, err := c.client.Get(ctx, c.key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "redis: get cached crawl")
	}
	var cc model.CrawlCache
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, eris.Wrap(err, "redis: unmarshal cached crawl")
	}
	return &cc, nil
}

func (c *RedisCache) SetCachedCrawl(ctx context.Context, url string, pages model.PageMap, path model.CrawlPath, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := time.Now().UTC()
	raw, err := json.Marshal(model.CrawlCache{
		ID:        uuid.New().String(),
		URL:       url,
		Pages:     pages,
		Path:      path,
		CrawledAt: now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return eris.Wrap(err, "redis: marshal cached crawl")
	}
	return eris.Wrap(c.client.Set(ctx, c.key(url), raw, ttl).Err(), "redis: set cached crawl")
}

// DeleteExpiredCrawls is a no-op; Redis evicts expired keys itself.
func (c *RedisCache) DeleteExpiredCrawls(context.Context) (int, error) {
	return 0, nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
