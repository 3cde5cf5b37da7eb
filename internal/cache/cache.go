package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dharmasatrya/flightsession/internal/models"
)

type Cache interface {
	Get(ctx context.Context, req models.SearchRequest) (*models.SearchResult, bool)
	Set(ctx context.Context, req models.SearchRequest, result *models.SearchResult) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		TTL:  5 * time.Minute,
	}
}

func NewRedisCache(cfg RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRedisCache(client, cfg.TTL, logger), nil
}

func newRedisCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRedisConfig().TTL
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, req models.SearchRequest) (*models.SearchResult, bool) {
	key := generateKey(req)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		}
		return nil, false
	}

	var result models.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cached search result unreadable")
		return nil, false
	}

	return &result, true
}

func (c *RedisCache) Set(ctx context.Context, req models.SearchRequest, result *models.SearchResult) error {
	if result == nil {
		return nil
	}
	key := generateKey(req)

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(context.Context, models.SearchRequest) (*models.SearchResult, bool) {
	return nil, false
}

func (c *NoOpCache) Set(context.Context, models.SearchRequest, *models.SearchResult) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

func generateKey(req models.SearchRequest) string {
	keyData := struct {
		Origin        string
		Destination   string
		DepartureDate string
		ReturnDate    string
		Adults        string
	}{
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		Adults:        req.Passengers["ADT"],
	}

	if req.ReturnDate != nil {
		keyData.ReturnDate = *req.ReturnDate
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return "flights:" + hex.EncodeToString(hash[:])
}
