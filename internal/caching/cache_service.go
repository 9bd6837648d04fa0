package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"checkbox/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService interface {
	// Refresh token store. Tokens are addressed by their jti claim; presence
	// in the store is what makes a refresh token usable.
	SetRefreshToken(ctx context.Context, jti string, userID int64, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, jti string) (int64, bool, error)
	DeleteRefreshToken(ctx context.Context, jti string) error

	// Public receipt render caching
	GetRenderedCheck(ctx context.Context, publicUUID string) (string, error)
	SetRenderedCheck(ctx context.Context, publicUUID, html string, ttl time.Duration) error
	DeleteRenderedCheck(ctx context.Context, publicUUID string) error

	// Stats caching
	GetUserStats(ctx context.Context, userID int64) (*models.CheckStats, error)
	SetUserStats(ctx context.Context, userID int64, stats *models.CheckStats, ttl time.Duration) error
	SetGlobalStats(ctx context.Context, stats *models.CheckStats, ttl time.Duration) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis:// and rediss:// style addresses as well as plain host:port
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func (r *redisCacheService) SetRefreshToken(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	key := fmt.Sprintf("checkbox:refresh_token:%s", jti)
	return r.client.Set(ctx, key, strconv.FormatInt(userID, 10), ttl).Err()
}

func (r *redisCacheService) GetRefreshToken(ctx context.Context, jti string) (int64, bool, error) {
	key := fmt.Sprintf("checkbox:refresh_token:%s", jti)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, err
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func (r *redisCacheService) DeleteRefreshToken(ctx context.Context, jti string) error {
	key := fmt.Sprintf("checkbox:refresh_token:%s", jti)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetRenderedCheck(ctx context.Context, publicUUID string) (string, error) {
	key := fmt.Sprintf("checkbox:receipt_html:%s", publicUUID)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) SetRenderedCheck(ctx context.Context, publicUUID, html string, ttl time.Duration) error {
	key := fmt.Sprintf("checkbox:receipt_html:%s", publicUUID)
	return r.client.Set(ctx, key, html, ttl).Err()
}

func (r *redisCacheService) DeleteRenderedCheck(ctx context.Context, publicUUID string) error {
	key := fmt.Sprintf("checkbox:receipt_html:%s", publicUUID)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetUserStats(ctx context.Context, userID int64) (*models.CheckStats, error) {
	key := fmt.Sprintf("checkbox:stats:user:%d", userID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var stats models.CheckStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *redisCacheService) SetUserStats(ctx context.Context, userID int64, stats *models.CheckStats, ttl time.Duration) error {
	key := fmt.Sprintf("checkbox:stats:user:%d", userID)
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) SetGlobalStats(ctx context.Context, stats *models.CheckStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, "checkbox:stats:global", data, ttl).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("checkbox:ratelimit:%s", key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request. If that fails the counter would never
	// reset, so drop the key rather than throttle the client forever.
	if count == 1 {
		if err := r.client.Expire(ctx, cacheKey, window).Err(); err != nil {
			log.Printf("Failed to set rate limit expiry for %s: %v", cacheKey, err)
			if delErr := r.client.Del(ctx, cacheKey).Err(); delErr != nil {
				log.Printf("Failed to drop rate limit key %s: %v", cacheKey, delErr)
			}
		}
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
