package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"blog-service/internal/config"
	"blog-service/internal/domain/entities"
)

// ErrCacheMiss is returned for absent keys and whenever Redis is disabled.
var ErrCacheMiss = errors.New("cache miss")

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) *RedisService {
	// Alternative: Use REDIS_URL if provided
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err == nil {
			client := redis.NewClient(opt)
			if err := client.Ping(context.Background()).Err(); err != nil {
				log.Printf("Warning: Redis connection failed with REDIS_URL: %v", err)
			} else {
				log.Printf("Connected to Redis using REDIS_URL")
				return &RedisService{client: client}
			}
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		log.Printf("Redis will be disabled. Profile caching and session revocation are off.")
		_ = client.Close()
		return &RedisService{client: nil}
	}

	log.Printf("Connected to Redis at %s:%s", cfg.RedisHost, cfg.RedisPort)
	return &RedisService{client: client}
}

// NewRedisServiceFromClient wraps an existing client. A nil client yields a
// disabled service.
func NewRedisServiceFromClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (r *RedisService) Enabled() bool {
	return r != nil && r.client != nil
}

func tokenKey(tokenID string) string { return "token:" + tokenID }

func profileKey(userID uint) string { return "profile:" + strconv.FormatUint(uint64(userID), 10) }

// SetToken registers an issued session token id for userID until ttl.
func (r *RedisService) SetToken(ctx context.Context, tokenID string, userID uint, ttl time.Duration) error {
	if !r.Enabled() {
		return nil // Redis disabled
	}
	return r.client.Set(ctx, tokenKey(tokenID), userID, ttl).Err()
}

// TokenActive reports whether a session token id is still registered. With
// Redis disabled every signed token is considered active.
func (r *RedisService) TokenActive(ctx context.Context, tokenID string) (bool, error) {
	if !r.Enabled() {
		return true, nil
	}
	err := r.client.Get(ctx, tokenKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisService) RevokeToken(ctx context.Context, tokenID string) error {
	return r.DeleteKey(ctx, tokenKey(tokenID))
}

func (r *RedisService) SetProfile(ctx context.Context, userID uint, profile *entities.UserProfile, ttl time.Duration) error {
	if !r.Enabled() {
		return nil // Redis disabled
	}
	cached := *profile
	if profile.User != nil {
		user := *profile.User
		user.Password = ""
		cached.User = &user
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, profileKey(userID), data, ttl).Err()
}

func (r *RedisService) GetProfile(ctx context.Context, userID uint) (*entities.UserProfile, error) {
	if !r.Enabled() {
		return nil, ErrCacheMiss
	}
	data, err := r.client.Get(ctx, profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var profile entities.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *RedisService) DeleteProfile(ctx context.Context, userID uint) error {
	return r.DeleteKey(ctx, profileKey(userID))
}

func (r *RedisService) DeleteKey(ctx context.Context, key string) error {
	if !r.Enabled() {
		return nil // Redis disabled
	}
	return r.client.Del(ctx, key).Err()
}

func (r *RedisService) Close() error {
	if !r.Enabled() {
		return nil // Redis disabled
	}
	return r.client.Close()
}
