package config

import (
	"errors"
	"time"
)

type Config struct {
	Addr    string
	BaseURL string

	DBDriver    string
	DatabaseURL string

	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	SessionLifetime time.Duration

	EmailAPIKey string
	EmailSender string

	MediaRoot      string
	MaxUploadBytes int64
	MaxImagePixels int64

	FeaturedPosts int
	PostsPerPage  int

	PostImageMaxWidth     int
	PostImageMaxHeight    int
	ProfileImageMaxWidth  int
	ProfileImageMaxHeight int

	RateLimitWindow      time.Duration
	RateLimitMaxRequests int
	RequestsPerSecond    int
}

func Load() *Config {
	return &Config{
		Addr:    GetEnvAsString("ADDR", ":8080"),
		BaseURL: GetEnvAsString("BASE_URL", "http://localhost:8080"),

		DBDriver:    GetEnvAsString("DB_DRIVER", "sqlite"),
		DatabaseURL: GetEnvAsString("DATABASE_URL", "blog.db"),

		RedisURL:      GetEnvAsString("REDIS_URL", ""),
		RedisHost:     GetEnvAsString("REDIS_HOST", "localhost"),
		RedisPort:     GetEnvAsString("REDIS_PORT", "6379"),
		RedisPassword: GetEnvAsString("REDIS_PASSWORD", ""),
		RedisDB:       GetEnvAsInt("REDIS_DB", 0),

		JWTSecret:       GetEnvAsString("JWT_SECRET", ""),
		SessionLifetime: GetEnvAsDuration("SESSION_LIFETIME", 24*time.Hour),

		EmailAPIKey: GetEnvAsString("EMAIL_API_KEY", ""),
		EmailSender: GetEnvAsString("EMAIL_SENDER", "no-reply@localhost"),

		MediaRoot:      GetEnvAsString("MEDIA_ROOT", "media"),
		MaxUploadBytes: GetEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20),
		MaxImagePixels: GetEnvAsInt64("MAX_IMAGE_PIXELS", 40_000_000),

		FeaturedPosts: GetEnvAsInt("FEATURED_POSTS", 3),
		PostsPerPage:  GetEnvAsInt("POSTS_PER_PAGE", 3),

		PostImageMaxWidth:     GetEnvAsInt("POST_IMAGE_MAX_WIDTH", 800),
		PostImageMaxHeight:    GetEnvAsInt("POST_IMAGE_MAX_HEIGHT", 600),
		ProfileImageMaxWidth:  GetEnvAsInt("PROFILE_IMAGE_MAX_WIDTH", 300),
		ProfileImageMaxHeight: GetEnvAsInt("PROFILE_IMAGE_MAX_HEIGHT", 300),

		RateLimitWindow:      GetEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMaxRequests: GetEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 10),
		RequestsPerSecond:    GetEnvAsInt("REQUESTS_PER_SECOND", 20),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.PostsPerPage <= 0 || c.FeaturedPosts <= 0 {
		return errors.New("POSTS_PER_PAGE and FEATURED_POSTS must be positive")
	}
	return nil
}
