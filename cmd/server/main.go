package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"blog-service/internal/application/services"
	"blog-service/internal/config"
	"blog-service/internal/delivery/web"
	"blog-service/internal/infrastructure"
	"blog-service/internal/infrastructure/db/orm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := orm.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := orm.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Printf("Connected to %s database", cfg.DBDriver)

	redisService := infrastructure.NewRedisService(cfg)
	defer redisService.Close()

	jwtService := infrastructure.NewJWTService(cfg.JWTSecret, cfg.SessionLifetime)
	emailService := infrastructure.NewEmailService(cfg.EmailAPIKey, cfg.EmailSender)
	rateLimiter := infrastructure.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMaxRequests)
	defer rateLimiter.Stop()

	media := infrastructure.NewMediaStorage(cfg.MediaRoot)
	resizer := infrastructure.NewImageResizer(cfg.MaxImagePixels)
	avatarHook := &orm.ImageHook{
		Processor: resizer,
		Resolve:   media.Path,
		MaxWidth:  cfg.ProfileImageMaxWidth,
		MaxHeight: cfg.ProfileImageMaxHeight,
	}
	coverHook := &orm.ImageHook{
		Processor: resizer,
		Resolve:   media.Path,
		MaxWidth:  cfg.PostImageMaxWidth,
		MaxHeight: cfg.PostImageMaxHeight,
	}

	userRepo := orm.NewUserRepository(db, avatarHook)
	postRepo := orm.NewPostRepository(db, coverHook)
	categoryRepo := orm.NewCategoryRepository(db)

	userService := services.NewUserService(
		userRepo,
		userRepo,
		redisService,
		jwtService,
		emailService,
		rateLimiter,
		media,
		services.UserServiceConfig{BaseURL: cfg.BaseURL, SessionLifetime: cfg.SessionLifetime},
	)
	postService := services.NewPostService(
		postRepo,
		categoryRepo,
		orm.NewCommentRepository(db),
		orm.NewLikeRepository(db),
		orm.NewIdempotencyRepository(db),
		media,
		services.PostServiceConfig{FeaturedPosts: cfg.FeaturedPosts, PostsPerPage: cfg.PostsPerPage},
	)
	categoryService := services.NewCategoryService(categoryRepo)

	secureCookies := strings.HasPrefix(cfg.BaseURL, "https://")
	handler := web.NewHandler(userService, postService, categoryService, web.HandlerConfig{SecureCookies: secureCookies})
	server, err := web.NewServer(handler, web.ServerConfig{
		MediaRoot:         cfg.MediaRoot,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		RequestsPerSecond: cfg.RequestsPerSecond,
		SecureCookies:     secureCookies,
	})
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	go func() {
		log.Printf("Blog server running on %s", cfg.Addr)
		if err := server.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
