package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"vidtube-auth/internal/config"
	apphttp "vidtube-auth/internal/http"
	"vidtube-auth/internal/password"
	"vidtube-auth/internal/repository"
	redisstore "vidtube-auth/internal/repository/redis"
	"vidtube-auth/internal/repository/sqlite"
	"vidtube-auth/internal/service"
	"vidtube-auth/internal/storage"
	"vidtube-auth/internal/token"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(ctx, db, logger); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}
	userRepo := sqlite.NewUserRepository(db)

	sessions, closeSessions, err := buildSessionStore(ctx, cfg, userRepo, logger)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	defer closeSessions()

	hasher, err := password.NewHasher(cfg.Auth.HashCost, cfg.Auth.HashWorkers)
	if err != nil {
		logger.Fatalf("setup password hasher: %v", err)
	}
	tokens, err := token.NewManager(token.Config{
		AccessSecret:  []byte(cfg.Auth.AccessTokenSecret),
		AccessTTL:     cfg.Auth.AccessTokenExpiry,
		RefreshSecret: []byte(cfg.Auth.RefreshTokenSecret),
		RefreshTTL:    cfg.Auth.RefreshTokenExpiry,
	})
	if err != nil {
		logger.Fatalf("setup token manager: %v", err)
	}

	blobs, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	authService := service.NewAuthService(service.AuthDeps{
		Users:        userRepo,
		Sessions:     sessions,
		Hasher:       hasher,
		Tokens:       tokens,
		Blobs:        blobs,
		StoreTimeout: cfg.Database.StoreTimeout,
		Logger:       logger,
	})
	userService := service.NewUserService(userRepo, blobs, cfg.Database.StoreTimeout)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(authService, userService, apphttp.Options{
		AccessTTL:    cfg.Auth.AccessTokenExpiry,
		RefreshTTL:   cfg.Auth.RefreshTokenExpiry,
		CookieSecure: cfg.Server.CookieSecure,
		Logger:       logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildSessionStore(ctx context.Context, cfg config.Config, users *sqlite.UserRepository, logger *logrus.Logger) (repository.SessionStore, func(), error) {
	if cfg.Session.Backend != config.SessionBackendRedis {
		logger.Info("storing refresh tokens on the user record")
		return users, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Infof("storing refresh tokens in redis at %s", cfg.Redis.Addr)
	return redisstore.NewSessionStore(client, "vidtube", cfg.Auth.RefreshTokenExpiry), func() { _ = client.Close() }, nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, storage.S3Options{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
	})
}
