package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	httpx "github.com/shopfront/catalog-api/internal/http"
	mongorepo "github.com/shopfront/catalog-api/internal/repository/mongo"
	"github.com/shopfront/catalog-api/internal/service/auth"
	"github.com/shopfront/catalog-api/internal/service/product"
	"github.com/shopfront/catalog-api/pkg/config"
	"github.com/shopfront/catalog-api/pkg/logger"
)

const storeConnectTimeout = 10 * time.Second

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("catalog-api", slog.LevelInfo)

	// Missing secrets are unrecoverable at request time; refuse to start.
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	if strings.TrimSpace(cfg.MongoURI) == "" {
		log.Error("MONGO_URI is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	cancel()
	if err != nil {
		log.Error("failed to connect to document store", "error", err)
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	pingCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	err = client.Ping(pingCtx, readpref.Primary())
	cancel()
	if err != nil {
		log.Error("document store ping failed", "error", err)
		os.Exit(1)
	}

	repo := mongorepo.New(client.Database(cfg.MongoDatabase))

	authSvc, err := auth.New(cfg, log)
	if err != nil {
		log.Error("failed to configure auth service", "error", err)
		os.Exit(1)
	}
	productSvc := product.New(repo, log, cfg.StoreTimeout)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	storeHealth := func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}

	router := httpx.NewRouter(log, authSvc, productSvc, limiter, cfg.AllowedOrigins, storeHealth)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
