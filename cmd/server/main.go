package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/anonboard/config"
	"github.com/d60-Lab/anonboard/internal/api"
	"github.com/d60-Lab/anonboard/internal/api/handler"
	"github.com/d60-Lab/anonboard/internal/cache"
	"github.com/d60-Lab/anonboard/internal/chain"
	"github.com/d60-Lab/anonboard/internal/repository"
	"github.com/d60-Lab/anonboard/internal/service"
	"github.com/d60-Lab/anonboard/pkg/database"
	"github.com/d60-Lab/anonboard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		return
	}

	var feed *cache.FeedCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		feed = cache.NewFeedCache(rdb, cfg.Redis.FeedCacheTTL)
	}

	token := chain.Token{
		Address:  common.HexToAddress(cfg.Tip.TokenAddress),
		Decimals: cfg.Tip.TokenDecimals,
	}

	postRepo := repository.NewPostRepository(db)
	postSvc := service.NewPostService(postRepo, token, feed, cfg.Feed.PageSize)
	h := handler.NewHandler(postSvc, token)
	router := api.NewRouter(h, cfg)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("anonboard server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
