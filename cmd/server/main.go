package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Clark-Hu/moviecatalog/internal/auth"
	"github.com/Clark-Hu/moviecatalog/internal/cache"
	"github.com/Clark-Hu/moviecatalog/internal/catalog"
	"github.com/Clark-Hu/moviecatalog/internal/config"
	httpserver "github.com/Clark-Hu/moviecatalog/internal/http"
	"github.com/Clark-Hu/moviecatalog/internal/logging"
	"github.com/Clark-Hu/moviecatalog/internal/metrics"
	"github.com/Clark-Hu/moviecatalog/internal/rating"
	"github.com/Clark-Hu/moviecatalog/internal/repository"
	"github.com/Clark-Hu/moviecatalog/internal/store"
	"github.com/Clark-Hu/moviecatalog/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(logging.Config{Service: "movies-api", Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	metrics.RegisterPool(reg, st.Stats)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("init token manager", zap.Error(err))
	}

	repo := repository.New(st)

	catalogOpts := []catalog.Option{
		catalog.WithMetrics(m),
		catalog.WithNotifyTimeout(time.Duration(cfg.TelegramTimeout) * time.Second),
	}
	ratingOpts := []rating.Option{rating.WithMetrics(m)}
	if rdb := cache.Connect(ctx, cfg.RedisAddr, logger); rdb != nil {
		defer func() { _ = rdb.Close() }()
		if popular := cache.NewPopular(rdb, time.Duration(cfg.PopularCacheSecs)*time.Second); popular != nil {
			catalogOpts = append(catalogOpts, catalog.WithPopularCache(popular))
			ratingOpts = append(ratingOpts, rating.WithPopularCache(popular))
		}
	}
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewHTTPClient(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID,
			time.Duration(cfg.TelegramTimeout)*time.Second, logger)
		if err != nil {
			logger.Fatal("init telegram client", zap.Error(err))
		}
		catalogOpts = append(catalogOpts, catalog.WithNotifier(telegram.NewNotifier(bot, cfg.TelegramWatchURL)))
	} else {
		logger.Info("telegram notifications disabled")
	}

	movies := catalog.NewService(repo.Movies, repo.Actors, repo.Genres, logger, catalogOpts...)
	ratings := rating.NewService(repo.Movies, repo.Ratings, logger, ratingOpts...)

	server := httpserver.New(httpserver.Deps{
		Config:   cfg,
		Health:   st,
		Catalog:  movies,
		Ratings:  ratings,
		Actors:   repo.Actors,
		Genres:   repo.Genres,
		Tokens:   tokens,
		Gatherer: reg,
		Logger:   logger,
	})

	logger.Info("movies-api listening", zap.String("port", cfg.Port))

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
	movies.Wait()
	logger.Info("movies-api stopped")
}
