package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
)

const popularKey = "movies:most-popular"

// Connect dials Redis and returns nil when addr is empty or the server does
// not answer. Callers treat a nil client as "caching disabled".
func Connect(ctx context.Context, addr string, logger *zap.Logger) *redis.Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, continuing without cache", zap.String("addr", addr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	logger.Info("redis connected", zap.String("addr", addr))
	return rdb
}

// Popular caches the most-popular listing. A nil *Popular is valid and
// always misses.
type Popular struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPopular returns nil when rdb is nil or ttl is not positive.
func NewPopular(rdb *redis.Client, ttl time.Duration) *Popular {
	if rdb == nil || ttl <= 0 {
		return nil
	}
	return &Popular{rdb: rdb, ttl: ttl}
}

// Get returns the cached listing and whether it was present.
func (p *Popular) Get(ctx context.Context) ([]domain.Movie, bool, error) {
	if p == nil {
		return nil, false, nil
	}
	raw, err := p.rdb.Get(ctx, popularKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read popular cache: %w", err)
	}
	var movies []domain.Movie
	if err := json.Unmarshal(raw, &movies); err != nil {
		return nil, false, fmt.Errorf("decode popular cache: %w", err)
	}
	return movies, true, nil
}

// Set stores movies for the configured TTL.
func (p *Popular) Set(ctx context.Context, movies []domain.Movie) error {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(movies)
	if err != nil {
		return fmt.Errorf("encode popular cache: %w", err)
	}
	return p.rdb.Set(ctx, popularKey, raw, p.ttl).Err()
}

// Invalidate drops the cached listing.
func (p *Popular) Invalidate(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.rdb.Del(ctx, popularKey).Err()
}
