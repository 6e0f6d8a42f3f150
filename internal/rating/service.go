package rating

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
	"github.com/Clark-Hu/moviecatalog/internal/metrics"
	"github.com/Clark-Hu/moviecatalog/internal/repository"
)

const defaultMaxAttempts = 5

// MovieStore is the part of the movie catalog the rating protocol writes to.
type MovieStore interface {
	GetByID(ctx context.Context, id string) (domain.Movie, error)
	SetRating(ctx context.Context, id string, rating float64, expectedVersion int64) (domain.Movie, error)
}

// RecordStore persists rating records.
type RecordStore interface {
	ValueSource
	Upsert(ctx context.Context, params repository.RatingUpsertParams) (domain.Rating, bool, error)
	Get(ctx context.Context, movieID, userID string) (domain.Rating, error)
}

// Invalidator drops derived listings that order movies by rating.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service records user ratings and keeps each movie's cached mean in sync.
type Service struct {
	movies      MovieStore
	records     RecordStore
	aggregator  *Aggregator
	logger      *zap.Logger
	metrics     *metrics.Metrics
	popular     Invalidator
	maxAttempts int
}

// Option customises a Service.
type Option func(*Service)

// WithMetrics records rating outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPopularCache invalidates c whenever a movie's cached mean changes.
func WithPopularCache(c Invalidator) Option {
	return func(s *Service) { s.popular = c }
}

// WithMaxAttempts bounds the compare-and-set retries on the cached rating.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewService wires the upsert protocol over the given stores.
func NewService(movies MovieStore, records RecordStore, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		movies:      movies,
		records:     records,
		aggregator:  NewAggregator(records),
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRating creates or replaces userID's rating of movieID and refreshes the
// movie's cached mean.
//
// The record upsert is atomic on (movie, user). The aggregate write is a
// compare-and-set on the movie's rating version, which is read before the
// ratings are, so a mean computed from an older snapshot can never replace a
// newer one. If every attempt loses its race the record is still returned: a
// concurrent writer has stored a mean that is at least as recent.
func (s *Service) SetRating(ctx context.Context, userID, movieID string, value int) (domain.Rating, error) {
	if err := domain.ValidateRatingValue(value); err != nil {
		return domain.Rating{}, err
	}

	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("resolve movie %s: %w", movieID, err)
	}

	record, inserted, err := s.records.Upsert(ctx, repository.RatingUpsertParams{
		MovieID: movieID,
		UserID:  userID,
		Value:   value,
	})
	if err != nil {
		return domain.Rating{}, err
	}
	s.metrics.RatingSubmitted(inserted)

	version := movie.RatingVersion
	for attempt := 1; ; attempt++ {
		avg, err := s.aggregator.Average(ctx, movieID)
		if err != nil {
			return domain.Rating{}, err
		}

		_, err = s.movies.SetRating(ctx, movieID, avg, version)
		if err == nil {
			s.logger.Debug("rating aggregate updated",
				zap.String("movie_id", movieID),
				zap.Float64("rating", avg),
				zap.Int("attempt", attempt),
			)
			s.invalidatePopular(ctx, movieID)
			return record, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return domain.Rating{}, fmt.Errorf("store aggregate for %s: %w", movieID, err)
		}

		s.metrics.RatingConflict()
		if attempt >= s.maxAttempts {
			s.logger.Warn("rating aggregate left to concurrent writer",
				zap.String("movie_id", movieID),
				zap.Int("attempts", attempt),
			)
			return record, nil
		}

		current, err := s.movies.GetByID(ctx, movieID)
		if err != nil {
			return domain.Rating{}, fmt.Errorf("reload movie %s: %w", movieID, err)
		}
		version = current.RatingVersion
	}
}

func (s *Service) invalidatePopular(ctx context.Context, movieID string) {
	if s.popular == nil {
		return
	}
	if err := s.popular.Invalidate(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("popular cache invalidate failed",
			zap.String("movie_id", movieID),
			zap.Error(err),
		)
	}
}

// UserRating returns the value userID gave movieID, or 0 if there is none.
func (s *Service) UserRating(ctx context.Context, userID, movieID string) (int, error) {
	record, err := s.records.Get(ctx, movieID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Value, nil
}
