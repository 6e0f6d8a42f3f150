package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
	"github.com/Clark-Hu/moviecatalog/internal/metrics"
	"github.com/Clark-Hu/moviecatalog/internal/repository"
)

const defaultNotifyTimeout = 10 * time.Second

// MovieStore is the movie persistence the catalog depends on.
type MovieStore interface {
	Create(ctx context.Context, movie domain.Movie) (domain.Movie, error)
	GetByID(ctx context.Context, id string) (domain.Movie, error)
	GetBySlug(ctx context.Context, slug string) (domain.Movie, error)
	Find(ctx context.Context, filter repository.MovieFilter) ([]domain.Movie, error)
	IncrementOpenCount(ctx context.Context, slug string) (domain.Movie, error)
	Update(ctx context.Context, id string, patch domain.MoviePatch, markSent bool) (domain.Movie, bool, error)
	Delete(ctx context.Context, id string) (domain.Movie, error)
}

// ActorStore resolves actor references.
type ActorStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Actor, error)
}

// GenreStore resolves genre references.
type GenreStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Genre, error)
}

// Notifier announces a movie the first time it is published.
type Notifier interface {
	MoviePublished(ctx context.Context, movie domain.Movie) error
}

// PopularCache stores the most-popular listing between requests.
type PopularCache interface {
	Get(ctx context.Context) ([]domain.Movie, bool, error)
	Set(ctx context.Context, movies []domain.Movie) error
	Invalidate(ctx context.Context) error
}

// Expand selects which references are resolved into full records.
type Expand struct {
	Actors bool
	Genres bool
}

var (
	expandAll    = Expand{Actors: true, Genres: true}
	expandGenres = Expand{Genres: true}
)

// Service implements the movie catalog queries and admin mutations.
type Service struct {
	movies        MovieStore
	actors        ActorStore
	genres        GenreStore
	notifier      Notifier
	popular       PopularCache
	logger        *zap.Logger
	metrics       *metrics.Metrics
	notifyTimeout time.Duration

	pending sync.WaitGroup
}

// Option customises a Service.
type Option func(*Service)

// WithNotifier sets the publish notifier. Without one, publishes are silent.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPopularCache caches the most-popular listing in c.
func WithPopularCache(c PopularCache) Option {
	return func(s *Service) { s.popular = c }
}

// WithMetrics records catalog activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifyTimeout bounds a single notification delivery.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// NewService constructs the catalog over the given stores.
func NewService(movies MovieStore, actors ActorStore, genres GenreStore, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		movies:        movies,
		actors:        actors,
		genres:        genres,
		logger:        logger,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll lists movies whose title contains searchTerm, newest first. An
// empty term lists everything.
func (s *Service) GetAll(ctx context.Context, searchTerm string) ([]domain.Movie, error) {
	return s.find(ctx, repository.ByTitle{Text: searchTerm}, expandAll)
}

// BySlug returns the movie with exactly slug.
func (s *Service) BySlug(ctx context.Context, movieSlug string) (domain.Movie, error) {
	movie, err := s.movies.GetBySlug(ctx, movieSlug)
	if err != nil {
		return domain.Movie{}, err
	}
	list := []domain.Movie{movie}
	if err := s.expand(ctx, list, expandAll); err != nil {
		return domain.Movie{}, err
	}
	return list[0], nil
}

// ByActor lists movies featuring actorID. References are not expanded.
func (s *Service) ByActor(ctx context.Context, actorID string) ([]domain.Movie, error) {
	return s.find(ctx, repository.ByActor{ID: actorID}, Expand{})
}

// ByGenres lists movies tagged with any of genreIDs.
func (s *Service) ByGenres(ctx context.Context, genreIDs []string) ([]domain.Movie, error) {
	return s.find(ctx, repository.ByGenres{IDs: genreIDs}, expandAll)
}

// MostPopular lists opened movies by open count, descending, with genres
// expanded. The listing may be served from cache for up to the cache TTL.
func (s *Service) MostPopular(ctx context.Context) ([]domain.Movie, error) {
	if s.popular != nil {
		cached, ok, err := s.popular.Get(ctx)
		switch {
		case err != nil:
			s.metrics.PopularCache(metrics.CacheError)
			s.logger.Warn("popular cache read failed", zap.Error(err))
		case ok:
			s.metrics.PopularCache(metrics.CacheHit)
			return cached, nil
		default:
			s.metrics.PopularCache(metrics.CacheMiss)
		}
	}

	movies, err := s.find(ctx, repository.MostPopular{}, expandGenres)
	if err != nil {
		return nil, err
	}
	if s.popular != nil {
		if err := s.popular.Set(ctx, movies); err != nil {
			s.logger.Warn("popular cache write failed", zap.Error(err))
		}
	}
	return movies, nil
}

// IncrementOpenCount records one view of the movie with slug.
func (s *Service) IncrementOpenCount(ctx context.Context, movieSlug string) (domain.Movie, error) {
	movie, err := s.movies.IncrementOpenCount(ctx, movieSlug)
	if err != nil {
		return domain.Movie{}, err
	}
	s.metrics.MovieOpened()
	return movie, nil
}

// Create inserts a blank draft and returns its id.
func (s *Service) Create(ctx context.Context) (string, error) {
	movie, err := s.movies.Create(ctx, domain.NewDraftMovie())
	if err != nil {
		return "", fmt.Errorf("create draft: %w", err)
	}
	s.logger.Info("movie draft created", zap.String("movie_id", movie.ID))
	return movie.ID, nil
}

// ByID returns the movie with id.
func (s *Service) ByID(ctx context.Context, id string) (domain.Movie, error) {
	return s.movies.GetByID(ctx, id)
}

// Update merges patch into the movie. With a notifier configured, the first
// update of a movie that has not been announced yet triggers the publish
// notification, unless the patch itself marks the movie as already announced.
// Without a notifier the flag is left unsent so the movie is announced once
// notifications are enabled. Delivery is asynchronous and failures are logged.
func (s *Service) Update(ctx context.Context, id string, patch domain.MoviePatch) (domain.Movie, error) {
	current, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return domain.Movie{}, err
	}
	deriveSlug(current, &patch)

	markSent := s.notifier != nil || patch.MarksSent()
	movie, claimed, err := s.movies.Update(ctx, id, patch, markSent)
	if err != nil {
		return domain.Movie{}, err
	}
	s.invalidatePopular(ctx)

	switch {
	case !claimed:
	case patch.MarksSent():
		s.metrics.Notification(metrics.NotifySkipped)
		s.logger.Debug("movie marked as announced by update", zap.String("movie_id", id))
	default:
		s.notify(movie)
	}
	return movie, nil
}

// Delete removes the movie and returns its final state. The movie's rating
// records are left in place.
func (s *Service) Delete(ctx context.Context, id string) (domain.Movie, error) {
	movie, err := s.movies.Delete(ctx, id)
	if err != nil {
		return domain.Movie{}, err
	}
	s.invalidatePopular(ctx)
	s.logger.Info("movie deleted", zap.String("movie_id", id))
	return movie, nil
}

// Wait blocks until in-flight notifications finish.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) find(ctx context.Context, filter repository.MovieFilter, e Expand) ([]domain.Movie, error) {
	movies, err := s.movies.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.expand(ctx, movies, e); err != nil {
		return nil, err
	}
	return movies, nil
}

// expand resolves the requested references of movies in place, keeping the
// order of each movie's id list. Dangling ids are dropped.
func (s *Service) expand(ctx context.Context, movies []domain.Movie, e Expand) error {
	if len(movies) == 0 {
		return nil
	}

	if e.Actors {
		actors, err := s.actors.ListByIDs(ctx, collectIDs(movies, func(m domain.Movie) []string { return m.ActorIDs }))
		if err != nil {
			return fmt.Errorf("expand actors: %w", err)
		}
		byID := make(map[string]domain.Actor, len(actors))
		for _, a := range actors {
			byID[a.ID] = a
		}
		for i := range movies {
			movies[i].Actors = make([]domain.Actor, 0, len(movies[i].ActorIDs))
			for _, id := range movies[i].ActorIDs {
				if a, ok := byID[id]; ok {
					movies[i].Actors = append(movies[i].Actors, a)
				}
			}
		}
	}

	if e.Genres {
		genres, err := s.genres.ListByIDs(ctx, collectIDs(movies, func(m domain.Movie) []string { return m.GenreIDs }))
		if err != nil {
			return fmt.Errorf("expand genres: %w", err)
		}
		byID := make(map[string]domain.Genre, len(genres))
		for _, g := range genres {
			byID[g.ID] = g
		}
		for i := range movies {
			movies[i].Genres = make([]domain.Genre, 0, len(movies[i].GenreIDs))
			for _, id := range movies[i].GenreIDs {
				if g, ok := byID[id]; ok {
					movies[i].Genres = append(movies[i].Genres, g)
				}
			}
		}
	}
	return nil
}

func collectIDs(movies []domain.Movie, ids func(domain.Movie) []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, m := range movies {
		for _, id := range ids(m) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// deriveSlug fills an empty slug from the title the movie will have after
// patch is applied.
func deriveSlug(current domain.Movie, patch *domain.MoviePatch) {
	next := current.Slug
	if patch.Slug != nil {
		next = *patch.Slug
	}
	if next != "" {
		return
	}
	title := current.Title
	if patch.Title != nil {
		title = *patch.Title
	}
	if derived := slug.Make(title); derived != "" {
		patch.Slug = &derived
	}
}

func (s *Service) notify(movie domain.Movie) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.MoviePublished(ctx, movie); err != nil {
			s.metrics.Notification(metrics.NotifyFailed)
			s.logger.Error("publish notification failed",
				zap.String("movie_id", movie.ID),
				zap.Error(err),
			)
			return
		}
		s.metrics.Notification(metrics.NotifySent)
		s.logger.Info("publish notification sent", zap.String("movie_id", movie.ID))
	}()
}

func (s *Service) invalidatePopular(ctx context.Context) {
	if s.popular == nil {
		return
	}
	if err := s.popular.Invalidate(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("popular cache invalidate failed", zap.Error(err))
	}
}
