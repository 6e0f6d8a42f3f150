package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Clark-Hu/moviecatalog/internal/auth"
	"github.com/Clark-Hu/moviecatalog/internal/config"
	"github.com/Clark-Hu/moviecatalog/internal/domain"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogService is the movie catalog used by the handlers.
type CatalogService interface {
	GetAll(ctx context.Context, searchTerm string) ([]domain.Movie, error)
	BySlug(ctx context.Context, slug string) (domain.Movie, error)
	ByActor(ctx context.Context, actorID string) ([]domain.Movie, error)
	ByGenres(ctx context.Context, genreIDs []string) ([]domain.Movie, error)
	MostPopular(ctx context.Context) ([]domain.Movie, error)
	IncrementOpenCount(ctx context.Context, slug string) (domain.Movie, error)
	Create(ctx context.Context) (string, error)
	ByID(ctx context.Context, id string) (domain.Movie, error)
	Update(ctx context.Context, id string, patch domain.MoviePatch) (domain.Movie, error)
	Delete(ctx context.Context, id string) (domain.Movie, error)
}

// RatingService records user ratings.
type RatingService interface {
	SetRating(ctx context.Context, userID, movieID string, value int) (domain.Rating, error)
	UserRating(ctx context.Context, userID, movieID string) (int, error)
}

// ActorStore manages actor records.
type ActorStore interface {
	Create(ctx context.Context, actor domain.Actor) (domain.Actor, error)
	GetByID(ctx context.Context, id string) (domain.Actor, error)
	List(ctx context.Context) ([]domain.Actor, error)
}

// GenreStore manages genre records.
type GenreStore interface {
	Create(ctx context.Context, genre domain.Genre) (domain.Genre, error)
	GetByID(ctx context.Context, id string) (domain.Genre, error)
	List(ctx context.Context) ([]domain.Genre, error)
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Config   config.Config
	Health   HealthChecker
	Catalog  CatalogService
	Ratings  RatingService
	Actors   ActorStore
	Genres   GenreStore
	Tokens   *auth.TokenManager
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg       config.Config
	health    HealthChecker
	catalog   CatalogService
	ratings   RatingService
	actors    ActorStore
	genres    GenreStore
	tokens    *auth.TokenManager
	gatherer  prometheus.Gatherer
	validator *validator.Validate
	logger    *zap.Logger
	router    chi.Router
	httpSrv   *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:       deps.Config,
		health:    deps.Health,
		catalog:   deps.Catalog,
		ratings:   deps.Ratings,
		actors:    deps.Actors,
		genres:    deps.Genres,
		tokens:    deps.Tokens,
		gatherer:  gatherer,
		validator: newValidator(),
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	s.router = r
	s.registerRoutes()
	return s
}

// Handler exposes the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/movies", func(r chi.Router) {
		r.Get("/", s.handleGetAll)
		r.Get("/by-slug/{slug}", s.handleBySlug)
		r.Get("/by-actor/{actorId}", s.handleByActor)
		r.Post("/by-genres", s.handleByGenres)
		r.Get("/most-popular", s.handleMostPopular)
		r.Put("/update-count-opened", s.handleUpdateCountOpened)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/", s.handleCreateMovie)
			r.Get("/{id}", s.handleGetMovie)
			r.Put("/{id}", s.handleUpdateMovie)
			r.Delete("/{id}", s.handleDeleteMovie)
		})
	})

	s.router.Route("/ratings", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Post("/set-rating", s.handleSetRating)
		r.Get("/{movieId}", s.handleGetUserRating)
	})

	s.router.Route("/actors", func(r chi.Router) {
		r.Get("/", s.handleListActors)
		r.Get("/{id}", s.handleGetActor)
		r.With(s.requireAdmin).Post("/", s.handleCreateActor)
	})

	s.router.Route("/genres", func(r chi.Router) {
		r.Get("/", s.handleListGenres)
		r.Get("/{id}", s.handleGetGenre)
		r.With(s.requireAdmin).Post("/", s.handleCreateGenre)
	})
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unavailable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request with its status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("bytes_out", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		switch {
		case route == "/metrics" || route == "/healthz":
			s.logger.Debug("http_request", fields...)
		case ww.Status() >= http.StatusInternalServerError:
			s.logger.Error("http_request", fields...)
		default:
			s.logger.Info("http_request", fields...)
		}
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok || !auth.AdminMatches(token, s.cfg.AdminToken) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok || s.tokens == nil {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		claims, err := s.tokens.Validate(token)
		if err != nil {
			s.logger.Debug("rejected user token", zap.Error(err))
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), claims.UserID)))
	})
}
