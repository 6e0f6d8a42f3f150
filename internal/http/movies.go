package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
)

type actorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Photo string `json:"photo"`
}

type genreResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type movieResponse struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Slug           string          `json:"slug"`
	Poster         string          `json:"poster"`
	BigPoster      string          `json:"bigPoster"`
	VideoURL       string          `json:"videoUrl"`
	Description    string          `json:"description"`
	Year           int             `json:"year"`
	Duration       int             `json:"duration"`
	Country        string          `json:"country"`
	ActorIDs       []string        `json:"actorIds"`
	GenreIDs       []string        `json:"genreIds"`
	Actors         []actorResponse `json:"actors,omitempty"`
	Genres         []genreResponse `json:"genres,omitempty"`
	CountOpened    int64           `json:"countOpened"`
	Rating         float64         `json:"rating"`
	IsSendTelegram bool            `json:"isSendTelegram"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type movieCreatedResponse struct {
	ID string `json:"id"`
}

type byGenresRequest struct {
	GenreIDs []string `json:"genreIds" validate:"dive,required,max=128"`
}

type updateCountOpenedRequest struct {
	Slug string `json:"slug" validate:"required,max=255,slug"`
}

type movieUpdateRequest struct {
	Title          *string  `json:"title" validate:"omitempty,max=255"`
	Slug           *string  `json:"slug" validate:"omitempty,max=255,slug"`
	Poster         *string  `json:"poster" validate:"omitempty,max=2048"`
	BigPoster      *string  `json:"bigPoster" validate:"omitempty,max=2048"`
	VideoURL       *string  `json:"videoUrl" validate:"omitempty,max=2048"`
	Description    *string  `json:"description"`
	Year           *int     `json:"year" validate:"omitempty,gte=1888,lte=2200"`
	Duration       *int     `json:"duration" validate:"omitempty,gte=0"`
	Country        *string  `json:"country" validate:"omitempty,max=128"`
	ActorIDs       []string `json:"actorIds" validate:"omitempty,dive,required,max=128"`
	GenreIDs       []string `json:"genreIds" validate:"omitempty,dive,required,max=128"`
	IsSendTelegram *bool    `json:"isSendTelegram"`
}

func (req movieUpdateRequest) toPatch() domain.MoviePatch {
	return domain.MoviePatch{
		Title:          trimPtr(req.Title),
		Slug:           trimPtr(req.Slug),
		Poster:         trimPtr(req.Poster),
		BigPoster:      trimPtr(req.BigPoster),
		VideoURL:       trimPtr(req.VideoURL),
		Description:    req.Description,
		Year:           req.Year,
		Duration:       req.Duration,
		Country:        trimPtr(req.Country),
		ActorIDs:       req.ActorIDs,
		GenreIDs:       req.GenreIDs,
		IsSendTelegram: req.IsSendTelegram,
	}
}

func (s *Server) handleGetAll(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("searchTerm"))
	if len(term) > 255 {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "searchTerm is too long")
		return
	}
	movies, err := s.catalog.GetAll(r.Context(), term)
	if err != nil {
		s.respondServiceError(w, "list movies", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(movies))
}

func (s *Server) handleBySlug(w http.ResponseWriter, r *http.Request) {
	slug, ok := s.pathSlug(w, r, "slug")
	if !ok {
		return
	}
	movie, err := s.catalog.BySlug(r.Context(), slug)
	if err != nil {
		s.respondServiceError(w, "get movie by slug", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleByActor(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.pathID(w, r, "actorId")
	if !ok {
		return
	}
	movies, err := s.catalog.ByActor(r.Context(), actorID)
	if err != nil {
		s.respondServiceError(w, "list movies by actor", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(movies))
}

func (s *Server) handleByGenres(w http.ResponseWriter, r *http.Request) {
	var req byGenresRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	movies, err := s.catalog.ByGenres(r.Context(), req.GenreIDs)
	if err != nil {
		s.respondServiceError(w, "list movies by genres", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(movies))
}

func (s *Server) handleMostPopular(w http.ResponseWriter, r *http.Request) {
	movies, err := s.catalog.MostPopular(r.Context())
	if err != nil {
		s.respondServiceError(w, "list most popular", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(movies))
}

func (s *Server) handleUpdateCountOpened(w http.ResponseWriter, r *http.Request) {
	var req updateCountOpenedRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	movie, err := s.catalog.IncrementOpenCount(r.Context(), strings.TrimSpace(req.Slug))
	if err != nil {
		s.respondServiceError(w, "increment open count", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := s.catalog.Create(r.Context())
	if err != nil {
		s.respondServiceError(w, "create movie", err)
		return
	}
	w.Header().Set("Location", "/movies/"+id)
	s.respondJSON(w, http.StatusCreated, movieCreatedResponse{ID: id})
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	movie, err := s.catalog.ByID(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, "get movie", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req movieUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	movie, err := s.catalog.Update(r.Context(), id, req.toPatch())
	if err != nil {
		s.respondServiceError(w, "update movie", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	movie, err := s.catalog.Delete(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, "delete movie", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func toMovieResponses(movies []domain.Movie) []movieResponse {
	items := make([]movieResponse, 0, len(movies))
	for _, m := range movies {
		items = append(items, toMovieResponse(m))
	}
	return items
}

func toMovieResponse(movie domain.Movie) movieResponse {
	resp := movieResponse{
		ID:             movie.ID,
		Title:          movie.Title,
		Slug:           movie.Slug,
		Poster:         movie.Poster,
		BigPoster:      movie.BigPoster,
		VideoURL:       movie.VideoURL,
		Description:    movie.Description,
		Year:           movie.Year,
		Duration:       movie.Duration,
		Country:        movie.Country,
		ActorIDs:       nonNil(movie.ActorIDs),
		GenreIDs:       nonNil(movie.GenreIDs),
		CountOpened:    movie.CountOpened,
		Rating:         movie.Rating,
		IsSendTelegram: movie.IsSendTelegram,
		CreatedAt:      movie.CreatedAt,
		UpdatedAt:      movie.UpdatedAt,
	}
	if movie.Actors != nil {
		resp.Actors = make([]actorResponse, 0, len(movie.Actors))
		for _, a := range movie.Actors {
			resp.Actors = append(resp.Actors, toActorResponse(a))
		}
	}
	if movie.Genres != nil {
		resp.Genres = make([]genreResponse, 0, len(movie.Genres))
		for _, g := range movie.Genres {
			resp.Genres = append(resp.Genres, toGenreResponse(g))
		}
	}
	return resp
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func trimPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	return &val
}
