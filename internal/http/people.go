package httpserver

import (
	"net/http"
	"strings"

	"github.com/gosimple/slug"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
)

type actorCreateRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Slug  string `json:"slug" validate:"omitempty,max=255,slug"`
	Photo string `json:"photo" validate:"omitempty,max=2048"`
}

type genreCreateRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"omitempty,max=255,slug"`
	Description string `json:"description"`
	Icon        string `json:"icon" validate:"omitempty,max=255"`
}

func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	actors, err := s.actors.List(r.Context())
	if err != nil {
		s.respondServiceError(w, "list actors", err)
		return
	}
	items := make([]actorResponse, 0, len(actors))
	for _, a := range actors {
		items = append(items, toActorResponse(a))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetActor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, err := s.actors.GetByID(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, "get actor", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toActorResponse(actor))
}

func (s *Server) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	var req actorCreateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	actor, err := s.actors.Create(r.Context(), domain.Actor{
		Name:  name,
		Slug:  slugOrDerived(req.Slug, name),
		Photo: strings.TrimSpace(req.Photo),
	})
	if err != nil {
		s.respondServiceError(w, "create actor", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toActorResponse(actor))
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.genres.List(r.Context())
	if err != nil {
		s.respondServiceError(w, "list genres", err)
		return
	}
	items := make([]genreResponse, 0, len(genres))
	for _, g := range genres {
		items = append(items, toGenreResponse(g))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetGenre(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	genre, err := s.genres.GetByID(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, "get genre", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toGenreResponse(genre))
}

func (s *Server) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	var req genreCreateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	genre, err := s.genres.Create(r.Context(), domain.Genre{
		Name:        name,
		Slug:        slugOrDerived(req.Slug, name),
		Description: strings.TrimSpace(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
	})
	if err != nil {
		s.respondServiceError(w, "create genre", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toGenreResponse(genre))
}

func slugOrDerived(given, name string) string {
	if given = strings.TrimSpace(given); given != "" {
		return given
	}
	return slug.Make(name)
}

func toActorResponse(a domain.Actor) actorResponse {
	return actorResponse{ID: a.ID, Name: a.Name, Slug: a.Slug, Photo: a.Photo}
}

func toGenreResponse(g domain.Genre) genreResponse {
	return genreResponse{ID: g.ID, Name: g.Name, Slug: g.Slug, Description: g.Description, Icon: g.Icon}
}
