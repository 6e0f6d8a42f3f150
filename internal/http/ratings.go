package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/moviecatalog/internal/auth"
)

type setRatingRequest struct {
	MovieID string `json:"movieId" validate:"required,max=128"`
	Value   int    `json:"value"`
}

type ratingResponse struct {
	MovieID string `json:"movieId"`
	UserID  string `json:"userId"`
	Value   int    `json:"value"`
}

func (s *Server) handleSetRating(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req setRatingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	rating, err := s.ratings.SetRating(r.Context(), userID, req.MovieID, req.Value)
	if err != nil {
		s.respondServiceError(w, "set rating", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ratingResponse{
		MovieID: rating.MovieID,
		UserID:  rating.UserID,
		Value:   rating.Value,
	})
}

func (s *Server) handleGetUserRating(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	movieID, ok := s.pathID(w, r, "movieId")
	if !ok {
		return
	}

	value, err := s.ratings.UserRating(r.Context(), userID, movieID)
	if err != nil {
		s.respondServiceError(w, "get user rating", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ratingResponse{
		MovieID: movieID,
		UserID:  userID,
		Value:   value,
	})
}
