package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/moviecatalog/internal/auth"
	"github.com/Clark-Hu/moviecatalog/internal/catalog"
	"github.com/Clark-Hu/moviecatalog/internal/config"
	"github.com/Clark-Hu/moviecatalog/internal/metrics"
	"github.com/Clark-Hu/moviecatalog/internal/rating"
	"github.com/Clark-Hu/moviecatalog/internal/repository"
	"github.com/Clark-Hu/moviecatalog/internal/testutil/pgtest"
)

func newPostgresServer(t testing.TB) (*testServer, *catalog.Service) {
	t.Helper()
	repo := repository.NewWithPool(pgtest.New(t))
	tokens, err := auth.NewTokenManager("jwt-secret")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	movies := catalog.NewService(repo.Movies, repo.Actors, repo.Genres, nil, catalog.WithMetrics(m))
	ratings := rating.NewService(repo.Movies, repo.Ratings, nil, rating.WithMetrics(m), rating.WithMaxAttempts(50))

	ts := &testServer{tokens: tokens}
	ts.srv = New(Deps{
		Config:   config.Config{AdminToken: adminToken},
		Catalog:  movies,
		Ratings:  ratings,
		Actors:   repo.Actors,
		Genres:   repo.Genres,
		Tokens:   tokens,
		Gatherer: reg,
	})
	return ts, movies
}

func TestEndToEndAgainstPostgres(t *testing.T) {
	ts, movies := newPostgresServer(t)
	defer movies.Wait()

	rec := ts.do(t, http.MethodPost, "/genres", `{"name":"Drama"}`, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	var genre genreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &genre))

	rec = ts.do(t, http.MethodPost, "/movies", "", adminToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created movieCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	body := fmt.Sprintf(`{"title":"Marriage Story","genreIds":[%q],"year":2019}`, genre.ID)
	rec = ts.do(t, http.MethodPut, "/movies/"+created.ID, body, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated movieResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "marriage-story", updated.Slug)
	assert.False(t, updated.IsSendTelegram, "nothing announces it without a notifier")

	rec = ts.do(t, http.MethodGet, "/movies/by-slug/marriage-story", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bySlug movieResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bySlug))
	require.Len(t, bySlug.Genres, 1)
	assert.Equal(t, "Drama", bySlug.Genres[0].Name)

	rate := func(user string, value int) {
		t.Helper()
		token, err := ts.tokens.Generate(user, time.Hour)
		require.NoError(t, err)
		rec := ts.do(t, http.MethodPost, "/ratings/set-rating", fmt.Sprintf(`{"movieId":%q,"value":%d}`, created.ID, value), token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rate("u1", 4)
	rate("u2", 2)
	rate("u1", 5)

	rec = ts.do(t, http.MethodGet, "/movies/"+created.ID, "", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var rated movieResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rated))
	assert.InDelta(t, 3.5, rated.Rating, 1e-9)

	rec = ts.do(t, http.MethodPost, "/ratings/set-rating", `{"movieId":"does-not-exist","value":3}`, ts.userToken(t, "u1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/movies/update-count-opened", `{"slug":"marriage-story"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/movies/most-popular", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var popular []movieResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &popular))
	require.Len(t, popular, 1)
	assert.EqualValues(t, 1, popular[0].CountOpened)

	rec = ts.do(t, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, rec.Body.String(), `movies_ratings_submitted_total{result="inserted"} 2`)
}
