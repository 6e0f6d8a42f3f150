package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
	"github.com/Clark-Hu/moviecatalog/internal/testutil/pgtest"
)

type testEnv struct {
	ctx        context.Context
	repository *Repository
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	return &testEnv{
		ctx:        context.Background(),
		repository: NewWithPool(pgtest.New(t)),
	}
}

func mustCreateMovie(t testing.TB, env *testEnv, title, slug string) domain.Movie {
	t.Helper()
	movie := domain.NewDraftMovie()
	movie.Title = title
	movie.Slug = slug
	created, err := env.repository.Movies.Create(env.ctx, movie)
	require.NoError(t, err, "create movie %q", title)
	return created
}

func strPtr(s string) *string { return &s }

func TestMoviesRepository_CreateDraftAndGet(t *testing.T) {
	env := newTestEnv(t)

	draft, err := env.repository.Movies.Create(env.ctx, domain.NewDraftMovie())
	require.NoError(t, err)
	require.NotEmpty(t, draft.ID)
	assert.Empty(t, draft.Title)
	assert.Empty(t, draft.Slug)
	assert.Empty(t, draft.ActorIDs)
	assert.Zero(t, draft.Rating)
	assert.False(t, draft.IsSendTelegram)

	// several drafts may coexist with the empty slug
	_, err = env.repository.Movies.Create(env.ctx, domain.NewDraftMovie())
	require.NoError(t, err)

	got, err := env.repository.Movies.GetByID(env.ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	_, err = env.repository.Movies.GetByID(env.ctx, "non-existent")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.repository.Movies.GetBySlug(env.ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoviesRepository_SlugUnique(t *testing.T) {
	env := newTestEnv(t)

	mustCreateMovie(t, env, "Heat", "heat")
	other := mustCreateMovie(t, env, "Heat 2", "heat-2")

	_, _, err := env.repository.Movies.Update(env.ctx, other.ID, domain.MoviePatch{Slug: strPtr("heat")}, true)
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestMoviesRepository_FindByTitle(t *testing.T) {
	env := newTestEnv(t)

	older := mustCreateMovie(t, env, "Drama Queen", "drama-queen")
	mustCreateMovie(t, env, "Action Hero", "action-hero")
	newer := mustCreateMovie(t, env, "Silent DRAMA", "silent-drama")
	mustCreateMovie(t, env, "100% Pure", "pure")

	got, err := env.repository.Movies.Find(env.ctx, ByTitle{Text: "drama"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	all, err := env.repository.Movies.Find(env.ctx, ByTitle{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// wildcards in the term match literally
	pct, err := env.repository.Movies.Find(env.ctx, ByTitle{Text: "%"})
	require.NoError(t, err)
	require.Len(t, pct, 1)
	assert.Equal(t, "100% Pure", pct[0].Title)
}

func TestMoviesRepository_FindByReferences(t *testing.T) {
	env := newTestEnv(t)

	a := mustCreateMovie(t, env, "A", "a")
	b := mustCreateMovie(t, env, "B", "b")
	mustCreateMovie(t, env, "C", "c")

	_, _, err := env.repository.Movies.Update(env.ctx, a.ID, domain.MoviePatch{
		ActorIDs: []string{"actor-1", "actor-2"},
		GenreIDs: []string{"genre-1"},
	}, false)
	require.NoError(t, err)
	_, _, err = env.repository.Movies.Update(env.ctx, b.ID, domain.MoviePatch{
		ActorIDs: []string{"actor-2"},
		GenreIDs: []string{"genre-2"},
	}, false)
	require.NoError(t, err)

	byActor, err := env.repository.Movies.Find(env.ctx, ByActor{ID: "actor-1"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, a.ID, byActor[0].ID)

	byActor, err = env.repository.Movies.Find(env.ctx, ByActor{ID: "actor-2"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byGenres, err := env.repository.Movies.Find(env.ctx, ByGenres{IDs: []string{"genre-2", "genre-9"}})
	require.NoError(t, err)
	require.Len(t, byGenres, 1)
	assert.Equal(t, b.ID, byGenres[0].ID)

	none, err := env.repository.Movies.Find(env.ctx, ByGenres{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMoviesRepository_IncrementAndMostPopular(t *testing.T) {
	env := newTestEnv(t)

	mustCreateMovie(t, env, "Never Opened", "never")
	once := mustCreateMovie(t, env, "Once", "once")
	thrice := mustCreateMovie(t, env, "Thrice", "thrice")

	_, err := env.repository.Movies.IncrementOpenCount(env.ctx, once.Slug)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := env.repository.Movies.IncrementOpenCount(env.ctx, thrice.Slug)
		require.NoError(t, err)
	}

	popular, err := env.repository.Movies.Find(env.ctx, MostPopular{})
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, thrice.ID, popular[0].ID)
	assert.EqualValues(t, 3, popular[0].CountOpened)
	assert.Equal(t, once.ID, popular[1].ID)

	_, err = env.repository.Movies.IncrementOpenCount(env.ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoviesRepository_ConcurrentIncrements(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "Busy", "busy")

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.repository.Movies.IncrementOpenCount(env.ctx, movie.Slug); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := env.repository.Movies.GetBySlug(env.ctx, movie.Slug)
	require.NoError(t, err)
	assert.EqualValues(t, n, got.CountOpened)
}

func TestMoviesRepository_UpdateClaimsNotificationOnce(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "Draft", "")

	updated, claimed, err := env.repository.Movies.Update(env.ctx, movie.ID, domain.MoviePatch{Title: strPtr("Premiere")}, true)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.True(t, updated.IsSendTelegram)
	assert.Equal(t, "Premiere", updated.Title)
	assert.Empty(t, updated.Slug, "nil fields keep stored values")

	_, claimed, err = env.repository.Movies.Update(env.ctx, movie.ID, domain.MoviePatch{Poster: strPtr("/p.jpg")}, true)
	require.NoError(t, err)
	assert.False(t, claimed)

	_, _, err = env.repository.Movies.Update(env.ctx, "missing", domain.MoviePatch{}, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoviesRepository_UpdateWithoutMarkKeepsUnsent(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "Quiet", "quiet")

	updated, claimed, err := env.repository.Movies.Update(env.ctx, movie.ID, domain.MoviePatch{Title: strPtr("Quiet Premiere")}, false)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.False(t, updated.IsSendTelegram)

	// the transition is still available to a later marking update
	updated, claimed, err = env.repository.Movies.Update(env.ctx, movie.ID, domain.MoviePatch{}, true)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.True(t, updated.IsSendTelegram)

	// and a non-marking update never moves it back
	updated, _, err = env.repository.Movies.Update(env.ctx, movie.ID, domain.MoviePatch{}, false)
	require.NoError(t, err)
	assert.True(t, updated.IsSendTelegram)
}

func TestPeopleRepositories_EmptySlugsCoexist(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		_, err := env.repository.Actors.Create(env.ctx, domain.Actor{Name: "!!!", Slug: ""})
		require.NoError(t, err)
		_, err = env.repository.Genres.Create(env.ctx, domain.Genre{Name: "???", Slug: ""})
		require.NoError(t, err)
	}

	actors, err := env.repository.Actors.List(env.ctx)
	require.NoError(t, err)
	assert.Len(t, actors, 2)
}

func TestMoviesRepository_ConcurrentUpdatesClaimOnce(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "Race", "race")

	const workers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		claims int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, claimed, err := env.repository.Movies.Update(env.ctx, movie.ID, domain.MoviePatch{Country: strPtr(fmt.Sprint(i))}, true)
			if err != nil {
				t.Errorf("update: %v", err)
				return
			}
			if claimed {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, claims)
}

func TestMoviesRepository_SetRatingVersioned(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "Versioned", "versioned")

	updated, err := env.repository.Movies.SetRating(env.ctx, movie.ID, 4, movie.RatingVersion)
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.Rating)
	assert.Equal(t, movie.RatingVersion+1, updated.RatingVersion)

	_, err = env.repository.Movies.SetRating(env.ctx, movie.ID, 1, movie.RatingVersion)
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = env.repository.Movies.SetRating(env.ctx, "missing", 1, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoviesRepository_DeleteKeepsRatings(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "Doomed", "doomed")

	_, _, err := env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{MovieID: movie.ID, UserID: "u", Value: 3})
	require.NoError(t, err)

	deleted, err := env.repository.Movies.Delete(env.ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, movie.ID, deleted.ID)

	_, err = env.repository.Movies.Delete(env.ctx, movie.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	values, err := env.repository.Ratings.Values(env.ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, values)
}

func TestRatingsRepository_UpsertAndValues(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "Rating Movie", "rating-movie")

	params := RatingUpsertParams{MovieID: movie.ID, UserID: "user1", Value: 4}
	rating, inserted, err := env.repository.Ratings.Upsert(env.ctx, params)
	require.NoError(t, err)
	assert.True(t, inserted, "expected first upsert to insert")
	assert.Equal(t, 4, rating.Value)

	params.Value = 2
	_, inserted, err = env.repository.Ratings.Upsert(env.ctx, params)
	require.NoError(t, err)
	assert.False(t, inserted, "expected update, not insert")

	_, inserted, err = env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{MovieID: movie.ID, UserID: "user2", Value: 5})
	require.NoError(t, err)
	assert.True(t, inserted)

	values, err := env.repository.Ratings.Values(env.ctx, movie.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 5}, values)

	fetched, err := env.repository.Ratings.Get(env.ctx, movie.ID, "user1")
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.Value)

	_, err = env.repository.Ratings.Get(env.ctx, movie.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRatingsRepository_ValuesEmpty(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "No Ratings Movie", "no-ratings")

	values, err := env.repository.Ratings.Values(env.ctx, movie.ID)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRatingsRepository_ConcurrentSamePair(t *testing.T) {
	env := newTestEnv(t)
	movie := mustCreateMovie(t, env, "Concurrent Movie", "concurrent")

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			params := RatingUpsertParams{MovieID: movie.ID, UserID: "same-user", Value: v%5 + 1}
			if _, _, err := env.repository.Ratings.Upsert(env.ctx, params); err != nil {
				t.Errorf("upsert: %v", err)
			}
		}(i)
	}
	wg.Wait()

	n, err := env.repository.Ratings.Count(env.ctx, movie.ID, "same-user")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPeopleRepositories(t *testing.T) {
	env := newTestEnv(t)

	actor, err := env.repository.Actors.Create(env.ctx, domain.Actor{Name: "Al Pacino", Slug: "al-pacino"})
	require.NoError(t, err)
	_, err = env.repository.Actors.Create(env.ctx, domain.Actor{Name: "Al", Slug: "al-pacino"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	genre, err := env.repository.Genres.Create(env.ctx, domain.Genre{Name: "Crime", Slug: "crime"})
	require.NoError(t, err)

	actors, err := env.repository.Actors.ListByIDs(env.ctx, []string{actor.ID, "unknown"})
	require.NoError(t, err)
	require.Len(t, actors, 1)
	assert.Equal(t, "Al Pacino", actors[0].Name)

	genres, err := env.repository.Genres.ListByIDs(env.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, genres)

	got, err := env.repository.Genres.GetByID(env.ctx, genre.ID)
	require.NoError(t, err)
	assert.Equal(t, "crime", got.Slug)

	_, err = env.repository.Actors.GetByID(env.ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func BenchmarkRatingsRepositoryUpsert(b *testing.B) {
	env := newTestEnv(b)

	movie := mustCreateMovie(b, env, "Bench Movie", "bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := env.repository.Ratings.Upsert(env.ctx, RatingUpsertParams{
			MovieID: movie.ID,
			UserID:  fmt.Sprintf("bench-%d", i),
			Value:   4,
		})
		if err != nil {
			b.Fatalf("upsert: %v", err)
		}
	}
}
