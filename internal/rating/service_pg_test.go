package rating

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
	"github.com/Clark-Hu/moviecatalog/internal/repository"
	"github.com/Clark-Hu/moviecatalog/internal/testutil/pgtest"
)

func TestServiceAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewWithPool(pgtest.New(t))
	svc := NewService(repo.Movies, repo.Ratings, nil, WithMaxAttempts(50))

	movie, err := repo.Movies.Create(ctx, domain.NewDraftMovie())
	require.NoError(t, err)

	rate := func(user string, value int, want float64) {
		t.Helper()
		_, err := svc.SetRating(ctx, user, movie.ID, value)
		require.NoError(t, err)
		got, err := repo.Movies.GetByID(ctx, movie.ID)
		require.NoError(t, err)
		assert.InDelta(t, want, got.Rating, 1e-9)
	}

	rate("U", 4, 4)
	rate("V", 2, 3)
	rate("U", 5, 3.5)
	rate("U", 5, 3.5)

	n, err := repo.Ratings.Count(ctx, movie.ID, "U")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// many users racing on one movie still converge on the true mean
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SetRating(ctx, fmt.Sprintf("racer-%d", i), movie.ID, i%5+1)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	values, err := repo.Ratings.Values(ctx, movie.ID)
	require.NoError(t, err)
	got, err := repo.Movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	assert.InDelta(t, Mean(values), got.Rating, 1e-9)
}
