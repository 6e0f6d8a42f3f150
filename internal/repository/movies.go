package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id,
    title,
    slug,
    poster,
    big_poster,
    video_url,
    description,
    year,
    duration,
    country,
    actor_ids,
    genre_ids,
    count_opened,
    rating,
    rating_version,
    is_send_telegram,
    created_at,
    updated_at
`

// Create inserts movie under a fresh identifier and returns the stored entity.
func (r *MoviesRepository) Create(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	if movie.ActorIDs == nil {
		movie.ActorIDs = []string{}
	}
	if movie.GenreIDs == nil {
		movie.GenreIDs = []string{}
	}

	query := fmt.Sprintf(`
        INSERT INTO movies (id, title, slug, poster, big_poster, video_url, description, year, duration, country, actor_ids, genre_ids)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query,
		uuid.NewString(), movie.Title, movie.Slug, movie.Poster, movie.BigPoster, movie.VideoURL,
		movie.Description, movie.Year, movie.Duration, movie.Country, movie.ActorIDs, movie.GenreIDs,
	)
	created, err := scanMovie(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Movie{}, ErrSlugTaken
		}
		return domain.Movie{}, err
	}
	return created, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	return r.getOne(ctx, query, id)
}

// GetBySlug fetches a movie by its exact slug.
func (r *MoviesRepository) GetBySlug(ctx context.Context, slug string) (domain.Movie, error) {
	if slug == "" {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE slug = $1`, movieColumns)
	return r.getOne(ctx, query, slug)
}

// Find returns the movies selected by filter in the filter's order.
func (r *MoviesRepository) Find(ctx context.Context, filter MovieFilter) ([]domain.Movie, error) {
	if filter == nil {
		filter = ByTitle{}
	}
	q := filter.movieQuery()

	query := fmt.Sprintf(`SELECT %s FROM movies`, movieColumns)
	if q.where != "" {
		query += " WHERE " + q.where
	}
	query += " ORDER BY " + q.orderBy

	rows, err := r.pool.Query(ctx, query, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// IncrementOpenCount atomically adds one to count_opened of the movie with slug.
func (r *MoviesRepository) IncrementOpenCount(ctx context.Context, slug string) (domain.Movie, error) {
	if slug == "" {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        UPDATE movies
        SET count_opened = count_opened + 1
        WHERE slug = $1
        RETURNING %s
    `, movieColumns)
	return r.getOne(ctx, query, slug)
}

// Update merges patch into the movie. When markSent is set the notification
// flag is moved to sent; otherwise it is left as stored.
//
// The previous flag is read under a row lock in the same statement, so of
// several concurrent marking updates exactly one observes the unsent state.
// The returned bool is true when this call performed the unsent -> sent
// transition.
func (r *MoviesRepository) Update(ctx context.Context, id string, patch domain.MoviePatch, markSent bool) (domain.Movie, bool, error) {
	const query = `
        WITH prev AS (
            SELECT id, is_send_telegram FROM movies WHERE id = $1 FOR UPDATE
        )
        UPDATE movies m
        SET title = COALESCE($2, m.title),
            slug = COALESCE($3, m.slug),
            poster = COALESCE($4, m.poster),
            big_poster = COALESCE($5, m.big_poster),
            video_url = COALESCE($6, m.video_url),
            description = COALESCE($7, m.description),
            year = COALESCE($8, m.year),
            duration = COALESCE($9, m.duration),
            country = COALESCE($10, m.country),
            actor_ids = COALESCE($11::text[], m.actor_ids),
            genre_ids = COALESCE($12::text[], m.genre_ids),
            is_send_telegram = m.is_send_telegram OR $13::boolean,
            updated_at = clock_timestamp()
        FROM prev
        WHERE m.id = prev.id
        RETURNING m.id, m.title, m.slug, m.poster, m.big_poster, m.video_url, m.description,
                  m.year, m.duration, m.country, m.actor_ids, m.genre_ids, m.count_opened,
                  m.rating, m.rating_version, m.is_send_telegram, m.created_at, m.updated_at,
                  prev.is_send_telegram
    `

	var (
		movie   domain.Movie
		wasSent bool
	)
	err := r.pool.QueryRow(ctx, query,
		id, patch.Title, patch.Slug, patch.Poster, patch.BigPoster, patch.VideoURL,
		patch.Description, patch.Year, patch.Duration, patch.Country, patch.ActorIDs, patch.GenreIDs, markSent,
	).Scan(append(movieScanTargets(&movie), &wasSent)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, false, ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Movie{}, false, ErrSlugTaken
		}
		return domain.Movie{}, false, err
	}
	return movie, markSent && !wasSent, nil
}

// SetRating stores the cached aggregate if the movie is still at
// expectedVersion. It returns ErrVersionConflict when another writer got
// there first and ErrNotFound when the movie is gone.
func (r *MoviesRepository) SetRating(ctx context.Context, id string, rating float64, expectedVersion int64) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies
        SET rating = $2,
            rating_version = rating_version + 1
        WHERE id = $1 AND rating_version = $3
        RETURNING %s
    `, movieColumns)

	movie, err := r.getOne(ctx, query, id, rating, expectedVersion)
	if err == nil {
		return movie, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.Movie{}, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return domain.Movie{}, err
	}
	return domain.Movie{}, ErrVersionConflict
}

// Delete removes the movie and returns its last state. Ratings are kept.
func (r *MoviesRepository) Delete(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`DELETE FROM movies WHERE id = $1 RETURNING %s`, movieColumns)
	return r.getOne(ctx, query, id)
}

func (r *MoviesRepository) getOne(ctx context.Context, query string, args ...interface{}) (domain.Movie, error) {
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

func movieScanTargets(movie *domain.Movie) []interface{} {
	return []interface{}{
		&movie.ID,
		&movie.Title,
		&movie.Slug,
		&movie.Poster,
		&movie.BigPoster,
		&movie.VideoURL,
		&movie.Description,
		&movie.Year,
		&movie.Duration,
		&movie.Country,
		&movie.ActorIDs,
		&movie.GenreIDs,
		&movie.CountOpened,
		&movie.Rating,
		&movie.RatingVersion,
		&movie.IsSendTelegram,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	}
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	if err := row.Scan(movieScanTargets(&movie)...); err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}
