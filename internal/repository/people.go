package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
)

// ActorsRepository stores the actors movies refer to.
type ActorsRepository struct {
	pool *pgxpool.Pool
}

// GenresRepository stores the genres movies refer to.
type GenresRepository struct {
	pool *pgxpool.Pool
}

const (
	actorColumns = `id, name, slug, photo, created_at`
	genreColumns = `id, name, slug, description, icon, created_at`
)

// Create inserts an actor under a fresh identifier.
func (r *ActorsRepository) Create(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO actors (id, name, slug, photo) VALUES ($1,$2,$3,$4) RETURNING `+actorColumns,
		uuid.NewString(), actor.Name, actor.Slug, actor.Photo,
	)
	created, err := scanActor(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Actor{}, ErrSlugTaken
		}
		return domain.Actor{}, err
	}
	return created, nil
}

// GetByID fetches one actor.
func (r *ActorsRepository) GetByID(ctx context.Context, id string) (domain.Actor, error) {
	actor, err := scanActor(r.pool.QueryRow(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Actor{}, ErrNotFound
		}
		return domain.Actor{}, err
	}
	return actor, nil
}

// List returns all actors ordered by name.
func (r *ActorsRepository) List(ctx context.Context) ([]domain.Actor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+actorColumns+` FROM actors ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Actor, error) {
		return scanActor(row)
	})
}

// ListByIDs returns the actors whose id is in ids. Unknown ids are skipped.
func (r *ActorsRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Actor, error) {
	if len(ids) == 0 {
		return []domain.Actor{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = ANY($1::text[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Actor, error) {
		return scanActor(row)
	})
}

// Create inserts a genre under a fresh identifier.
func (r *GenresRepository) Create(ctx context.Context, genre domain.Genre) (domain.Genre, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO genres (id, name, slug, description, icon) VALUES ($1,$2,$3,$4,$5) RETURNING `+genreColumns,
		uuid.NewString(), genre.Name, genre.Slug, genre.Description, genre.Icon,
	)
	created, err := scanGenre(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Genre{}, ErrSlugTaken
		}
		return domain.Genre{}, err
	}
	return created, nil
}

// GetByID fetches one genre.
func (r *GenresRepository) GetByID(ctx context.Context, id string) (domain.Genre, error) {
	genre, err := scanGenre(r.pool.QueryRow(ctx, `SELECT `+genreColumns+` FROM genres WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Genre{}, ErrNotFound
		}
		return domain.Genre{}, err
	}
	return genre, nil
}

// List returns all genres ordered by name.
func (r *GenresRepository) List(ctx context.Context) ([]domain.Genre, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+genreColumns+` FROM genres ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Genre, error) {
		return scanGenre(row)
	})
}

// ListByIDs returns the genres whose id is in ids. Unknown ids are skipped.
func (r *GenresRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Genre, error) {
	if len(ids) == 0 {
		return []domain.Genre{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+genreColumns+` FROM genres WHERE id = ANY($1::text[])`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Genre, error) {
		return scanGenre(row)
	})
}

func scanActor(row pgx.Row) (domain.Actor, error) {
	var a domain.Actor
	err := row.Scan(&a.ID, &a.Name, &a.Slug, &a.Photo, &a.CreatedAt)
	return a, err
}

func scanGenre(row pgx.Row) (domain.Genre, error) {
	var g domain.Genre
	err := row.Scan(&g.ID, &g.Name, &g.Slug, &g.Description, &g.Icon, &g.CreatedAt)
	return g, err
}
