package repository

import (
	"strings"
)

// MovieFilter selects a set of movies. The implementations below are the only
// supported kinds; each maps to exactly one SQL shape.
type MovieFilter interface {
	movieQuery() movieQuery
}

type movieQuery struct {
	where   string
	args    []interface{}
	orderBy string
}

const newestFirst = "created_at DESC, id DESC"

// ByTitle matches titles containing Text, case-insensitively. An empty Text
// matches every movie.
type ByTitle struct {
	Text string
}

// ByActor matches movies whose cast contains ID.
type ByActor struct {
	ID string
}

// ByGenres matches movies sharing at least one genre with IDs.
type ByGenres struct {
	IDs []string
}

// MostPopular matches opened movies, most opened first.
type MostPopular struct{}

func (f ByTitle) movieQuery() movieQuery {
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return movieQuery{orderBy: newestFirst}
	}
	return movieQuery{
		where:   "title ILIKE $1",
		args:    []interface{}{"%" + escapeLike(text) + "%"},
		orderBy: newestFirst,
	}
}

func (f ByActor) movieQuery() movieQuery {
	return movieQuery{
		where:   "$1 = ANY(actor_ids)",
		args:    []interface{}{f.ID},
		orderBy: newestFirst,
	}
}

func (f ByGenres) movieQuery() movieQuery {
	ids := f.IDs
	if ids == nil {
		ids = []string{}
	}
	return movieQuery{
		where:   "genre_ids && $1::text[]",
		args:    []interface{}{ids},
		orderBy: newestFirst,
	}
}

func (MostPopular) movieQuery() movieQuery {
	return movieQuery{
		where:   "count_opened > 0",
		orderBy: "count_opened DESC, " + newestFirst,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralises LIKE wildcards so the search term matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
