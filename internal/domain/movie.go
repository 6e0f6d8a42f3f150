package domain

import "time"

// Actor is a cast member referenced by movies.
type Actor struct {
	ID        string
	Name      string
	Slug      string
	Photo     string
	CreatedAt time.Time
}

// Genre is a category referenced by movies.
type Genre struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Icon        string
	CreatedAt   time.Time
}

// Movie represents the canonical movie document in the catalog.
//
// Rating is a cached mean of the movie's rating records; the records are the
// source of truth. RatingVersion is bumped on every write of Rating so that
// concurrent re-aggregations cannot overwrite a newer mean with a stale one.
type Movie struct {
	ID             string
	Title          string
	Slug           string
	Poster         string
	BigPoster      string
	VideoURL       string
	Description    string
	Year           int
	Duration       int
	Country        string
	ActorIDs       []string
	GenreIDs       []string
	CountOpened    int64
	Rating         float64
	RatingVersion  int64
	IsSendTelegram bool
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Populated only by the catalog expansion step.
	Actors []Actor
	Genres []Genre
}

// NewDraftMovie returns the empty-state movie inserted by the admin
// "create draft" operation. Every field is blank or zero and the reference
// sets are empty, never nil.
func NewDraftMovie() Movie {
	return Movie{
		Title:     "",
		Slug:      "",
		Poster:    "",
		BigPoster: "",
		VideoURL:  "",
		ActorIDs:  []string{},
		GenreIDs:  []string{},
	}
}

// MoviePatch carries the fields of an update. Nil fields keep the stored value.
type MoviePatch struct {
	Title          *string
	Slug           *string
	Poster         *string
	BigPoster      *string
	VideoURL       *string
	Description    *string
	Year           *int
	Duration       *int
	Country        *string
	ActorIDs       []string
	GenreIDs       []string
	IsSendTelegram *bool
}

// MarksSent reports whether the patch itself already carries the sent flag.
func (p MoviePatch) MarksSent() bool {
	return p.IsSendTelegram != nil && *p.IsSendTelegram
}
