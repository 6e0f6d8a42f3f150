package domain

import (
	"errors"
	"fmt"
	"time"
)

// Rating scale bounds, inclusive.
const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// ErrInvalidRatingValue is returned when a rating falls outside the scale.
var ErrInvalidRatingValue = errors.New("rating value out of range")

// Rating represents a single user's rating for a movie.
type Rating struct {
	MovieID   string
	UserID    string
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateRatingValue checks value against the rating scale.
func ValidateRatingValue(value int) error {
	if value < MinRatingValue || value > MaxRatingValue {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidRatingValue, value, MinRatingValue, MaxRatingValue)
	}
	return nil
}
