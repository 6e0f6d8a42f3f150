package rating

import (
	"context"
	"fmt"
)

// ValueSource lists the rating values recorded for a movie.
type ValueSource interface {
	Values(ctx context.Context, movieID string) ([]int, error)
}

// Aggregator computes a movie's mean rating from its rating records.
type Aggregator struct {
	source ValueSource
}

// NewAggregator builds an Aggregator over source.
func NewAggregator(source ValueSource) *Aggregator {
	return &Aggregator{source: source}
}

// Average returns the arithmetic mean of the movie's ratings, or 0 when the
// movie has none.
func (a *Aggregator) Average(ctx context.Context, movieID string) (float64, error) {
	values, err := a.source.Values(ctx, movieID)
	if err != nil {
		return 0, fmt.Errorf("load ratings for %s: %w", movieID, err)
	}
	return Mean(values), nil
}

// Mean is sum(values)/len(values), with an empty input treated as 0 rather
// than NaN.
func Mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += int64(v)
	}
	return float64(sum) / float64(len(values))
}
