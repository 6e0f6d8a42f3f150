package rating

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticValues map[string][]int

func (s staticValues) Values(_ context.Context, movieID string) ([]int, error) {
	return s[movieID], nil
}

type failingValues struct{}

func (failingValues) Values(context.Context, string) ([]int, error) {
	return nil, errors.New("db down")
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []int{4}, 4},
		{"pair", []int{4, 2}, 3},
		{"fraction", []int{5, 2}, 3.5},
		{"thirds", []int{1, 1, 2}, 4.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Mean(tt.values), 1e-9)
		})
	}
}

func TestAggregatorAverage(t *testing.T) {
	agg := NewAggregator(staticValues{"m1": {1, 2, 3, 4, 5}})

	avg, err := agg.Average(context.Background(), "m1")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, avg, 1e-9)

	avg, err = agg.Average(context.Background(), "unrated")
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
	assert.False(t, math.IsNaN(avg))
}

func TestAggregatorPropagatesStoreErrors(t *testing.T) {
	_, err := NewAggregator(failingValues{}).Average(context.Background(), "m1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func FuzzMean(f *testing.F) {
	f.Add(1, 5, 3)
	f.Fuzz(func(t *testing.T, a, b, c int) {
		values := []int{a%5 + 1, b%5 + 1, c%5 + 1}
		for i, v := range values {
			if v < 1 {
				values[i] = v + 5
			}
		}
		got := Mean(values)
		if got < 1 || got > 5 {
			t.Fatalf("mean %v of %v outside scale", got, values)
		}
		want := float64(values[0]+values[1]+values[2]) / 3
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("mean %v, want %v", got, want)
		}
	})
}
