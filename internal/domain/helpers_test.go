package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	cellGrid = Grid{Width: 1, Height: 1, CellSize: 500}
	quadGrid = Grid{Width: 2, Height: 2, CellSize: 500}
)

func rasterOf(t *testing.T, grid Grid, values []float64, valid []bool) Raster {
	t.Helper()
	r, err := NewRaster(grid, "test", values, valid)
	require.NoError(t, err)
	return r
}

func cell(t *testing.T, v float64, ok bool) Raster {
	t.Helper()
	return rasterOf(t, cellGrid, []float64{v}, []bool{ok})
}

func day(year, doy int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
}

// dailySeries builds a single-cell series of n days starting on January 1.
// fn returns the cover value and validity for a 1-based day.
func dailySeries(t *testing.T, year, n int, fn func(doy int) (float64, bool)) Series {
	t.Helper()
	frames := make([]Frame, n)
	for d := 1; d <= n; d++ {
		v, ok := fn(d)
		frames[d-1] = Frame{Time: day(year, d), Raster: cell(t, v, ok)}
	}
	return NewSeries(frames...)
}

func maskedDays(int) (float64, bool) { return 0, false }
