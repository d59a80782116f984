package domain

import (
	"context"
	"sort"
	"time"
)

// Catalog returns the daily rasters of one dataset band within [start, end),
// sorted ascending by acquisition time.
type Catalog interface {
	Query(ctx context.Context, dataset, band string, start, end time.Time) (Series, error)
}

// MaskSource supplies the land/water raster (1 = land) for a grid.
type MaskSource interface {
	LandMask(ctx context.Context, grid Grid) (Raster, error)
}

// Frame is one acquisition of a raster series.
type Frame struct {
	Time   time.Time
	Raster Raster
}

// Series is an ordered sequence of frames, ascending by time.
type Series []Frame

// NewSeries returns the frames sorted ascending by time. The input is not modified.
func NewSeries(frames ...Frame) Series {
	s := append(Series(nil), frames...)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
	return s
}

// Start returns the earliest acquisition time.
func (s Series) Start() (time.Time, bool) {
	if len(s) == 0 {
		return time.Time{}, false
	}
	return s[0].Time, true
}

// CheckGrid verifies every frame against want.
func (s Series) CheckGrid(op string, want Grid) error {
	for _, f := range s {
		if err := CheckGrid(op, want, f.Raster.Grid()); err != nil {
			return err
		}
	}
	return nil
}

// Pair is one matched acquisition of two series.
type Pair struct {
	Time time.Time
	A, B Raster
}

// JoinByTime inner-joins two series on exact acquisition time. Frames without
// a match on the other side are dropped and counted.
func JoinByTime(a, b Series) ([]Pair, int) {
	byTime := make(map[int64][]Raster, len(b))
	for _, f := range b {
		k := f.Time.UnixNano()
		byTime[k] = append(byTime[k], f.Raster)
	}

	matched := make(map[int64]bool, len(b))
	pairs := make([]Pair, 0, min(len(a), len(b)))
	dropped := 0
	for _, f := range a {
		k := f.Time.UnixNano()
		others, ok := byTime[k]
		if !ok {
			dropped++
			continue
		}
		matched[k] = true
		for _, o := range others {
			pairs = append(pairs, Pair{Time: f.Time, A: f.Raster, B: o})
		}
	}
	for k, rs := range byTime {
		if !matched[k] {
			dropped += len(rs)
		}
	}
	return pairs, dropped
}

// AllLand is a MaskSource that treats every cell as land.
type AllLand struct{}

func (AllLand) LandMask(_ context.Context, grid Grid) (Raster, error) {
	return Constant(grid, "land", 1), nil
}
