package domain

import (
	"fmt"
	"math"
)

const (
	// TagMelt and TagAcc name the yearly summary bands and their stacks.
	TagMelt = "snowmelt"
	TagAcc  = "snowacc"

	// DefaultNoEventSentinel marks a cell without any snow-free day in a year.
	DefaultNoEventSentinel = 366
)

// YearSummary holds the per-cell melt and accumulation days of one year.
type YearSummary struct {
	Year int
	Melt Raster
	Acc  Raster
	Days int
}

// ReduceYear collapses an encoded year into its earliest (melt) and latest
// (acc) qualifying day per cell. Cells with no qualifying day get sentinel
// in both rasters.
func ReduceYear(year int, events Series, sentinel float64) (YearSummary, error) {
	if len(events) == 0 {
		return YearSummary{}, fmt.Errorf("reduce %d: %w", year, ErrEmptyYear)
	}

	grid := events[0].Raster.Grid()
	lo := make([]float64, grid.Cells())
	hi := make([]float64, grid.Cells())
	for i := range lo {
		lo[i] = math.Inf(1)
		hi[i] = math.Inf(-1)
	}

	for _, f := range events {
		mustMatch("reduce year", grid, f.Raster.Grid())
		for i := range lo {
			v, ok := f.Raster.Cell(i)
			if !ok {
				continue
			}
			lo[i] = math.Min(lo[i], v)
			hi[i] = math.Max(hi[i], v)
		}
	}

	for i := range lo {
		if math.IsInf(lo[i], 1) {
			lo[i] = sentinel
			hi[i] = sentinel
		}
	}

	melt, err := NewRaster(grid, TagMelt, lo, nil)
	if err != nil {
		return YearSummary{}, err
	}
	acc, err := NewRaster(grid, TagAcc, hi, nil)
	if err != nil {
		return YearSummary{}, err
	}
	return YearSummary{Year: year, Melt: melt, Acc: acc, Days: len(events)}, nil
}
