package domain

import (
	"sort"
)

const (
	// TagSnowFree names the per-year season length stack.
	TagSnowFree = "snowfree"

	// BandMedian and BandSeasonMask name the multi-year season outputs.
	BandMedian     = "snowfree_median"
	BandSeasonMask = "snowfree_mask"

	// DefaultSeasonLengthCeiling is the longest plausible snow-free season in days.
	DefaultSeasonLengthCeiling = 306
)

// YearPair is one year present in both stacks of a join.
type YearPair struct {
	Year int
	A, B Raster
}

// JoinByYear inner-joins two stacks on their year tag. Years present on only
// one side are dropped and counted.
func JoinByYear(a, b YearStack) ([]YearPair, int) {
	byYear := make(map[int]Raster, b.Len())
	for _, e := range b.entries {
		byYear[e.Year] = e.Raster
	}

	pairs := make([]YearPair, 0, min(a.Len(), b.Len()))
	for _, e := range a.entries {
		other, ok := byYear[e.Year]
		if !ok {
			continue
		}
		pairs = append(pairs, YearPair{Year: e.Year, A: e.Raster, B: other})
	}
	dropped := a.Len() + b.Len() - 2*len(pairs)
	return pairs, dropped
}

// SeasonLength computes acc - melt per cell for every year present in both
// stacks. Negative and sentinel-derived lengths are kept as they are.
func SeasonLength(melt, acc YearStack) (YearStack, int) {
	pairs, dropped := JoinByYear(melt, acc)
	out := YearStack{tag: TagSnowFree, entries: make([]YearRaster, len(pairs))}
	for i, p := range pairs {
		out.entries[i] = YearRaster{Year: p.Year, Raster: p.B.Subtract(p.A).Rename(TagSnowFree)}
	}
	return out, dropped
}

// Median returns the per-cell median of the valid values across the stack.
// Even counts average the two middle values; cells with no valid value are masked.
func Median(stack YearStack, grid Grid) Raster {
	for _, e := range stack.entries {
		mustMatch("median", grid, e.Raster.Grid())
	}

	out := Masked(grid, BandMedian)
	samples := make([]float64, 0, stack.Len())
	for i := range out.value {
		samples = samples[:0]
		for _, e := range stack.entries {
			if v, ok := e.Raster.Cell(i); ok {
				samples = append(samples, v)
			}
		}
		if len(samples) == 0 {
			continue
		}
		sort.Float64s(samples)
		mid := len(samples) / 2
		if len(samples)%2 == 1 {
			out.value[i] = samples[mid]
		} else {
			out.value[i] = (samples[mid-1] + samples[mid]) / 2
		}
		out.valid[i] = true
	}
	return out
}

// SeasonMask flags cells whose median season length is below ceiling.
func SeasonMask(median Raster, ceiling float64) Raster {
	return median.LessThan(ceiling).Rename(BandSeasonMask)
}
