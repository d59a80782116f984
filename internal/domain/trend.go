package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Band names of the trend image and the predictor band attached to each melt year.
const (
	BandSlope     = "slope"
	BandIntercept = "intercept"
	BandYear      = "year"
	BandValidity  = "validity"
)

// Trend is the per-cell least-squares fit of melt day against year.
type Trend struct {
	Image Image

	// Degenerate counts cells fitted from a single valid year (slope 0) or
	// whose fit came out NaN.
	Degenerate int
}

// WithYearBands pairs each melt raster with a constant band holding its year.
func WithYearBands(melt YearStack) []Image {
	images := make([]Image, 0, melt.Len())
	for _, e := range melt.entries {
		year := Constant(e.Raster.Grid(), BandYear, float64(e.Year))
		im, err := NewImage(e.Raster.Rename(TagMelt), year)
		if err != nil {
			panic(err)
		}
		images = append(images, im)
	}
	return images
}

// FitTrend regresses melt day (response) on year (predictor) per cell over
// the valid years. Cells with no valid year are masked. A single valid year
// yields slope 0 and that year's melt day as intercept.
func FitTrend(melt YearStack, grid Grid) Trend {
	images := WithYearBands(melt)
	responses := make([]Raster, len(images))
	predictors := make([]Raster, len(images))
	for i, im := range images {
		mustMatch("fit trend", grid, im.Grid())
		responses[i], _ = im.Select(TagMelt)
		predictors[i], _ = im.Select(BandYear)
	}

	slope := Masked(grid, BandSlope)
	intercept := Masked(grid, BandIntercept)
	degenerate := 0

	xs := make([]float64, 0, len(images))
	ys := make([]float64, 0, len(images))
	for i := 0; i < grid.Cells(); i++ {
		xs, ys = xs[:0], ys[:0]
		for j := range images {
			y, okY := responses[j].Cell(i)
			x, okX := predictors[j].Cell(i)
			if okX && okY {
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}

		var a, b float64
		switch len(xs) {
		case 0:
			continue
		case 1:
			a, b = ys[0], 0
			degenerate++
		default:
			a, b = stat.LinearRegression(xs, ys, nil, false)
			if math.IsNaN(a) || math.IsNaN(b) {
				degenerate++
			}
		}
		intercept.value[i], intercept.valid[i] = a, true
		slope.value[i], slope.valid[i] = b, true
	}

	im, err := NewImage(slope, intercept)
	if err != nil {
		panic(err)
	}
	return Trend{Image: im, Degenerate: degenerate}
}

// ValidityMask combines the season-length mask with a land/water raster
// (1 = land) by logical AND.
func ValidityMask(season, land Raster) Raster {
	return season.And(land.Equal(1)).Rename(BandValidity)
}

// ApplyValidity masks every trend band outside the validity mask.
func ApplyValidity(trend Image, validity Raster) Image {
	return trend.UpdateMask(validity)
}
