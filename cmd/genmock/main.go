// Command genmock synthesizes a two-sensor daily snow cover catalog with a
// known melt trend, observation gaps, and an optional missing year. The
// output feeds the pipeline and the validate command without real imagery.
//
// Usage:
//
//	go run ./cmd/genmock -driver sqlite -dsn snowpheno.db -start 2001 -end 2010
//	go run ./cmd/genmock -driver tiff -dir data/rasters -landmask data/land.tif
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/snow-phenology/internal/adapter/geotiff"
	"github.com/couchcryptid/snow-phenology/internal/adapter/sqlite"
	"github.com/couchcryptid/snow-phenology/internal/config"
	"github.com/couchcryptid/snow-phenology/internal/domain"
)

// model describes the synthetic snow season of one cell.
type model struct {
	meltBase  float64 // melt day in the first year
	meltTrend float64 // days per year
	accDay    float64
	water     bool
}

type options struct {
	driver    string
	dsn       string
	dir       string
	landmask  string
	datasetA  string
	datasetB  string
	band      string
	start     int
	end       int
	width     int
	height    int
	gap       float64
	trend     float64
	skipYear  int
	waterCols int
	seed      uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.driver, "driver", config.DriverSQLite, "output catalog: sqlite or tiff")
	flag.StringVar(&o.dsn, "dsn", "snowpheno.db", "sqlite database path")
	flag.StringVar(&o.dir, "dir", "data/rasters", "tiff catalog root")
	flag.StringVar(&o.landmask, "landmask", "", "optional land mask TIFF to write")
	flag.StringVar(&o.datasetA, "dataset-a", "MODIS/006/MOD10A1", "sensor A dataset")
	flag.StringVar(&o.datasetB, "dataset-b", "MODIS/006/MYD10A1", "sensor B dataset")
	flag.StringVar(&o.band, "band", "NDSI_Snow_Cover", "cover band")
	flag.IntVar(&o.start, "start", 2001, "first year")
	flag.IntVar(&o.end, "end", 2005, "last year")
	flag.IntVar(&o.width, "width", 8, "grid width in cells")
	flag.IntVar(&o.height, "height", 8, "grid height in cells")
	flag.Float64Var(&o.gap, "gap", 0.3, "probability a sensor misses a cell on a day")
	flag.Float64Var(&o.trend, "trend", -0.5, "melt day trend in days per year")
	flag.IntVar(&o.skipYear, "skip-year", 0, "year to leave out of the catalog (0 = none)")
	flag.IntVar(&o.waterCols, "water-cols", 1, "rightmost columns marked as water in the land mask")
	flag.Uint64Var(&o.seed, "seed", 42, "random seed")
	flag.Parse()

	if o.start > o.end {
		flag.Usage()
		return fmt.Errorf("-start %d is after -end %d", o.start, o.end)
	}
	if o.gap < 0 || o.gap >= 1 {
		return fmt.Errorf("-gap must be in [0, 1)")
	}

	ctx := context.Background()
	grid := geotiff.DefaultGeoref.Grid(o.width, o.height)
	models := buildModels(grid, o)
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x5eed))

	put, closeFn, err := openSink(ctx, o)
	if err != nil {
		return err
	}
	defer closeFn()

	for year := o.start; year <= o.end; year++ {
		if year == o.skipYear {
			log.Printf("%d: skipped", year)
			continue
		}
		a, b, err := synthesizeYear(grid, models, year-o.start, year, o.gap, rng)
		if err != nil {
			return err
		}
		if err := put(ctx, o.datasetA, o.band, a); err != nil {
			return err
		}
		if err := put(ctx, o.datasetB, o.band, b); err != nil {
			return err
		}
		log.Printf("%d: %d days per sensor", year, len(a))
	}

	if o.landmask != "" {
		if err := geotiff.WriteCover(o.landmask, landRaster(grid, models)); err != nil {
			return fmt.Errorf("writing land mask: %w", err)
		}
		log.Printf("wrote land mask: %s", o.landmask)
	}

	printStats(grid, models, o)
	return nil
}

type putFunc func(ctx context.Context, dataset, band string, s domain.Series) error

func openSink(ctx context.Context, o options) (putFunc, func() error, error) {
	switch o.driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, o.dsn)
		if err != nil {
			return nil, nil, err
		}
		return db.PutSeries, db.Close, nil
	case config.DriverTIFF:
		c := geotiff.NewDirCatalog(o.dir, geotiff.DefaultGeoref)
		put := func(_ context.Context, dataset, band string, s domain.Series) error {
			for _, f := range s {
				if err := geotiff.WriteCover(c.Path(dataset, band, f.Time), f.Raster); err != nil {
					return err
				}
			}
			return nil
		}
		return put, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown -driver %q", o.driver)
	}
}

func buildModels(grid domain.Grid, o options) []model {
	models := make([]model, grid.Cells())
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			models[y*grid.Width+x] = model{
				meltBase:  90 + 3*float64(x) + 2*float64(y),
				meltTrend: o.trend,
				accDay:    310 - 2*float64(y),
				water:     x >= grid.Width-o.waterCols,
			}
		}
	}
	return models
}

// synthesizeYear builds both sensor series. A cell reads 0-4 percent cover
// between its melt and accumulation days and 60-100 otherwise; each sensor
// independently misses a cell with probability gap.
func synthesizeYear(grid domain.Grid, models []model, offset, year int, gap float64, rng *rand.Rand) (domain.Series, domain.Series, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var a, b domain.Series
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		doy := float64(day.YearDay())
		cover := make([]float64, grid.Cells())
		for i, m := range models {
			melt := math.Round(m.meltBase + m.meltTrend*float64(offset))
			if doy >= melt && doy <= m.accDay {
				cover[i] = float64(rng.IntN(5))
			} else {
				cover[i] = 60 + float64(rng.IntN(41))
			}
		}

		ra, err := observe(grid, cover, gap, rng)
		if err != nil {
			return nil, nil, err
		}
		rb, err := observe(grid, cover, gap, rng)
		if err != nil {
			return nil, nil, err
		}
		a = append(a, domain.Frame{Time: day, Raster: ra})
		b = append(b, domain.Frame{Time: day, Raster: rb})
	}
	return a, b, nil
}

func observe(grid domain.Grid, cover []float64, gap float64, rng *rand.Rand) (domain.Raster, error) {
	valid := make([]bool, len(cover))
	for i := range valid {
		valid[i] = rng.Float64() >= gap
	}
	return domain.NewRaster(grid, "cover", cover, valid)
}

func landRaster(grid domain.Grid, models []model) domain.Raster {
	land := domain.Constant(grid, "land", 1)
	water := make([]float64, len(models))
	for i, m := range models {
		if m.water {
			water[i] = 1
		}
	}
	mask, err := domain.NewRaster(grid, "water", water, nil)
	if err != nil {
		panic(err)
	}
	return land.Where(mask.Equal(1), 0)
}

func printStats(grid domain.Grid, models []model, o options) {
	years := o.end - o.start + 1
	if o.skipYear >= o.start && o.skipYear <= o.end {
		years--
	}
	water := 0
	for _, m := range models {
		if m.water {
			water++
		}
	}

	fmt.Println("\n=== Synthetic catalog ===")
	fmt.Printf("Grid: %s\n", grid)
	fmt.Printf("Years: %d-%d (%d written)\n", o.start, o.end, years)
	fmt.Printf("Expected melt slope: %g days/year\n", o.trend)
	fmt.Printf("Water cells: %d of %d\n", water, grid.Cells())
	fmt.Printf("Sensor gap probability: %.2f (both missing: %.3f)\n", o.gap, o.gap*o.gap)
}
