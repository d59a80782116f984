package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snow-phenology/internal/domain"
	"github.com/couchcryptid/snow-phenology/internal/pipeline"
)

const (
	datasetA = "terra"
	datasetB = "aqua"
	band     = "snow"
)

var (
	testGrid  = domain.Grid{Width: 2, Height: 1, CellSize: 500}
	otherGrid = domain.Grid{Width: 3, Height: 1, CellSize: 500}

	testSensors = pipeline.Sensors{DatasetA: datasetA, DatasetB: datasetB, Band: band}
)

// --- mocks ---

type fakeCatalog struct {
	mu      sync.Mutex
	series  map[string]domain.Series // key: dataset/year
	errs    map[string]error
	queries []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		series: make(map[string]domain.Series),
		errs:   make(map[string]error),
	}
}

func catalogKey(dataset string, year int) string {
	return fmt.Sprintf("%s/%d", dataset, year)
}

func (c *fakeCatalog) put(dataset string, year int, s domain.Series) {
	c.series[catalogKey(dataset, year)] = s
}

func (c *fakeCatalog) fail(dataset string, year int, err error) {
	c.errs[catalogKey(dataset, year)] = err
}

func (c *fakeCatalog) Query(ctx context.Context, dataset, b string, start, end time.Time) (domain.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b != band {
		return nil, fmt.Errorf("unexpected band %q", b)
	}
	if !end.Equal(start.AddDate(1, 0, 0)) {
		return nil, fmt.Errorf("unexpected range %s..%s", start, end)
	}

	key := catalogKey(dataset, start.Year())
	c.mu.Lock()
	c.queries = append(c.queries, key)
	c.mu.Unlock()

	if err := c.errs[key]; err != nil {
		return nil, err
	}
	return c.series[key], nil
}

type fakePublisher struct {
	published []domain.Result
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, r domain.Result) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, r)
	return nil
}

type fixedMask struct {
	mask domain.Raster
}

func (m fixedMask) LandMask(_ context.Context, _ domain.Grid) (domain.Raster, error) {
	return m.mask, nil
}

// --- builders ---

func day(year, doy int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
}

// snowYear builds both sensor series for one year over grid. Every cell is
// snow covered (80%) before meltDoy and from accDoy+1 on, and snow free in
// between. Sensor A only sees odd days and sensor B only even days, so every
// day needs both sensors to be fully observed.
func snowYear(t *testing.T, grid domain.Grid, year, meltDoy, accDoy int) (domain.Series, domain.Series) {
	t.Helper()
	days := 365
	if time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay() == 366 {
		days = 366
	}

	var a, b []domain.Frame
	for d := 1; d <= days; d++ {
		cover := 80.0
		if d >= meltDoy && d <= accDoy {
			cover = 0
		}
		seen := sensorRaster(t, grid, cover, true)
		unseen := sensorRaster(t, grid, cover, false)
		if d%2 == 1 {
			a = append(a, domain.Frame{Time: day(year, d), Raster: seen})
			b = append(b, domain.Frame{Time: day(year, d), Raster: unseen})
		} else {
			a = append(a, domain.Frame{Time: day(year, d), Raster: unseen})
			b = append(b, domain.Frame{Time: day(year, d), Raster: seen})
		}
	}
	return domain.NewSeries(a...), domain.NewSeries(b...)
}

func sensorRaster(t *testing.T, grid domain.Grid, cover float64, valid bool) domain.Raster {
	t.Helper()
	values := make([]float64, grid.Cells())
	mask := make([]bool, grid.Cells())
	for i := range values {
		values[i] = cover
		mask[i] = valid
	}
	r, err := domain.NewRaster(grid, band, values, mask)
	require.NoError(t, err)
	return r
}

func addYear(t *testing.T, c *fakeCatalog, grid domain.Grid, year, meltDoy, accDoy int) {
	t.Helper()
	a, b := snowYear(t, grid, year, meltDoy, accDoy)
	c.put(datasetA, year, a)
	c.put(datasetB, year, b)
}

func testOptions(start, end int) pipeline.Options {
	return pipeline.Options{
		StartYear:   start,
		EndYear:     end,
		Sensors:     testSensors,
		Params:      domain.DefaultParams(),
		Concurrency: 3,
	}
}

func cellValue(t *testing.T, im domain.Image, bandName string, i int) (float64, bool) {
	t.Helper()
	r, ok := im.Select(bandName)
	require.True(t, ok, "band %s", bandName)
	return r.Cell(i)
}
