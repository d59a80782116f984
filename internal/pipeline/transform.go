package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/snow-phenology/internal/domain"
	"github.com/couchcryptid/snow-phenology/internal/observability"
)

// Sensors names the two catalog datasets fused each day and the band read from both.
type Sensors struct {
	DatasetA string
	DatasetB string
	Band     string
}

// YearProcessor turns one calendar year of sensor data into melt and
// accumulation rasters: fetch both sensors, fuse, encode events, reduce.
type YearProcessor struct {
	catalog domain.Catalog
	sensors Sensors
	params  domain.Params
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewYearProcessor creates a YearProcessor reading from catalog.
func NewYearProcessor(catalog domain.Catalog, sensors Sensors, params domain.Params, logger *slog.Logger, metrics *observability.Metrics) *YearProcessor {
	return &YearProcessor{
		catalog: catalog,
		sensors: sensors,
		params:  params,
		logger:  logger,
		metrics: metrics,
	}
}

// YearRange returns the query window of a calendar year, [Jan 1 year, Jan 1 year+1).
func YearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// Process reduces one year. The diagnostic is filled in as far as processing
// got, even when an error is returned.
func (p *YearProcessor) Process(ctx context.Context, year int) (domain.YearSummary, domain.YearDiagnostic, error) {
	diag := domain.YearDiagnostic{Year: year}
	start, end := YearRange(year)

	a, err := p.query(ctx, p.sensors.DatasetA, start, end)
	if err != nil {
		return domain.YearSummary{}, diag, fmt.Errorf("query %s %d: %w", p.sensors.DatasetA, year, err)
	}
	b, err := p.query(ctx, p.sensors.DatasetB, start, end)
	if err != nil {
		return domain.YearSummary{}, diag, fmt.Errorf("query %s %d: %w", p.sensors.DatasetB, year, err)
	}
	diag.SensorADays = len(a)
	diag.SensorBDays = len(b)

	if len(a) > 0 {
		ref := a[0].Raster.Grid()
		if err := a.CheckGrid(p.sensors.DatasetA, ref); err != nil {
			return domain.YearSummary{}, diag, err
		}
		if err := b.CheckGrid(p.sensors.DatasetB, ref); err != nil {
			return domain.YearSummary{}, diag, err
		}
	} else if len(b) > 0 {
		if err := b.CheckGrid(p.sensors.DatasetB, b[0].Raster.Grid()); err != nil {
			return domain.YearSummary{}, diag, err
		}
	}

	fused, dropped := domain.Fuse(a, b)
	diag.FusedDays = len(fused)
	diag.DroppedDays = dropped
	p.metrics.DaysFused.Add(float64(len(fused)))
	if dropped > 0 {
		p.metrics.JoinDropped.WithLabelValues("sensor").Add(float64(dropped))
		p.logger.Debug("unmatched sensor days dropped", "year", year, "dropped", dropped)
	}

	first, ok := fused.Start()
	if !ok {
		return domain.YearSummary{}, diag, fmt.Errorf("fuse %d: %w", year, domain.ErrEmptyYear)
	}

	events := domain.EncodeEvents(fused, first, p.params.CoverThreshold)
	summary, err := domain.ReduceYear(year, events, p.params.NoEventSentinel)
	if err != nil {
		return domain.YearSummary{}, diag, err
	}
	return summary, diag, nil
}

func (p *YearProcessor) query(ctx context.Context, dataset string, start, end time.Time) (domain.Series, error) {
	began := time.Now()
	s, err := p.catalog.Query(ctx, dataset, p.sensors.Band, start, end)
	p.metrics.CatalogQueryDuration.Observe(time.Since(began).Seconds())
	if err != nil {
		p.metrics.CatalogQueries.WithLabelValues("error").Inc()
		return nil, err
	}
	p.metrics.CatalogQueries.WithLabelValues("success").Inc()
	return s, nil
}
