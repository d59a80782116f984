package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/snow-phenology/internal/domain"
	"github.com/couchcryptid/snow-phenology/internal/observability"
)

// Publisher delivers a finished run to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, result domain.Result) error
}

// Options configures one multi-year run.
type Options struct {
	StartYear   int
	EndYear     int
	Sensors     Sensors
	Params      domain.Params
	Concurrency int
}

// Pipeline orchestrates the per-year reductions and the multi-year metrics.
type Pipeline struct {
	processor *YearProcessor
	masks     domain.MaskSource
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool
	last      atomic.Pointer[domain.Result]
}

// New creates a Pipeline. A nil publisher disables publishing and a nil mask
// source treats every cell as land.
func New(catalog domain.Catalog, masks domain.MaskSource, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if masks == nil {
		masks = domain.AllLand{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		processor: NewYearProcessor(catalog, opts.Sensors, opts.Params, logger, metrics),
		masks:     masks,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a run has completed,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastResult returns the most recent completed run.
func (p *Pipeline) LastResult() (domain.Result, bool) {
	r := p.last.Load()
	if r == nil {
		return domain.Result{}, false
	}
	return *r, true
}

type yearOutcome struct {
	summary domain.YearSummary
	diag    domain.YearDiagnostic
	err     error
}

// Run processes every year in [StartYear, EndYear], folds the summaries in
// ascending year order, and derives the trend. Years without fused data or
// whose acquisition failed are skipped and reported in the diagnostics; a
// grid mismatch aborts the run.
func (p *Pipeline) Run(ctx context.Context) (domain.Result, error) {
	if p.opts.StartYear > p.opts.EndYear {
		return domain.Result{}, fmt.Errorf("start year %d is after end year %d", p.opts.StartYear, p.opts.EndYear)
	}

	p.logger.Info("pipeline started",
		"start_year", p.opts.StartYear,
		"end_year", p.opts.EndYear,
		"concurrency", p.opts.Concurrency,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	began := time.Now()

	outcomes, err := p.processYears(ctx)
	if err != nil {
		return domain.Result{}, err
	}

	acc, diags, err := p.fold(outcomes)
	if err != nil {
		return domain.Result{}, err
	}

	land, err := p.masks.LandMask(ctx, acc.Grid())
	if err != nil {
		return domain.Result{}, fmt.Errorf("land mask: %w", err)
	}

	derived, err := domain.Derive(acc, land, p.opts.Params.SeasonLengthCeiling)
	if err != nil {
		return domain.Result{}, err
	}
	if derived.DroppedYears > 0 {
		p.metrics.JoinDropped.WithLabelValues("season").Add(float64(derived.DroppedYears))
	}
	p.metrics.DegenerateCells.Set(float64(derived.Degenerate))

	result := domain.Result{
		RunID:       uuid.NewString(),
		StartYear:   p.opts.StartYear,
		EndYear:     p.opts.EndYear,
		Grid:        acc.Grid(),
		Years:       acc.Melt().Years(),
		Diagnostics: diags,
		Derived:     derived,
		ProcessedAt: domain.Now(),
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, result); err != nil {
			return result, fmt.Errorf("publish run %s: %w", result.RunID, err)
		}
	}

	p.last.Store(&result)
	p.ready.Store(true)
	p.metrics.RunDuration.Observe(time.Since(began).Seconds())
	p.logger.Info("pipeline finished",
		"run_id", result.RunID,
		"years", len(result.Years),
		"skipped", len(result.Skipped()),
		"degenerate_cells", derived.Degenerate,
		"duration", time.Since(began),
	)
	return result, nil
}

// processYears runs the year processor concurrently. Outcomes are indexed by
// year offset so the fold can proceed in ascending order regardless of
// completion order.
func (p *Pipeline) processYears(ctx context.Context) ([]yearOutcome, error) {
	n := p.opts.EndYear - p.opts.StartYear + 1
	outcomes := make([]yearOutcome, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i := range n {
		year := p.opts.StartYear + i
		g.Go(func() error {
			summary, diag, err := p.processor.Process(gctx, year)
			outcomes[i] = yearOutcome{summary: summary, diag: diag, err: err}
			if domain.IsGridMismatch(err) {
				return fmt.Errorf("year %d: %w", year, err)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (p *Pipeline) fold(outcomes []yearOutcome) (domain.Accumulator, []domain.YearDiagnostic, error) {
	acc := domain.NewAccumulator()
	diags := make([]domain.YearDiagnostic, 0, len(outcomes))

	for _, o := range outcomes {
		diag := o.diag
		if o.err != nil {
			reason := "acquisition"
			if errors.Is(o.err, domain.ErrEmptyYear) {
				reason = "empty"
			}
			diag.Skipped = true
			diag.Reason = o.err.Error()
			diags = append(diags, diag)
			p.metrics.YearsSkipped.WithLabelValues(reason).Inc()
			p.logger.Warn("year skipped", "year", diag.Year, "reason", reason, "error", o.err)
			continue
		}

		next, err := acc.Add(o.summary)
		if err != nil {
			return acc, nil, fmt.Errorf("year %d: %w", diag.Year, err)
		}
		acc = next
		diags = append(diags, diag)
		p.metrics.YearsProcessed.Inc()
		p.logger.Debug("year reduced",
			"year", diag.Year,
			"fused_days", diag.FusedDays,
			"dropped_days", diag.DroppedDays,
		)
	}

	if acc.Len() == 0 {
		return acc, diags, domain.ErrNoYears
	}
	return acc, diags, nil
}
