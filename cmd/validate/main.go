// Command validate performs data integrity checks over the configured snow
// cover catalog: sensor coverage and grid consistency per year, event
// ordering of the yearly reduction, the season length round trip, and the
// soundness of the fitted melt trend against the land and season masks.
//
// The catalog is selected with the same environment variables as the
// service. Flags override the year range.
//
// Usage:
//
//	CATALOG_DRIVER=sqlite CATALOG_DSN=snowpheno.db go run ./cmd/validate -start 2001 -end 2005
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/snow-phenology/internal/adapter/catalogs"
	"github.com/couchcryptid/snow-phenology/internal/config"
	"github.com/couchcryptid/snow-phenology/internal/domain"
	"github.com/couchcryptid/snow-phenology/internal/observability"
	"github.com/couchcryptid/snow-phenology/internal/pipeline"
)

const (
	// maxErrorsPerPhase caps the per-cell findings a phase records.
	maxErrorsPerPhase = 50

	maxDayOfYear = 366
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	if len(p.errors) == maxErrorsPerPhase {
		p.errors = append(p.errors, "further errors suppressed")
	}
	if len(p.errors) > maxErrorsPerPhase {
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	flag.IntVar(&cfg.StartYear, "start", cfg.StartYear, "first year to validate")
	flag.IntVar(&cfg.EndYear, "end", cfg.EndYear, "last year to validate")
	flag.Parse()

	if cfg.StartYear > cfg.EndYear {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(context.Background(), cfg); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	fmt.Println("=== Snow Phenology Catalog Validation ===")
	fmt.Printf("Catalog: %s, years %d-%d\n\n", cfg.CatalogDriver, cfg.StartYear, cfg.EndYear)

	catalog, closeCatalog, err := catalogs.Open(ctx, cfg, logger, metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open catalog: %v\n", err)
		return 1
	}
	defer closeCatalog()

	sensors := pipeline.Sensors{
		DatasetA: cfg.SensorADataset,
		DatasetB: cfg.SensorBDataset,
		Band:     cfg.SnowBand,
	}
	params := domain.Params{
		CoverThreshold:      cfg.CoverThreshold,
		SeasonLengthCeiling: cfg.SeasonLengthCeiling,
		NoEventSentinel:     cfg.NoEventSentinel,
	}

	// ── Reduce every year ──
	coverage := &phase{name: "Catalog coverage and grid consistency"}
	ordering := &phase{name: "Melt/accumulation event ordering"}
	proc := pipeline.NewYearProcessor(catalog, sensors, params, logger, metrics)

	var (
		acc   = domain.NewAccumulator()
		diags []domain.YearDiagnostic
	)
	for year := cfg.StartYear; year <= cfg.EndYear; year++ {
		summary, diag, err := proc.Process(ctx, year)
		diags = append(diags, diag)
		switch {
		case errors.Is(err, domain.ErrEmptyYear):
			coverage.errorf("%d: no fused days (sensor A %d days, sensor B %d days)", year, diag.SensorADays, diag.SensorBDays)
			continue
		case err != nil:
			coverage.errorf("%d: %v", year, err)
			continue
		}
		checkCoverage(coverage, diag)
		checkOrdering(ordering, summary, params.NoEventSentinel)

		next, err := acc.Add(summary)
		if err != nil {
			coverage.errorf("%d: %v", year, err)
			continue
		}
		acc = next
	}

	phases := []*phase{coverage, ordering}

	// ── Multi-year checks ──
	var derived domain.Derived
	if acc.Len() > 0 {
		land, err := catalogs.LandMask(cfg).LandMask(ctx, acc.Grid())
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load land mask: %v\n", err)
			return 1
		}
		derived, err = domain.Derive(acc, land, params.SeasonLengthCeiling)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: derive: %v\n", err)
			return 1
		}
		phases = append(phases,
			validateSeasonLength(acc, derived),
			validateTrend(derived, land, params.SeasonLengthCeiling),
		)
	} else {
		coverage.errorf("no year could be reduced")
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fused := 0
	for _, d := range diags {
		fused += d.FusedDays
	}
	fmt.Printf("Years: %d reduced of %d, %d fused days\n", acc.Len(), len(diags), fused)
	if acc.Len() > 0 {
		fmt.Printf("Trend: %d degenerate cells, %d season years dropped\n", derived.Degenerate, derived.DroppedYears)
	}

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func checkCoverage(p *phase, d domain.YearDiagnostic) {
	if d.SensorADays == 0 {
		p.errorf("%d: sensor A has no acquisitions", d.Year)
	}
	if d.SensorBDays == 0 {
		p.errorf("%d: sensor B has no acquisitions", d.Year)
	}
	if d.DroppedDays > 0 {
		p.errorf("%d: %d days without a matching acquisition from the other sensor", d.Year, d.DroppedDays)
	}
}

// checkOrdering verifies that the first snow-free day never falls after the
// last one and that both are either real days or the sentinel together.
func checkOrdering(p *phase, s domain.YearSummary, sentinel float64) {
	if s.Days <= 0 {
		p.errorf("%d: reduced from %d days", s.Year, s.Days)
		return
	}
	for i := range s.Melt.Grid().Cells() {
		melt, okM := s.Melt.Cell(i)
		acc, okA := s.Acc.Cell(i)
		if okM != okA {
			p.errorf("%d cell %d: melt valid=%t but acc valid=%t", s.Year, i, okM, okA)
			continue
		}
		if !okM {
			continue
		}
		if (melt == sentinel) != (acc == sentinel) {
			p.errorf("%d cell %d: melt %g and acc %g disagree on the sentinel", s.Year, i, melt, acc)
			continue
		}
		if melt > acc {
			p.errorf("%d cell %d: melt %g after acc %g", s.Year, i, melt, acc)
		}
		if melt != sentinel && (melt < 1 || acc > maxDayOfYear) {
			p.errorf("%d cell %d: events %g..%g outside 1..%d", s.Year, i, melt, acc, maxDayOfYear)
		}
	}
}

// validateSeasonLength checks that every season length plus its melt day
// gives back the accumulation day of the same year.
func validateSeasonLength(acc domain.Accumulator, derived domain.Derived) *phase {
	p := &phase{name: "Season length round trip"}

	melt := byYear(acc.Melt())
	last := byYear(acc.Acc())
	for _, e := range derived.SnowFree.Entries() {
		m, okM := melt[e.Year]
		a, okA := last[e.Year]
		if !okM || !okA {
			p.errorf("%d: season length without melt and acc rasters", e.Year)
			continue
		}
		for i := range e.Raster.Grid().Cells() {
			sf, ok := e.Raster.Cell(i)
			if !ok {
				continue
			}
			mv, ok1 := m.Cell(i)
			av, ok2 := a.Cell(i)
			if !ok1 || !ok2 {
				p.errorf("%d cell %d: season length valid over masked events", e.Year, i)
				continue
			}
			if sf+mv != av {
				p.errorf("%d cell %d: %g + %g != %g", e.Year, i, sf, mv, av)
			}
		}
	}
	if derived.SnowFree.Len()+derived.DroppedYears != acc.Len() {
		p.errorf("season stack has %d years plus %d dropped, want %d", derived.SnowFree.Len(), derived.DroppedYears, acc.Len())
	}
	return p
}

// validateTrend checks that valid trend cells are finite and sit on land
// with a median season below the ceiling.
func validateTrend(derived domain.Derived, land domain.Raster, ceiling float64) *phase {
	p := &phase{name: "Melt trend validity"}

	slope, okS := derived.Trend.Select(domain.BandSlope)
	intercept, okI := derived.Trend.Select(domain.BandIntercept)
	if !okS || !okI {
		p.errorf("trend image missing bands: %v", derived.Trend.BandNames())
		return p
	}

	for i := range slope.Grid().Cells() {
		s, ok := slope.Cell(i)
		if !ok {
			continue
		}
		b, _ := intercept.Cell(i)
		if math.IsNaN(s) || math.IsInf(s, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
			p.errorf("cell %d: non-finite fit slope=%g intercept=%g", i, s, b)
		}
		if l, ok := land.Cell(i); !ok || l != 1 {
			p.errorf("cell %d: valid trend over water", i)
		}
		if m, ok := derived.Median.Cell(i); !ok || m >= ceiling {
			p.errorf("cell %d: valid trend with median season %g not below %g", i, m, ceiling)
		}
	}
	return p
}

func byYear(s domain.YearStack) map[int]domain.Raster {
	out := make(map[int]domain.Raster, s.Len())
	for _, e := range s.Entries() {
		out[e.Year] = e.Raster
	}
	return out
}
