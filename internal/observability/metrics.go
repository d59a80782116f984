package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the phenology pipeline.
type Metrics struct {
	YearsProcessed  prometheus.Counter
	YearsSkipped    *prometheus.CounterVec // labels: reason={empty,acquisition}
	DaysFused       prometheus.Counter
	JoinDropped     *prometheus.CounterVec // labels: join={sensor,season}
	DegenerateCells prometheus.Gauge
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram

	// Catalog metrics.
	CatalogQueries       *prometheus.CounterVec // labels: outcome={success,error}
	CatalogQueryDuration prometheus.Histogram
	CatalogCache         *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		YearsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snowpheno",
			Name:      "years_processed_total",
			Help:      "Years reduced and added to the melt/accumulation stacks.",
		}),
		YearsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowpheno",
			Name:      "years_skipped_total",
			Help:      "Years left out of the stacks by reason.",
		}, []string{"reason"}),
		DaysFused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snowpheno",
			Name:      "days_fused_total",
			Help:      "Daily rasters produced by fusing the two sensors.",
		}),
		JoinDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowpheno",
			Name:      "join_dropped_total",
			Help:      "Rows without a partner in an inner join, by join.",
		}, []string{"join"}),
		DegenerateCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snowpheno",
			Name:      "trend_degenerate_cells",
			Help:      "Cells of the last run whose trend came from fewer than two years or is NaN.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snowpheno",
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snowpheno",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete multi-year run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		CatalogQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowpheno",
			Name:      "catalog_queries_total",
			Help:      "Catalog series queries by outcome.",
		}, []string{"outcome"}),
		CatalogQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snowpheno",
			Name:      "catalog_query_duration_seconds",
			Help:      "Duration of one catalog series query.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CatalogCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowpheno",
			Name:      "catalog_cache_total",
			Help:      "Catalog cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.YearsProcessed,
		m.YearsSkipped,
		m.DaysFused,
		m.JoinDropped,
		m.DegenerateCells,
		m.PipelineRunning,
		m.RunDuration,
		m.CatalogQueries,
		m.CatalogQueryDuration,
		m.CatalogCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		YearsProcessed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "snowpheno", Name: "years_processed_total"}),
		YearsSkipped:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowpheno", Name: "years_skipped_total"}, []string{"reason"}),
		DaysFused:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "snowpheno", Name: "days_fused_total"}),
		JoinDropped:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowpheno", Name: "join_dropped_total"}, []string{"join"}),
		DegenerateCells:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "snowpheno", Name: "trend_degenerate_cells"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "snowpheno", Name: "pipeline_running"}),
		RunDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "snowpheno", Name: "run_duration_seconds"}),
		CatalogQueries:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowpheno", Name: "catalog_queries_total"}, []string{"outcome"}),
		CatalogQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "snowpheno", Name: "catalog_query_duration_seconds"}),
		CatalogCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowpheno", Name: "catalog_cache_total"}, []string{"result"}),
	}
}
