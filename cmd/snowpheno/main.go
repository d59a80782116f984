// Command snowpheno runs the multi-year snow phenology pipeline once,
// publishes the melt trend when Kafka is enabled, and keeps serving
// health, readiness, metrics, and the run summary until stopped.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/snow-phenology/internal/adapter/catalogs"
	"github.com/couchcryptid/snow-phenology/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/snow-phenology/internal/adapter/kafka"
	"github.com/couchcryptid/snow-phenology/internal/config"
	"github.com/couchcryptid/snow-phenology/internal/domain"
	"github.com/couchcryptid/snow-phenology/internal/observability"
	"github.com/couchcryptid/snow-phenology/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, closeCatalog, err := catalogs.Open(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}

	// Kafka publishing is feature-flagged via KAFKA_ENABLED.
	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(catalog, catalogs.LandMask(cfg), publisher, logger, metrics, pipeline.Options{
		StartYear: cfg.StartYear,
		EndYear:   cfg.EndYear,
		Sensors: pipeline.Sensors{
			DatasetA: cfg.SensorADataset,
			DatasetB: cfg.SensorBDataset,
			Band:     cfg.SnowBand,
		},
		Params: domain.Params{
			CoverThreshold:      cfg.CoverThreshold,
			SeasonLengthCeiling: cfg.SeasonLengthCeiling,
			NoEventSentinel:     cfg.NoEventSentinel,
		},
		Concurrency: cfg.FetchConcurrency,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the pipeline once; the server keeps reporting its outcome. A failed
	// run stops the service.
	done := make(chan error, 1)
	go func() {
		done <- runPipeline(ctx, p, stop, logger)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	var runErr error
	select {
	case runErr = <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeCatalog(); err != nil {
		logger.Error("catalog close error", "error", err)
	}

	logger.Info("shutdown complete")
	if runErr != nil {
		os.Exit(1)
	}
}

type runner interface {
	Run(ctx context.Context) (domain.Result, error)
}

// runPipeline runs p once. A run that fails for any reason other than
// cancellation is logged and cancels the service context through stop.
func runPipeline(ctx context.Context, p runner, stop context.CancelFunc, logger *slog.Logger) error {
	if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("pipeline error", "error", err)
		stop()
		return err
	}
	return nil
}
