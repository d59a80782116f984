//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/snow-phenology/internal/adapter/kafka"
	"github.com/couchcryptid/snow-phenology/internal/adapter/sqlite"
	"github.com/couchcryptid/snow-phenology/internal/config"
	"github.com/couchcryptid/snow-phenology/internal/domain"
	"github.com/couchcryptid/snow-phenology/internal/observability"
	"github.com/couchcryptid/snow-phenology/internal/pipeline"
)

const (
	testSinkTopic = "test-snow-trend"
	datasetA      = "MODIS/006/MOD10A1"
	datasetB      = "MODIS/006/MYD10A1"
	band          = "NDSI_Snow_Cover"
)

var testGrid = domain.Grid{Width: 2, Height: 1, CellSize: 500}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("snow-phenology-test"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// seedCatalog writes daily acquisitions from both sensors for every year.
// Cover is 0 between melt and day 300 and 80 otherwise; melt moves two days
// later each year.
func seedCatalog(ctx context.Context, t *testing.T, cat *sqlite.Catalog, startYear, endYear int) {
	t.Helper()
	for year := startYear; year <= endYear; year++ {
		melt := 100 + 2*(year-startYear)
		start, end := pipeline.YearRange(year)

		var series domain.Series
		for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
			v := 80.0
			if doy := day.YearDay(); doy >= melt && doy <= 300 {
				v = 0
			}
			series = append(series, domain.Frame{Time: day, Raster: domain.Constant(testGrid, "cover", v)})
		}
		require.NoError(t, cat.PutSeries(ctx, datasetA, band, series))
		require.NoError(t, cat.PutSeries(ctx, datasetB, band, series))
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	catalog, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })
	seedCatalog(ctx, t, catalog, 2001, 2003)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(catalog, nil, writer, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{
		StartYear:   2001,
		EndYear:     2003,
		Sensors:     pipeline.Sensors{DatasetA: datasetA, DatasetB: datasetB, Band: band},
		Params:      domain.DefaultParams(),
		Concurrency: 2,
	})

	result, err := p.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, p.CheckReadiness(ctx))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		Partition:   0,
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, result.RunID, string(msg.Key))
	assert.Equal(t, kafka.ContentType, headers["content_type"])
	_, err = time.Parse(time.RFC3339, headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	var tm kafka.TrendMessage
	require.NoError(t, msgpack.NewDecoder(bytes.NewReader(msg.Value)).Decode(&tm))
	assert.Equal(t, result.RunID, tm.RunID)
	assert.Equal(t, []int{2001, 2002, 2003}, tm.Years)
	assert.Equal(t, testGrid, tm.Grid)
	assert.Equal(t, []bool{true, true}, tm.Valid)
	assert.InDeltaSlice(t, []float64{2, 2}, tm.Slope, 1e-9)
	assert.InDeltaSlice(t, []float64{100 - 2*2001, 100 - 2*2001}, tm.Intercept, 1e-6)
	assert.InDeltaSlice(t, []float64{198, 198}, tm.Median, 1e-9)
	assert.Zero(t, tm.Degenerate)
	assert.Empty(t, tm.Skipped)
}

func TestPipelineSkipsMissingYear(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	catalog, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })
	seedCatalog(ctx, t, catalog, 2001, 2001)
	seedCatalog(ctx, t, catalog, 2003, 2003)

	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaSinkTopic: testSinkTopic}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(catalog, nil, writer, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{
		StartYear: 2001,
		EndYear:   2003,
		Sensors:   pipeline.Sensors{DatasetA: datasetA, DatasetB: datasetB, Band: band},
		Params:    domain.DefaultParams(),
	})

	result, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2001, 2003}, result.Years)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		Partition:   0,
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err)

	var tm kafka.TrendMessage
	require.NoError(t, msgpack.Unmarshal(msg.Value, &tm))
	require.Len(t, tm.Skipped, 1)
	assert.Equal(t, 2002, tm.Skipped[0].Year)
	assert.True(t, tm.Skipped[0].Skipped)
}
