package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2001, cfg.StartYear)
	assert.Equal(t, 2020, cfg.EndYear)
	assert.Equal(t, 5.0, cfg.CoverThreshold)
	assert.Equal(t, 306.0, cfg.SeasonLengthCeiling)
	assert.Equal(t, 366.0, cfg.NoEventSentinel)
	assert.Equal(t, "MODIS/006/MOD10A1", cfg.SensorADataset)
	assert.Equal(t, "MODIS/006/MYD10A1", cfg.SensorBDataset)
	assert.Equal(t, "NDSI_Snow_Cover", cfg.SnowBand)
	assert.Equal(t, DriverSQLite, cfg.CatalogDriver)
	assert.Equal(t, "snowpheno.db", cfg.CatalogDSN)
	assert.Equal(t, 30*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, 64, cfg.CatalogCacheSize)
	assert.Empty(t, cfg.LandMaskPath)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "snow-phenology-trends", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("START_YEAR", "2003")
	t.Setenv("END_YEAR", "2003")
	t.Setenv("COVER_THRESHOLD", "10")
	t.Setenv("SEASON_LENGTH_CEILING", "300")
	t.Setenv("NO_EVENT_SENTINEL", "367")
	t.Setenv("SENSOR_A_DATASET", "terra")
	t.Setenv("SENSOR_B_DATASET", "aqua")
	t.Setenv("SNOW_BAND", "snow")
	t.Setenv("CATALOG_DRIVER", "http")
	t.Setenv("CATALOG_URL", "http://catalog.local")
	t.Setenv("CATALOG_TIMEOUT", "5s")
	t.Setenv("CATALOG_CACHE_SIZE", "0")
	t.Setenv("LANDMASK_PATH", "/data/land.tif")
	t.Setenv("FETCH_CONCURRENCY", "8")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2003, cfg.StartYear)
	assert.Equal(t, 2003, cfg.EndYear)
	assert.Equal(t, 10.0, cfg.CoverThreshold)
	assert.Equal(t, 300.0, cfg.SeasonLengthCeiling)
	assert.Equal(t, 367.0, cfg.NoEventSentinel)
	assert.Equal(t, "terra", cfg.SensorADataset)
	assert.Equal(t, "aqua", cfg.SensorBDataset)
	assert.Equal(t, "snow", cfg.SnowBand)
	assert.Equal(t, DriverHTTP, cfg.CatalogDriver)
	assert.Equal(t, "http://catalog.local", cfg.CatalogURL)
	assert.Equal(t, 5*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, 0, cfg.CatalogCacheSize)
	assert.Equal(t, "/data/land.tif", cfg.LandMaskPath)
	assert.Equal(t, 8, cfg.FetchConcurrency)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{key: "SHUTDOWN_TIMEOUT", value: "not-a-duration", want: "SHUTDOWN_TIMEOUT"},
		{key: "START_YEAR", value: "twenty", want: "START_YEAR"},
		{key: "END_YEAR", value: "1999", want: "after END_YEAR"},
		{key: "COVER_THRESHOLD", value: "five", want: "COVER_THRESHOLD"},
		{key: "COVER_THRESHOLD", value: "-1", want: "COVER_THRESHOLD must be within"},
		{key: "COVER_THRESHOLD", value: "101", want: "COVER_THRESHOLD must be within"},
		{key: "SEASON_LENGTH_CEILING", value: "0", want: "SEASON_LENGTH_CEILING"},
		{key: "NO_EVENT_SENTINEL", value: "365", want: "NO_EVENT_SENTINEL must be at least 366"},
		{key: "CATALOG_TIMEOUT", value: "-1s", want: "CATALOG_TIMEOUT"},
		{key: "CATALOG_CACHE_SIZE", value: "-3", want: "CATALOG_CACHE_SIZE"},
		{key: "FETCH_CONCURRENCY", value: "0", want: "FETCH_CONCURRENCY"},
		{key: "CATALOG_DRIVER", value: "ftp", want: "CATALOG_DRIVER"},
		{key: "SENSOR_B_DATASET", value: "MODIS/006/MOD10A1", want: "must differ"},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_HTTPDriverRequiresURL(t *testing.T) {
	t.Setenv("CATALOG_DRIVER", "http")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_URL")
}

func TestLoad_KafkaDisabledUnlessTrue(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "yes")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}
