package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/snow-phenology/internal/domain"
)

// Catalog drivers.
const (
	DriverSQLite = "sqlite"
	DriverTIFF   = "tiff"
	DriverHTTP   = "http"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	StartYear int
	EndYear   int

	CoverThreshold      float64
	SeasonLengthCeiling float64
	NoEventSentinel     float64

	SensorADataset string
	SensorBDataset string
	SnowBand       string

	CatalogDriver    string
	CatalogDSN       string
	CatalogDir       string
	CatalogURL       string
	CatalogTimeout   time.Duration
	CatalogCacheSize int

	LandMaskPath     string
	FetchConcurrency int

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	startYear, err := parseInt("START_YEAR", 2001)
	if err != nil {
		return nil, err
	}
	endYear, err := parseInt("END_YEAR", 2020)
	if err != nil {
		return nil, err
	}

	threshold, err := parseFloat("COVER_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}
	ceiling, err := parseFloat("SEASON_LENGTH_CEILING", 306)
	if err != nil {
		return nil, err
	}
	sentinel, err := parseFloat("NO_EVENT_SENTINEL", 366)
	if err != nil {
		return nil, err
	}

	catalogTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("CATALOG_TIMEOUT", "30s"))
	if err != nil || catalogTimeout <= 0 {
		return nil, errors.New("invalid CATALOG_TIMEOUT")
	}

	cacheSize, err := parseInt("CATALOG_CACHE_SIZE", 64)
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid CATALOG_CACHE_SIZE")
	}

	concurrency, err := parseInt("FETCH_CONCURRENCY", 4)
	if err != nil || concurrency < 1 {
		return nil, errors.New("invalid FETCH_CONCURRENCY")
	}

	cfg := &Config{
		StartYear: startYear,
		EndYear:   endYear,

		CoverThreshold:      threshold,
		SeasonLengthCeiling: ceiling,
		NoEventSentinel:     sentinel,

		SensorADataset: sharedcfg.EnvOrDefault("SENSOR_A_DATASET", "MODIS/006/MOD10A1"),
		SensorBDataset: sharedcfg.EnvOrDefault("SENSOR_B_DATASET", "MODIS/006/MYD10A1"),
		SnowBand:       sharedcfg.EnvOrDefault("SNOW_BAND", "NDSI_Snow_Cover"),

		CatalogDriver:    sharedcfg.EnvOrDefault("CATALOG_DRIVER", DriverSQLite),
		CatalogDSN:       sharedcfg.EnvOrDefault("CATALOG_DSN", "snowpheno.db"),
		CatalogDir:       sharedcfg.EnvOrDefault("CATALOG_DIR", "data/rasters"),
		CatalogURL:       os.Getenv("CATALOG_URL"),
		CatalogTimeout:   catalogTimeout,
		CatalogCacheSize: cacheSize,

		LandMaskPath:     os.Getenv("LANDMASK_PATH"),
		FetchConcurrency: concurrency,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "snow-phenology-trends"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.StartYear > cfg.EndYear {
		return nil, fmt.Errorf("START_YEAR %d is after END_YEAR %d", cfg.StartYear, cfg.EndYear)
	}
	if cfg.SeasonLengthCeiling <= 0 {
		return nil, errors.New("SEASON_LENGTH_CEILING must be positive")
	}
	if cfg.CoverThreshold < 0 || cfg.CoverThreshold > domain.MaxCover {
		return nil, fmt.Errorf("COVER_THRESHOLD must be within [0, %d]", domain.MaxCover)
	}
	// Day numbers run up to 366; a lower sentinel would read as a real day.
	if cfg.NoEventSentinel < domain.DefaultNoEventSentinel {
		return nil, fmt.Errorf("NO_EVENT_SENTINEL must be at least %d", domain.DefaultNoEventSentinel)
	}
	if cfg.SensorADataset == cfg.SensorBDataset {
		return nil, errors.New("SENSOR_A_DATASET and SENSOR_B_DATASET must differ")
	}

	switch cfg.CatalogDriver {
	case DriverSQLite:
		if cfg.CatalogDSN == "" {
			return nil, errors.New("CATALOG_DSN is required for the sqlite catalog")
		}
	case DriverTIFF:
		if cfg.CatalogDir == "" {
			return nil, errors.New("CATALOG_DIR is required for the tiff catalog")
		}
	case DriverHTTP:
		if cfg.CatalogURL == "" {
			return nil, errors.New("CATALOG_URL is required for the http catalog")
		}
	default:
		return nil, fmt.Errorf("unknown CATALOG_DRIVER %q", cfg.CatalogDriver)
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
