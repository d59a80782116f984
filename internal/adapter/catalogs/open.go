// Package catalogs builds the configured catalog and land mask adapters.
package catalogs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/snow-phenology/internal/adapter/catalogapi"
	"github.com/couchcryptid/snow-phenology/internal/adapter/geotiff"
	"github.com/couchcryptid/snow-phenology/internal/adapter/sqlite"
	"github.com/couchcryptid/snow-phenology/internal/config"
	"github.com/couchcryptid/snow-phenology/internal/domain"
	"github.com/couchcryptid/snow-phenology/internal/observability"
)

// Open returns the catalog selected by CATALOG_DRIVER, wrapped in an LRU
// cache when CATALOG_CACHE_SIZE is positive. The returned close function
// releases driver resources and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (domain.Catalog, func() error, error) {
	var (
		catalog domain.Catalog
		closeFn = func() error { return nil }
	)

	switch cfg.CatalogDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.CatalogDSN)
		if err != nil {
			return nil, nil, err
		}
		catalog, closeFn = db, db.Close
		logger.Info("sqlite catalog opened", "dsn", cfg.CatalogDSN)
	case config.DriverTIFF:
		catalog = geotiff.NewDirCatalog(cfg.CatalogDir, geotiff.DefaultGeoref)
		logger.Info("tiff catalog opened", "dir", cfg.CatalogDir)
	case config.DriverHTTP:
		catalog = catalogapi.NewClient(cfg.CatalogURL, cfg.CatalogTimeout, logger)
		logger.Info("http catalog configured", "url", cfg.CatalogURL, "timeout", cfg.CatalogTimeout)
	default:
		return nil, nil, fmt.Errorf("unknown catalog driver %q", cfg.CatalogDriver)
	}

	if cfg.CatalogCacheSize > 0 {
		catalog = catalogapi.NewCachedCatalog(catalog, cfg.CatalogCacheSize, metrics)
		logger.Info("catalog cache enabled", "cache_size", cfg.CatalogCacheSize)
	}
	return catalog, closeFn, nil
}

// LandMask returns the mask file source when LANDMASK_PATH is set and treats
// every cell as land otherwise.
func LandMask(cfg *config.Config) domain.MaskSource {
	if cfg.LandMaskPath == "" {
		return domain.AllLand{}
	}
	return geotiff.NewMaskFile(cfg.LandMaskPath)
}
