// Package sqlite stores daily cover rasters in a SQLite database and serves
// them as a domain.Catalog.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/snow-phenology/internal/domain"
)

const dayLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS rasters (
	dataset TEXT NOT NULL,
	band    TEXT NOT NULL,
	day     TEXT NOT NULL,
	payload BLOB NOT NULL,
	PRIMARY KEY (dataset, band, day)
);`

// payload is the msgpack form of one raster.
type payload struct {
	Grid   domain.Grid `msgpack:"grid"`
	Values []float64   `msgpack:"values"`
	Valid  []bool      `msgpack:"valid"`
}

// Catalog is a SQLite-backed raster catalog.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at dsn and ensures the schema.
func Open(ctx context.Context, dsn string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating rasters table: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put stores the raster of one dataset band and day, replacing any previous one.
func (c *Catalog) Put(ctx context.Context, dataset, band string, day time.Time, r domain.Raster) error {
	return c.PutSeries(ctx, dataset, band, domain.Series{{Time: day, Raster: r}})
}

// PutSeries stores every frame of s in one transaction.
func (c *Catalog) PutSeries(ctx context.Context, dataset, band string, s domain.Series) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO rasters (dataset, band, day, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range s {
		blob, err := encodeRaster(f.Raster)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encoding raster: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, dataset, band, f.Time.UTC().Format(dayLayout), blob); err != nil {
			tx.Rollback()
			return fmt.Errorf("storing %s/%s %s: %w", dataset, band, f.Time.Format(dayLayout), err)
		}
	}
	return tx.Commit()
}

// Query returns the rasters of dataset band acquired in [start, end), ascending by day.
func (c *Catalog) Query(ctx context.Context, dataset, band string, start, end time.Time) (domain.Series, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT day, payload FROM rasters
		 WHERE dataset = ? AND band = ? AND day >= ? AND day < ?
		 ORDER BY day`,
		dataset, band, start.UTC().Format(dayLayout), end.UTC().Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("querying %s/%s: %w", dataset, band, err)
	}
	defer rows.Close()

	var series domain.Series
	for rows.Next() {
		var day string
		var blob []byte
		if err := rows.Scan(&day, &blob); err != nil {
			return nil, fmt.Errorf("scanning raster row: %w", err)
		}
		f, err := decodeFrame(band, day, blob)
		if err != nil {
			return nil, err
		}
		series = append(series, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rasters: %w", err)
	}
	return series, nil
}

// Datasets lists the distinct (dataset, band) pairs with their day counts.
func (c *Catalog) Datasets(ctx context.Context) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT dataset || '/' || band, COUNT(*) FROM rasters GROUP BY dataset, band`)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func encodeRaster(r domain.Raster) ([]byte, error) {
	return msgpack.Marshal(payload{Grid: r.Grid(), Values: r.Values(), Valid: r.Valid()})
}

func decodeFrame(band, day string, blob []byte) (domain.Frame, error) {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("parsing day %q: %w", day, err)
	}
	var p payload
	if err := msgpack.Unmarshal(blob, &p); err != nil {
		return domain.Frame{}, fmt.Errorf("decoding raster %s: %w", day, err)
	}
	if len(p.Valid) == 0 && len(p.Values) > 0 {
		return domain.Frame{}, errors.New("raster " + day + " has no validity mask")
	}
	r, err := domain.NewRaster(p.Grid, band, p.Values, p.Valid)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("raster %s: %w", day, err)
	}
	return domain.Frame{Time: t, Raster: domain.MaskFlags(r)}, nil
}
