// Package geotiff reads daily cover rasters and the land mask from
// single-band grayscale TIFF files laid out as
// <root>/<dataset>/<band>/YYYY-MM-DD.tif.
package geotiff

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/image/tiff"

	"github.com/couchcryptid/snow-phenology/internal/domain"
)

const (
	dayLayout = "2006-01-02"
	ext       = ".tif"

	// noData is written for masked cells.
	noData = 255
)

// Georef places image pixels on the ground. TIFF files carry only the pixel
// dimensions, so origin and cell size come from configuration.
type Georef struct {
	OriginX  float64
	OriginY  float64
	CellSize float64
}

// DefaultGeoref is a 500 m grid anchored at the origin.
var DefaultGeoref = Georef{CellSize: 500}

// Grid returns the grid of a w by h image.
func (g Georef) Grid(w, h int) domain.Grid {
	return domain.Grid{Width: w, Height: h, OriginX: g.OriginX, OriginY: g.OriginY, CellSize: g.CellSize}
}

// DirCatalog serves a directory tree of daily TIFF files as a domain.Catalog.
type DirCatalog struct {
	root   string
	georef Georef
}

// NewDirCatalog creates a catalog rooted at root.
func NewDirCatalog(root string, georef Georef) *DirCatalog {
	return &DirCatalog{root: root, georef: georef}
}

// Path returns the file holding one dataset band and day.
func (c *DirCatalog) Path(dataset, band string, day time.Time) string {
	return filepath.Join(c.root, filepath.FromSlash(dataset), band, day.UTC().Format(dayLayout)+ext)
}

// Query reads every file of dataset band whose day falls in [start, end).
// A missing directory yields an empty series.
func (c *DirCatalog) Query(ctx context.Context, dataset, band string, start, end time.Time) (domain.Series, error) {
	dir := filepath.Join(c.root, filepath.FromSlash(dataset), band)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var series domain.Series
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		day, err := time.Parse(dayLayout, strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil {
			continue
		}
		if day.Before(start) || !day.Before(end) {
			continue
		}

		r, err := c.read(filepath.Join(dir, name), band)
		if err != nil {
			return nil, err
		}
		series = append(series, domain.Frame{Time: day, Raster: r})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	return series, nil
}

func (c *DirCatalog) read(path, band string) (domain.Raster, error) {
	img, err := decodeFile(path)
	if err != nil {
		return domain.Raster{}, err
	}
	b := img.Bounds()
	grid := c.georef.Grid(b.Dx(), b.Dy())

	values, err := pixels(img)
	if err != nil {
		return domain.Raster{}, fmt.Errorf("%s: %w", path, err)
	}
	r, err := domain.NewRaster(grid, band, values, nil)
	if err != nil {
		return domain.Raster{}, err
	}
	return domain.MaskFlags(r), nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// pixels returns the raw gray levels of img in row-major order.
func pixels(img image.Image) ([]float64, error) {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	switch g := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out = append(out, float64(g.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out = append(out, float64(g.Gray16At(x, y).Y))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported image type %T, want single-band gray", img)
	}
	return out, nil
}

// WriteCover encodes r as an 8-bit grayscale TIFF. Masked cells are written
// as 255 and valid values are clamped to [0, 100].
func WriteCover(path string, r domain.Raster) error {
	grid := r.Grid()
	img := image.NewGray(image.Rect(0, 0, grid.Width, grid.Height))
	for i := 0; i < grid.Cells(); i++ {
		v, ok := r.Cell(i)
		px := uint8(noData)
		if ok {
			px = uint8(min(max(v, 0), domain.MaxCover))
		}
		img.Pix[i] = px
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
