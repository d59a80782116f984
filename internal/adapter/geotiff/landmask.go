package geotiff

import (
	"context"

	"github.com/couchcryptid/snow-phenology/internal/domain"
)

// MaskFile loads the land/water mask from a grayscale TIFF. Non-zero pixels
// are land.
type MaskFile struct {
	path string
}

// NewMaskFile creates a mask source reading path.
func NewMaskFile(path string) *MaskFile {
	return &MaskFile{path: path}
}

// LandMask decodes the file and places it on grid. The image dimensions must
// match the grid; georeferencing is taken from the grid.
func (m *MaskFile) LandMask(ctx context.Context, grid domain.Grid) (domain.Raster, error) {
	if err := ctx.Err(); err != nil {
		return domain.Raster{}, err
	}
	img, err := decodeFile(m.path)
	if err != nil {
		return domain.Raster{}, err
	}

	b := img.Bounds()
	got := grid
	got.Width, got.Height = b.Dx(), b.Dy()
	if err := domain.CheckGrid("land mask "+m.path, grid, got); err != nil {
		return domain.Raster{}, err
	}

	values, err := pixels(img)
	if err != nil {
		return domain.Raster{}, err
	}
	for i, v := range values {
		if v != 0 {
			values[i] = 1
		}
	}
	return domain.NewRaster(grid, "land", values, nil)
}
