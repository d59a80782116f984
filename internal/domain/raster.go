package domain

import (
	"errors"
	"fmt"
	"math"
)

// Grid is the spatial geometry shared by every raster of a run.
type Grid struct {
	Width    int     `json:"width" msgpack:"width"`
	Height   int     `json:"height" msgpack:"height"`
	OriginX  float64 `json:"origin_x" msgpack:"origin_x"`
	OriginY  float64 `json:"origin_y" msgpack:"origin_y"`
	CellSize float64 `json:"cell_size" msgpack:"cell_size"`
}

// Cells returns the number of cells in the grid.
func (g Grid) Cells() int { return g.Width * g.Height }

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d@(%g,%g)/%g", g.Width, g.Height, g.OriginX, g.OriginY, g.CellSize)
}

// CheckGrid returns a *GridMismatchError when got differs from want.
func CheckGrid(op string, want, got Grid) error {
	if want != got {
		return &GridMismatchError{Op: op, Want: want, Got: got}
	}
	return nil
}

// mustMatch panics on mismatched operands. Cell-wise operations require the
// caller to have validated geometry at the boundary.
func mustMatch(op string, a, b Grid) {
	if err := CheckGrid(op, a, b); err != nil {
		panic(err)
	}
}

// Raster is a single named band over a Grid. Each cell holds a value and a
// validity bit. Rasters are immutable: every operation allocates a new one.
type Raster struct {
	grid  Grid
	name  string
	value []float64
	valid []bool
}

// NewRaster copies values and validity into a raster. A nil valid slice marks
// every cell valid.
func NewRaster(grid Grid, name string, values []float64, valid []bool) (Raster, error) {
	if grid.Width <= 0 || grid.Height <= 0 {
		return Raster{}, fmt.Errorf("new raster %q: invalid grid %s", name, grid)
	}
	if len(values) != grid.Cells() {
		return Raster{}, fmt.Errorf("new raster %q: %d values for %d cells", name, len(values), grid.Cells())
	}
	if valid != nil && len(valid) != grid.Cells() {
		return Raster{}, errors.New("new raster " + name + ": validity length does not match grid")
	}

	r := Raster{
		grid:  grid,
		name:  name,
		value: append([]float64(nil), values...),
		valid: make([]bool, grid.Cells()),
	}
	if valid == nil {
		for i := range r.valid {
			r.valid[i] = true
		}
	} else {
		copy(r.valid, valid)
	}
	return r, nil
}

// Constant returns a fully valid raster holding v in every cell.
func Constant(grid Grid, name string, v float64) Raster {
	r := blank(grid, name)
	for i := range r.value {
		r.value[i] = v
		r.valid[i] = true
	}
	return r
}

// Masked returns a raster with every cell masked.
func Masked(grid Grid, name string) Raster {
	return blank(grid, name)
}

func blank(grid Grid, name string) Raster {
	return Raster{
		grid:  grid,
		name:  name,
		value: make([]float64, grid.Cells()),
		valid: make([]bool, grid.Cells()),
	}
}

func (r Raster) Grid() Grid   { return r.grid }
func (r Raster) Name() string { return r.name }

// Rename returns the same cells under a different band name.
func (r Raster) Rename(name string) Raster {
	r.name = name
	return r
}

// At returns the value at column x, row y and whether it is valid.
func (r Raster) At(x, y int) (float64, bool) {
	return r.Cell(y*r.grid.Width + x)
}

// Cell returns the value at flat index i and whether it is valid.
func (r Raster) Cell(i int) (float64, bool) {
	return r.value[i], r.valid[i]
}

// Values returns a copy of the cell values, masked cells included.
func (r Raster) Values() []float64 { return append([]float64(nil), r.value...) }

// Valid returns a copy of the validity bits.
func (r Raster) Valid() []bool { return append([]bool(nil), r.valid...) }

// ValidCount returns the number of unmasked cells.
func (r Raster) ValidCount() int {
	n := 0
	for _, ok := range r.valid {
		if ok {
			n++
		}
	}
	return n
}

// Equivalent reports whether both rasters share a grid, a mask, and the same
// values in every valid cell. NaN equals NaN.
func (r Raster) Equivalent(o Raster) bool {
	if r.grid != o.grid {
		return false
	}
	for i := range r.value {
		if r.valid[i] != o.valid[i] {
			return false
		}
		if !r.valid[i] {
			continue
		}
		a, b := r.value[i], o.value[i]
		if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
			return false
		}
	}
	return true
}

// Map applies fn to every valid cell. Masked cells stay masked.
func (r Raster) Map(fn func(v float64) float64) Raster {
	out := blank(r.grid, r.name)
	for i, v := range r.value {
		if r.valid[i] {
			out.value[i] = fn(v)
			out.valid[i] = true
		}
	}
	return out
}

// zip combines two rasters cell-wise; a cell is masked if either operand is.
func (r Raster) zip(op string, o Raster, fn func(a, b float64) float64) Raster {
	mustMatch(op, r.grid, o.grid)
	out := blank(r.grid, r.name)
	for i := range r.value {
		if r.valid[i] && o.valid[i] {
			out.value[i] = fn(r.value[i], o.value[i])
			out.valid[i] = true
		}
	}
	return out
}

func (r Raster) Max(o Raster) Raster {
	return r.zip("max", o, math.Max)
}

func (r Raster) Subtract(o Raster) Raster {
	return r.zip("subtract", o, func(a, b float64) float64 { return a - b })
}

func (r Raster) Multiply(o Raster) Raster {
	return r.zip("multiply", o, func(a, b float64) float64 { return a * b })
}

// And yields 1 where both operands are non-zero, 0 otherwise.
func (r Raster) And(o Raster) Raster {
	return r.zip("and", o, func(a, b float64) float64 { return boolValue(a != 0 && b != 0) })
}

// LessThan yields 1 where the cell is below c, 0 otherwise.
func (r Raster) LessThan(c float64) Raster {
	return r.Map(func(v float64) float64 { return boolValue(v < c) })
}

// LessEqual yields 1 where the cell is at or below c, 0 otherwise.
func (r Raster) LessEqual(c float64) Raster {
	return r.Map(func(v float64) float64 { return boolValue(v <= c) })
}

// Equal yields 1 where the cell equals c, 0 otherwise.
func (r Raster) Equal(c float64) Raster {
	return r.Map(func(v float64) float64 { return boolValue(v == c) })
}

// Unmask returns a fully valid raster with masked cells set to fill.
func (r Raster) Unmask(fill float64) Raster {
	out := blank(r.grid, r.name)
	for i, v := range r.value {
		out.valid[i] = true
		if r.valid[i] {
			out.value[i] = v
		} else {
			out.value[i] = fill
		}
	}
	return out
}

// UpdateMask keeps a cell valid only where it is valid in r and mask holds a
// valid non-zero value.
func (r Raster) UpdateMask(mask Raster) Raster {
	mustMatch("update mask", r.grid, mask.grid)
	out := blank(r.grid, r.name)
	copy(out.value, r.value)
	for i := range r.valid {
		out.valid[i] = r.valid[i] && mask.valid[i] && mask.value[i] != 0
	}
	return out
}

// Where replaces the value of r with v where cond is valid and non-zero.
// The validity of r is preserved.
func (r Raster) Where(cond Raster, v float64) Raster {
	mustMatch("where", r.grid, cond.grid)
	out := blank(r.grid, r.name)
	copy(out.value, r.value)
	copy(out.valid, r.valid)
	for i := range r.value {
		if cond.valid[i] && cond.value[i] != 0 {
			out.value[i] = v
		}
	}
	return out
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Image is an ordered set of named bands over one grid.
type Image struct {
	grid  Grid
	bands []Raster
}

// NewImage groups bands that share a grid under unique names.
func NewImage(bands ...Raster) (Image, error) {
	if len(bands) == 0 {
		return Image{}, errors.New("new image: no bands")
	}
	seen := make(map[string]bool, len(bands))
	for _, b := range bands {
		if err := CheckGrid("new image", bands[0].grid, b.grid); err != nil {
			return Image{}, err
		}
		if seen[b.name] {
			return Image{}, fmt.Errorf("new image: duplicate band %q", b.name)
		}
		seen[b.name] = true
	}
	return Image{grid: bands[0].grid, bands: append([]Raster(nil), bands...)}, nil
}

func (im Image) Grid() Grid { return im.grid }

// Select returns the band with the given name.
func (im Image) Select(name string) (Raster, bool) {
	for _, b := range im.bands {
		if b.name == name {
			return b, true
		}
	}
	return Raster{}, false
}

// BandNames lists the bands in order.
func (im Image) BandNames() []string {
	names := make([]string, len(im.bands))
	for i, b := range im.bands {
		names[i] = b.name
	}
	return names
}

// UpdateMask applies mask to every band.
func (im Image) UpdateMask(mask Raster) Image {
	out := Image{grid: im.grid, bands: make([]Raster, len(im.bands))}
	for i, b := range im.bands {
		out.bands[i] = b.UpdateMask(mask)
	}
	return out
}
