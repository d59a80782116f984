package domain

import "fmt"

// YearRaster is one stack entry tagged with its year.
type YearRaster struct {
	Year   int
	Raster Raster
}

// YearStack is a year-ordered list of rasters sharing one tag.
type YearStack struct {
	tag     string
	entries []YearRaster
}

// NewYearStack builds a stack from entries already in ascending year order.
func NewYearStack(tag string, entries ...YearRaster) YearStack {
	return YearStack{tag: tag, entries: append([]YearRaster(nil), entries...)}
}

func (s YearStack) Tag() string { return s.tag }
func (s YearStack) Len() int    { return len(s.entries) }

// Entries returns a copy of the stack entries.
func (s YearStack) Entries() []YearRaster {
	return append([]YearRaster(nil), s.entries...)
}

// Years lists the stack years in order.
func (s YearStack) Years() []int {
	years := make([]int, len(s.entries))
	for i, e := range s.entries {
		years[i] = e.Year
	}
	return years
}

// with returns a new stack with e appended; the receiver is left untouched.
func (s YearStack) with(e YearRaster) YearStack {
	entries := make([]YearRaster, len(s.entries), len(s.entries)+1)
	copy(entries, s.entries)
	return YearStack{tag: s.tag, entries: append(entries, e)}
}

// Accumulator folds yearly summaries into the melt and accumulation stacks.
// It is a value: Add returns the next accumulator and never mutates the receiver.
type Accumulator struct {
	grid Grid
	melt YearStack
	acc  YearStack
}

func NewAccumulator() Accumulator {
	return Accumulator{
		melt: YearStack{tag: TagMelt},
		acc:  YearStack{tag: TagAcc},
	}
}

// Add appends one year to both stacks. Years must be strictly ascending and
// share the grid of the first year.
func (a Accumulator) Add(s YearSummary) (Accumulator, error) {
	if n := a.melt.Len(); n > 0 {
		last := a.melt.entries[n-1].Year
		if s.Year <= last {
			return a, fmt.Errorf("accumulate %d after %d: %w", s.Year, last, ErrYearOrder)
		}
		if err := CheckGrid("accumulate", a.grid, s.Melt.Grid()); err != nil {
			return a, err
		}
	}
	if err := CheckGrid("accumulate", s.Melt.Grid(), s.Acc.Grid()); err != nil {
		return a, err
	}

	return Accumulator{
		grid: s.Melt.Grid(),
		melt: a.melt.with(YearRaster{Year: s.Year, Raster: s.Melt.Rename(TagMelt)}),
		acc:  a.acc.with(YearRaster{Year: s.Year, Raster: s.Acc.Rename(TagAcc)}),
	}, nil
}

func (a Accumulator) Grid() Grid      { return a.grid }
func (a Accumulator) Len() int        { return a.melt.Len() }
func (a Accumulator) Melt() YearStack { return a.melt }
func (a Accumulator) Acc() YearStack  { return a.acc }
