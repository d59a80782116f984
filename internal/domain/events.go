package domain

import "time"

const (
	// BandDOY names the event band of an encoded series.
	BandDOY = "doy"

	// NoEventCode marks a day that did not qualify as snow-free.
	NoEventCode = 9999

	// DefaultCoverThreshold is the snow-free cover percentage.
	DefaultCoverThreshold = 5
)

// DayOfYear returns the 1-based calendar-day offset of d from start.
func DayOfYear(start, d time.Time) int {
	s := civilDay(start)
	e := civilDay(d)
	return int(e.Sub(s).Hours()/24) + 1
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EncodeDay converts one fused cover raster into an event raster: cells at
// or below threshold hold doy, every other cell holds NoEventCode and is
// masked. Cells without an observation stay masked.
func EncodeDay(cover Raster, doy int, threshold float64) Raster {
	snowFree := cover.LessEqual(threshold)
	events := Constant(cover.Grid(), BandDOY, NoEventCode).Where(snowFree, float64(doy))
	return events.UpdateMask(snowFree)
}

// EncodeEvents encodes every day of a fused series relative to start.
func EncodeEvents(fused Series, start time.Time, threshold float64) Series {
	out := make(Series, len(fused))
	for i, f := range fused {
		out[i] = Frame{Time: f.Time, Raster: EncodeDay(f.Raster, DayOfYear(start, f.Time), threshold)}
	}
	return out
}
