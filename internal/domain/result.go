package domain

import "time"

// Params are the numeric constants of a run.
type Params struct {
	CoverThreshold      float64
	SeasonLengthCeiling float64
	NoEventSentinel     float64
}

// DefaultParams returns the standard snow phenology constants.
func DefaultParams() Params {
	return Params{
		CoverThreshold:      DefaultCoverThreshold,
		SeasonLengthCeiling: DefaultSeasonLengthCeiling,
		NoEventSentinel:     DefaultNoEventSentinel,
	}
}

// YearDiagnostic records what happened to one year of the run.
type YearDiagnostic struct {
	Year        int    `json:"year" msgpack:"year"`
	SensorADays int    `json:"sensor_a_days" msgpack:"sensor_a_days"`
	SensorBDays int    `json:"sensor_b_days" msgpack:"sensor_b_days"`
	FusedDays   int    `json:"fused_days" msgpack:"fused_days"`
	DroppedDays int    `json:"dropped_days" msgpack:"dropped_days"`
	Skipped     bool   `json:"skipped" msgpack:"skipped"`
	Reason      string `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

// Derived holds the multi-year outputs computed from a full accumulator.
type Derived struct {
	SnowFree     YearStack
	Median       Raster
	SeasonMask   Raster
	Validity     Raster
	Trend        Image // masked by Validity
	RawTrend     Image
	Degenerate   int
	DroppedYears int
}

// Derive computes season length, its multi-year median and mask, the melt
// trend, and applies the combined validity mask to the trend.
func Derive(acc Accumulator, land Raster, ceiling float64) (Derived, error) {
	if acc.Len() == 0 {
		return Derived{}, ErrNoYears
	}
	grid := acc.Grid()
	if err := CheckGrid("land mask", grid, land.Grid()); err != nil {
		return Derived{}, err
	}

	snowFree, dropped := SeasonLength(acc.Melt(), acc.Acc())
	median := Median(snowFree, grid)
	seasonMask := SeasonMask(median, ceiling)
	trend := FitTrend(acc.Melt(), grid)
	validity := ValidityMask(seasonMask, land)

	return Derived{
		SnowFree:     snowFree,
		Median:       median,
		SeasonMask:   seasonMask,
		Validity:     validity,
		Trend:        ApplyValidity(trend.Image, validity),
		RawTrend:     trend.Image,
		Degenerate:   trend.Degenerate,
		DroppedYears: dropped,
	}, nil
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID       string
	StartYear   int
	EndYear     int
	Grid        Grid
	Years       []int
	Diagnostics []YearDiagnostic
	Derived     Derived
	ProcessedAt time.Time
}

// Skipped returns the diagnostics of the years left out of the stacks.
func (r Result) Skipped() []YearDiagnostic {
	var out []YearDiagnostic
	for _, d := range r.Diagnostics {
		if d.Skipped {
			out = append(out, d)
		}
	}
	return out
}
