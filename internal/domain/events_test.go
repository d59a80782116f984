package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOfYear(t *testing.T) {
	start := time.Date(2012, time.January, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, DayOfYear(start, start))
	assert.Equal(t, 32, DayOfYear(start, time.Date(2012, time.February, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 366, DayOfYear(start, time.Date(2012, time.December, 31, 0, 0, 0, 0, time.UTC)), "leap year")
	assert.Equal(t, 2, DayOfYear(start, time.Date(2012, time.January, 2, 23, 59, 0, 0, time.UTC)), "time of day ignored")

	late := time.Date(2012, time.January, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DayOfYear(late, late), "counted from the first acquisition, not January 1")
}

func TestEncodeDay(t *testing.T) {
	cover := rasterOf(t, quadGrid, []float64{0, 5, 6, 3}, []bool{true, true, true, false})

	got := EncodeDay(cover, 17, DefaultCoverThreshold)

	assert.Equal(t, BandDOY, got.Name())
	assert.Equal(t, []bool{true, true, false, false}, got.Valid())
	assert.Equal(t, []float64{17, 17, NoEventCode, NoEventCode}, got.Values())
}

func TestEncodeEvents(t *testing.T) {
	fused := dailySeries(t, 2015, 4, func(d int) (float64, bool) {
		return []float64{50, 4, 90, 5}[d-1], true
	})
	start, _ := fused.Start()

	events := EncodeEvents(fused, start, DefaultCoverThreshold)
	require.Len(t, events, 4)

	var doys []float64
	for _, f := range events {
		if v, ok := f.Raster.Cell(0); ok {
			doys = append(doys, v)
		}
	}
	assert.Equal(t, []float64{2, 4}, doys)
}

func TestEncodeEvents_Deterministic(t *testing.T) {
	fused := dailySeries(t, 2015, 30, func(d int) (float64, bool) {
		return float64((d * 7) % 11), d%4 != 0
	})
	start, _ := fused.Start()

	first := EncodeEvents(fused, start, DefaultCoverThreshold)
	second := EncodeEvents(fused, start, DefaultCoverThreshold)

	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Time.Equal(second[i].Time))
		assert.True(t, first[i].Raster.Equivalent(second[i].Raster), "day %d", i+1)
	}
}
