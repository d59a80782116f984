package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseDay(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Raster
		want    float64
		wantObs bool
	}{
		{name: "larger reading wins", a: cell(t, 30, true), b: cell(t, 80, true), want: 80, wantObs: true},
		{name: "valid zero beats gap", a: cell(t, 0, true), b: cell(t, 0, false), want: 0, wantObs: true},
		{name: "gap then valid zero", a: cell(t, 0, false), b: cell(t, 0, true), want: 0, wantObs: true},
		{name: "both zero", a: cell(t, 0, true), b: cell(t, 0, true), want: 0, wantObs: true},
		{name: "positive beats zero", a: cell(t, 0, true), b: cell(t, 3, true), want: 3, wantObs: true},
		{name: "single sensor reading", a: cell(t, 0, false), b: cell(t, 55, true), want: 55, wantObs: true},
		{name: "no observation", a: cell(t, 0, false), b: cell(t, 12, false), wantObs: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FuseDay(tc.a, tc.b)
			assert.Equal(t, BandCover, got.Name())
			v, ok := got.Cell(0)
			assert.Equal(t, tc.wantObs, ok)
			if tc.wantObs {
				assert.Equal(t, tc.want, v)
			}
		})
	}
}

func TestFuseDay_IsMaxOfValidReadings(t *testing.T) {
	readings := []struct {
		v  float64
		ok bool
	}{{0, true}, {0, false}, {3, true}, {5, true}, {6, false}, {100, true}}

	for _, ra := range readings {
		for _, rb := range readings {
			got := FuseDay(cell(t, ra.v, ra.ok), cell(t, rb.v, rb.ok))
			v, ok := got.Cell(0)

			switch {
			case ra.ok && rb.ok:
				require.True(t, ok)
				assert.Equal(t, max(ra.v, rb.v), v)
			case ra.ok:
				require.True(t, ok)
				assert.Equal(t, ra.v, v)
			case rb.ok:
				require.True(t, ok)
				assert.Equal(t, rb.v, v)
			default:
				assert.False(t, ok)
			}
		}
	}
}

func TestFuse_InnerJoinOnDate(t *testing.T) {
	a := NewSeries(
		Frame{Time: day(2010, 1), Raster: cell(t, 10, true)},
		Frame{Time: day(2010, 2), Raster: cell(t, 20, true)},
		Frame{Time: day(2010, 4), Raster: cell(t, 40, true)},
	)
	b := NewSeries(
		Frame{Time: day(2010, 2), Raster: cell(t, 25, true)},
		Frame{Time: day(2010, 3), Raster: cell(t, 35, true)},
		Frame{Time: day(2010, 4), Raster: cell(t, 0, true)},
	)

	fused, dropped := Fuse(a, b)
	require.Len(t, fused, 2)
	assert.Equal(t, 2, dropped, "day 1 from A and day 3 from B have no partner")

	assert.Equal(t, day(2010, 2), fused[0].Time)
	v, _ := fused[0].Raster.Cell(0)
	assert.Equal(t, 25.0, v)

	assert.Equal(t, day(2010, 4), fused[1].Time)
	v, _ = fused[1].Raster.Cell(0)
	assert.Equal(t, 40.0, v)
}

func TestNewSeries_SortsWithoutMutatingInput(t *testing.T) {
	frames := []Frame{
		{Time: day(2010, 3), Raster: cell(t, 3, true)},
		{Time: day(2010, 1), Raster: cell(t, 1, true)},
	}
	s := NewSeries(frames...)

	start, ok := s.Start()
	require.True(t, ok)
	assert.Equal(t, day(2010, 1), start)
	assert.Equal(t, day(2010, 3), frames[0].Time)

	_, ok = Series(nil).Start()
	assert.False(t, ok)
}

func TestJoinByTime_ExactMatchOnly(t *testing.T) {
	a := NewSeries(Frame{Time: day(2010, 1), Raster: cell(t, 1, true)})
	b := NewSeries(Frame{Time: day(2010, 1).Add(time.Hour), Raster: cell(t, 1, true)})

	pairs, dropped := JoinByTime(a, b)
	assert.Empty(t, pairs)
	assert.Equal(t, 2, dropped)
}
