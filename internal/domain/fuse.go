package domain

// BandCover names the fused cover band.
const BandCover = "cover"

// Internal codes used only while two readings are combined. Both sit below the
// valid cover range so that any real reading wins the maximum, and
// zeroCoverCode sits above noObservationFill so a confirmed 0 beats a gap.
const (
	zeroCoverCode     = -10
	noObservationFill = -20
)

// recodeZero carries a valid 0 reading under zeroCoverCode.
// Pre: v is a valid cover reading. Post: result != 0.
func recodeZero(v float64) float64 {
	if v == 0 {
		return zeroCoverCode
	}
	return v
}

// restoreZero undoes recodeZero.
// Pre: v is a fused reading. Post: result is a cover value in the sensor range.
func restoreZero(v float64) float64 {
	if v == zeroCoverCode {
		return 0
	}
	return v
}

// observed yields 1 unless the cell only holds the no-observation fill.
func observed(v float64) float64 {
	return boolValue(v != noObservationFill)
}

// FuseDay merges two same-day cover rasters. A cell takes the larger of the
// two valid readings and is masked when neither sensor observed it.
func FuseDay(a, b Raster) Raster {
	ra := a.Map(recodeZero).Unmask(noObservationFill)
	rb := b.Map(recodeZero).Unmask(noObservationFill)

	fused := ra.Max(rb)
	fused = fused.UpdateMask(fused.Map(observed))
	return fused.Map(restoreZero).Rename(BandCover)
}

// Fuse joins sensor A and sensor B by acquisition time and fuses every
// matched day. It returns the fused series and the number of unmatched frames.
func Fuse(a, b Series) (Series, int) {
	pairs, dropped := JoinByTime(a, b)
	fused := make(Series, len(pairs))
	for i, p := range pairs {
		fused[i] = Frame{Time: p.Time, Raster: FuseDay(p.A, p.B)}
	}
	return fused, dropped
}
