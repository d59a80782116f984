package domain

// MaxCover is the largest valid cover reading. Larger values are product
// flags (cloud, night, fill, water) and never count as observations.
const MaxCover = 100

// MaskFlags masks every cell holding a product flag. Masked cells stay masked.
func MaskFlags(cover Raster) Raster {
	return cover.UpdateMask(cover.LessEqual(MaxCover))
}
