// Package domain models daily snow-cover rasters and derives yearly snow
// phenology metrics from them.
//
// # Data Source
//
// Daily snow cover comes from two independent optical sensors observing the
// same surface on the same grid, typically the MODIS Terra (MOD10A1) and Aqua
// (MYD10A1) snow products. Both are queried through a [Catalog] for one
// calendar year at a time and joined by exact acquisition date.
//
// # Cover Conventions
//
// Cell values are snow-cover percentages:
//
//	0–100  valid observation (0 = confirmed snow-free)
//	>100   product flag (cloud, night, fill, water, ...) -> masked, see [MaskFlags]
//
// Both sensors miss snow far more often than they invent it, so the daily
// fused value is the larger of the two readings. A literal 0 is ambiguous in
// some products (it can mean "snow-free" or "nothing recorded"), so readings
// of 0 are carried under an internal code while fusing and restored after;
// see [FuseDay].
//
// # Day of Year
//
// Days are numbered from the first fused acquisition of the year:
//
//	doy(d) = days(start, d) + 1
//
// A day qualifies as snow-free when cover <= threshold (5 by default).
// Non-qualifying cells carry [NoEventCode] and are masked.
//
// Yearly summary per cell:
//
//	melt = min(doy of qualifying days)   first snow-free day
//	acc  = max(doy of qualifying days)   last snow-free day before buildup
//
// Cells without a qualifying day take the no-event sentinel (366) in both.
//
// Melt and accumulation labels assume a northern-hemisphere calendar. South
// of the equator the winter straddles the year boundary and the two labels
// swap meaning; no correction is applied.
//
// # Multi-Year Metrics
//
//	snowFree = acc - melt                   per year
//	median   = median(snowFree over years)  per cell
//	mask     = median < ceiling (306) AND land
//	trend    = OLS(melt ~ year)             slope, intercept per cell
package domain
