package service

import "math"

// PositionSize computes the capital to allocate for an approved buy.
//
// The base budget is availableCash × maxPositionSize, scaled by a confidence
// multiplier of min(compositeScore / 0.5, 2.0), then re-capped at the base
// budget, with the minimum trade size applied last. The ordering is load
// bearing: for degenerate inputs the floor can exceed the cap, and that is
// the accepted behavior (the scaling step can therefore only shrink the
// allocation toward the base, never grow it past the cap).
func PositionSize(availableCash, compositeScore, maxPositionSize, minSize float64) float64 {
	base := availableCash * maxPositionSize

	multiplier := math.Min(compositeScore/0.5, 2.0)
	size := base * multiplier

	if size > base {
		size = base
	}
	if size < minSize {
		size = minSize
	}
	return size
}
