package domain

import "time"

// Position is the current holding for one token. Quantity == 0 means the
// entry is logically closed and carries no cost basis.
type Position struct {
	TokenID     string
	Quantity    float64
	AvgCost     float64
	LastUpdated time.Time
}

// Open reports whether the position carries exposure.
func (p Position) Open() bool {
	return p.Quantity > 0
}

// CostBasis returns quantity × average cost for the position.
func (p Position) CostBasis() float64 {
	return p.Quantity * p.AvgCost
}

// Portfolio maps token IDs to their current positions.
type Portfolio map[string]Position

// CostBasis returns the total capital tied up across all positions.
func (pf Portfolio) CostBasis() float64 {
	var total float64
	for _, p := range pf {
		total += p.CostBasis()
	}
	return total
}

// AvailableCash derives the cash left for new buys: initial cash minus the
// cost basis of every current position, floored at zero. Cash is never
// persisted; it is recomputed at the start of each execution batch.
func (pf Portfolio) AvailableCash(initialCash float64) float64 {
	cash := initialCash - pf.CostBasis()
	if cash < 0 {
		return 0
	}
	return cash
}
