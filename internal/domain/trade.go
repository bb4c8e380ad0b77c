package domain

import "time"

// TradeStatus tracks whether a trade's exposure is still open.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// Trade is an append-only record of one executed paper trade. Buys are
// written with status open; the full-liquidation sell that follows is the
// only mechanism that closes exposure for a token. There is no per-lot
// linkage between a sell and the buy that opened the position; exposure is
// tracked at the Position level.
type Trade struct {
	ID             string
	SignalID       string
	TokenID        string
	Action         Action
	Quantity       float64
	Price          float64
	TotalCost      float64 // buys only
	TotalProceeds  float64 // sells only
	PnL            float64 // sells only
	PnLPct         float64 // sells only
	CompositeScore float64
	Status         TradeStatus
	Timestamp      time.Time
}
