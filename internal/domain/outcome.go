package domain

// SkipReason is a structured code explaining why a candidate trade was not
// executed. Business rejections and contained infrastructure failures are
// reported through these values, never through raised errors, so the batch
// loop's continue-on-failure semantics stay explicit.
type SkipReason string

const (
	SkipExistingOpenTrade        SkipReason = "existing_open_trade"
	SkipInsufficientCash         SkipReason = "insufficient_cash"
	SkipMaxAllocationReached     SkipReason = "max_allocation_reached"
	SkipWouldExceedMaxAllocation SkipReason = "would_exceed_max_allocation"
	SkipInsufficientConfidence   SkipReason = "insufficient_confidence"
	SkipNoPositionToSell         SkipReason = "no_position_to_sell"
	SkipNoPriceData              SkipReason = "no_price_data"
	SkipInvalidAction            SkipReason = "invalid_action"
	SkipExecutionError           SkipReason = "execution_error"

	// ReasonPassedAllChecks is the risk gate's allowed outcome.
	ReasonPassedAllChecks SkipReason = "passed_all_checks"
)

// Outcome is the tagged result of processing a single signal: either an
// executed trade or a skip with its reason.
type Outcome struct {
	TokenID    string
	Executed   bool
	Trade      Trade
	SkipReason SkipReason
}

// ExecutedOutcome wraps a written trade.
func ExecutedOutcome(t Trade) Outcome {
	return Outcome{TokenID: t.TokenID, Executed: true, Trade: t}
}

// SkippedOutcome records why a signal produced no trade.
func SkippedOutcome(tokenID string, reason SkipReason) Outcome {
	return Outcome{TokenID: tokenID, SkipReason: reason}
}

// BatchResult summarizes one execution batch: counts plus a histogram of
// skip reasons, enough for operational logging and test assertions.
type BatchResult struct {
	SignalsProcessed int
	TradesExecuted   int
	Skipped          map[SkipReason]int
	ExecutedTrades   []Trade
}

// NewBatchResult returns an empty result with an initialized histogram.
func NewBatchResult() BatchResult {
	return BatchResult{Skipped: make(map[SkipReason]int)}
}

// Record folds one outcome into the result.
func (r *BatchResult) Record(out Outcome) {
	if out.Executed {
		r.TradesExecuted++
		r.ExecutedTrades = append(r.ExecutedTrades, out.Trade)
		return
	}
	r.Skipped[out.SkipReason]++
}
