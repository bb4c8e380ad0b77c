package notify

// Event types used across the scoring and trading services. The Notifier's
// allowed-events filter matches against these values.
const (
	EventTradeExecuted   = "trade_executed"
	EventBatchComplete   = "batch_complete"
	EventDrawdownAlert   = "drawdown_alert"
	EventSignalStale     = "signal_stale"
	EventRunFailed       = "run_failed"
	EventArchiveComplete = "archive_complete"
)
