// Package executor runs risk-managed paper-trade batches against the virtual
// portfolio. One batch reads recent qualifying signals, threads an explicit
// cash accumulator through them, and processes each signal to completion:
// a written trade plus a portfolio mutation, or a structured skip reason.
//
// A batch is strictly sequential and non-reentrant. Callers must guarantee a
// single in-flight batch per portfolio (see domain.LockManager); the
// executor itself holds no lock.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/modacrypto/modabot/internal/domain"
	"github.com/modacrypto/modabot/internal/service"
)

// PriceSource supplies the current market price for a token. A non-positive
// price means the price is unavailable.
type PriceSource interface {
	CurrentPrice(ctx context.Context, tokenID string) (float64, error)
}

// Config holds the executor's trading parameters.
type Config struct {
	// InitialCash is the portfolio's starting capital in USD.
	InitialCash float64
	// SignalLookback selects how far back a batch reaches for signals.
	SignalLookback time.Duration
}

// Executor orchestrates paper-trade batches.
type Executor struct {
	signals   domain.SignalStore
	trades    domain.TradeStore
	portfolio domain.PortfolioStore
	adminCfg  domain.AdminConfigStore
	prices    PriceSource
	risk      *service.RiskService
	cfg       Config
	logger    *slog.Logger
}

// New creates an Executor with all required collaborators.
func New(
	signals domain.SignalStore,
	trades domain.TradeStore,
	portfolio domain.PortfolioStore,
	adminCfg domain.AdminConfigStore,
	prices PriceSource,
	risk *service.RiskService,
	cfg Config,
	logger *slog.Logger,
) *Executor {
	if cfg.SignalLookback <= 0 {
		cfg.SignalLookback = 2 * time.Hour
	}
	return &Executor{
		signals:   signals,
		trades:    trades,
		portfolio: portfolio,
		adminCfg:  adminCfg,
		prices:    prices,
		risk:      risk,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "executor")),
	}
}

// ExecuteBatch runs one full paper-trade batch. It reads the admin config and
// portfolio state once, filters recent signals down to the qualifying set,
// and processes them in order. One failing trade never aborts the batch; the
// returned result carries the skip-reason histogram. An error is returned
// only when the batch cannot start at all (invalid config or unreadable
// state).
func (e *Executor) ExecuteBatch(ctx context.Context) (domain.BatchResult, error) {
	result := domain.NewBatchResult()

	cfg, err := e.adminCfg.Get(ctx)
	if err != nil {
		return result, fmt.Errorf("executor: load admin config: %w", err)
	}
	// An invalid config is the configuration owner's defect; refuse the pass
	// instead of renormalizing.
	if err := cfg.Validate(); err != nil {
		return result, fmt.Errorf("executor: %w", err)
	}

	since := time.Now().UTC().Add(-e.cfg.SignalLookback)
	recent, err := e.signals.Recent(ctx, since)
	if err != nil {
		return result, fmt.Errorf("executor: load recent signals: %w", err)
	}

	var qualifying []domain.Signal
	for _, sig := range recent {
		if sig.Qualifies(cfg.MinCompositeScore) {
			qualifying = append(qualifying, sig)
		}
	}
	result.SignalsProcessed = len(qualifying)

	portfolio, err := e.portfolio.All(ctx)
	if err != nil {
		return result, fmt.Errorf("executor: load portfolio: %w", err)
	}
	openTrades, err := e.trades.ListOpen(ctx)
	if err != nil {
		return result, fmt.Errorf("executor: load open trades: %w", err)
	}
	openByToken := make(map[string]bool, len(openTrades))
	for _, t := range openTrades {
		openByToken[t.TokenID] = true
	}

	// Cash is a batch-local accumulator: each approved buy reduces the
	// buying power seen by the remaining signals in this batch.
	cash := portfolio.AvailableCash(e.cfg.InitialCash)

	e.logger.InfoContext(ctx, "starting paper trade batch",
		slog.Int("qualifying_signals", len(qualifying)),
		slog.Float64("available_cash", cash),
	)

	for _, sig := range qualifying {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		out := e.executeOne(ctx, sig, cfg, portfolio, openByToken, cash)
		result.Record(out)

		if out.Executed {
			switch out.Trade.Action {
			case domain.ActionBuy:
				cash -= out.Trade.TotalCost
				if cash < 0 {
					cash = 0
				}
				openByToken[out.TokenID] = true
			case domain.ActionSell:
				// Full exit returns the token to Flat for the rest of the batch.
				delete(openByToken, out.TokenID)
			}
		}
	}

	e.logger.InfoContext(ctx, "paper trade batch completed",
		slog.Int("signals_processed", result.SignalsProcessed),
		slog.Int("trades_executed", result.TradesExecuted),
		slog.Any("skipped", result.Skipped),
	)
	return result, nil
}

// executeOne processes a single signal to a tagged outcome. Infrastructure
// failures are contained here: they surface as execution_error (or
// no_price_data for the price source) and the batch moves on. The portfolio
// map is updated in place so later signals in the batch observe this trade.
func (e *Executor) executeOne(
	ctx context.Context,
	sig domain.Signal,
	cfg domain.AdminConfig,
	portfolio domain.Portfolio,
	openByToken map[string]bool,
	cash float64,
) domain.Outcome {
	log := e.logger.With(
		slog.String("signal_id", sig.ID),
		slog.String("token_id", sig.TokenID),
		slog.String("action", string(sig.Action)),
	)

	switch sig.Action {
	case domain.ActionBuy:
		return e.executeBuy(ctx, sig, cfg, portfolio, openByToken, cash, log)
	case domain.ActionSell:
		return e.executeSell(ctx, sig, portfolio, log)
	default:
		return domain.SkippedOutcome(sig.TokenID, domain.SkipInvalidAction)
	}
}

func (e *Executor) executeBuy(
	ctx context.Context,
	sig domain.Signal,
	cfg domain.AdminConfig,
	portfolio domain.Portfolio,
	openByToken map[string]bool,
	cash float64,
	log *slog.Logger,
) domain.Outcome {
	// A token can hold at most one open trade; second buys are rejected
	// outright regardless of signal strength.
	if openByToken[sig.TokenID] {
		return domain.SkippedOutcome(sig.TokenID, domain.SkipExistingOpenTrade)
	}

	pos := portfolio[sig.TokenID]
	decision := e.risk.EvaluateBuy(sig, cash, pos, cfg)
	if !decision.Allowed {
		log.InfoContext(ctx, "buy rejected by risk gate", slog.String("reason", string(decision.Reason)))
		return domain.SkippedOutcome(sig.TokenID, decision.Reason)
	}

	params := e.risk.Params()
	size := service.PositionSize(cash, sig.CompositeScore, params.MaxPositionSize, params.MinTradeUSD)

	price, err := e.prices.CurrentPrice(ctx, sig.TokenID)
	if err != nil || price <= 0 {
		return domain.SkippedOutcome(sig.TokenID, domain.SkipNoPriceData)
	}

	quantity := size / price
	totalCost := quantity * price

	trade := domain.Trade{
		ID:             uuid.New().String(),
		SignalID:       sig.ID,
		TokenID:        sig.TokenID,
		Action:         domain.ActionBuy,
		Quantity:       quantity,
		Price:          price,
		TotalCost:      totalCost,
		CompositeScore: sig.CompositeScore,
		Status:         domain.TradeStatusOpen,
		Timestamp:      time.Now().UTC(),
	}
	if _, err := e.trades.Add(ctx, trade); err != nil {
		log.ErrorContext(ctx, "trade write failed", slog.String("error", err.Error()))
		return domain.SkippedOutcome(sig.TokenID, domain.SkipExecutionError)
	}

	now := time.Now().UTC()
	if pos.Open() {
		// The open-trade guard should make this unreachable, but a position
		// left behind by a partial write still merges at weighted average
		// cost instead of being clobbered.
		newQty := pos.Quantity + quantity
		pos = domain.Position{
			TokenID:     sig.TokenID,
			Quantity:    newQty,
			AvgCost:     (pos.CostBasis() + totalCost) / newQty,
			LastUpdated: now,
		}
	} else {
		pos = domain.Position{
			TokenID:     sig.TokenID,
			Quantity:    quantity,
			AvgCost:     price,
			LastUpdated: now,
		}
	}
	if err := e.portfolio.Set(ctx, pos); err != nil {
		// The trade record is already written; surface the partial write as
		// an execution error and let the operator reconcile.
		log.ErrorContext(ctx, "portfolio write failed after trade write",
			slog.String("trade_id", trade.ID),
			slog.String("error", err.Error()),
		)
		return domain.SkippedOutcome(sig.TokenID, domain.SkipExecutionError)
	}
	portfolio[sig.TokenID] = pos

	log.InfoContext(ctx, "buy executed",
		slog.Float64("quantity", quantity),
		slog.Float64("price", price),
		slog.Float64("total_cost", totalCost),
	)
	return domain.ExecutedOutcome(trade)
}

func (e *Executor) executeSell(
	ctx context.Context,
	sig domain.Signal,
	portfolio domain.Portfolio,
	log *slog.Logger,
) domain.Outcome {
	pos, ok := portfolio[sig.TokenID]
	if !ok || pos.Quantity <= 0 {
		return domain.SkippedOutcome(sig.TokenID, domain.SkipNoPositionToSell)
	}

	price, err := e.prices.CurrentPrice(ctx, sig.TokenID)
	if err != nil || price <= 0 {
		return domain.SkippedOutcome(sig.TokenID, domain.SkipNoPriceData)
	}

	// Sells always liquidate the entire position.
	quantity := pos.Quantity
	proceeds := quantity * price
	costBasis := quantity * pos.AvgCost
	pnl := proceeds - costBasis
	pnlPct := 0.0
	if costBasis > 0 {
		pnlPct = pnl / costBasis * 100
	}

	trade := domain.Trade{
		ID:             uuid.New().String(),
		SignalID:       sig.ID,
		TokenID:        sig.TokenID,
		Action:         domain.ActionSell,
		Quantity:       quantity,
		Price:          price,
		TotalProceeds:  proceeds,
		PnL:            pnl,
		PnLPct:         pnlPct,
		CompositeScore: sig.CompositeScore,
		Status:         domain.TradeStatusClosed,
		Timestamp:      time.Now().UTC(),
	}
	if _, err := e.trades.Add(ctx, trade); err != nil {
		log.ErrorContext(ctx, "trade write failed", slog.String("error", err.Error()))
		return domain.SkippedOutcome(sig.TokenID, domain.SkipExecutionError)
	}

	// The full exit is what logically closes the token's exposure; reflect
	// that in the trade log so the open-trade guard frees the token.
	if err := e.trades.CloseOpenTrades(ctx, sig.TokenID); err != nil {
		log.WarnContext(ctx, "closing open trades failed", slog.String("error", err.Error()))
	}

	flat := domain.Position{TokenID: sig.TokenID, LastUpdated: time.Now().UTC()}
	if err := e.portfolio.Set(ctx, flat); err != nil {
		log.ErrorContext(ctx, "portfolio reset failed after trade write",
			slog.String("trade_id", trade.ID),
			slog.String("error", err.Error()),
		)
		return domain.SkippedOutcome(sig.TokenID, domain.SkipExecutionError)
	}
	portfolio[sig.TokenID] = flat

	log.InfoContext(ctx, "sell executed",
		slog.Float64("quantity", quantity),
		slog.Float64("price", price),
		slog.Float64("pnl", pnl),
		slog.Float64("pnl_pct", pnlPct),
	)
	return domain.ExecutedOutcome(trade)
}
