package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modacrypto/modabot/internal/domain"
	"github.com/modacrypto/modabot/internal/executor"
	"github.com/modacrypto/modabot/internal/feed"
	"github.com/modacrypto/modabot/internal/monitor"
	"github.com/modacrypto/modabot/internal/notify"
	"github.com/modacrypto/modabot/internal/predictor"
	"github.com/modacrypto/modabot/internal/scoring"
	"github.com/modacrypto/modabot/internal/service"
	"github.com/modacrypto/modabot/internal/universe"
)

// portfolioLockKey serialises paper-trade batches across instances. Only one
// batch may mutate the portfolio at a time.
const portfolioLockKey = "paper-trade:portfolio"

// ScoreMode runs the periodic scoring pass over the configured universe.
func (a *App) ScoreMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting score mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startScoring(ctx, g, deps)
	return g.Wait()
}

// TradeMode runs the periodic paper-trade batch, plus the live price feed
// when enabled.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startTrading(ctx, g, deps)
	a.startFeed(ctx, g, deps)
	return g.Wait()
}

// MonitorMode runs health checks and archival only.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startMonitor(ctx, g, deps)
	return g.Wait()
}

// FullMode runs scoring, trading, the price feed, and the monitor together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startScoring(ctx, g, deps)
	a.startTrading(ctx, g, deps)
	a.startFeed(ctx, g, deps)
	a.startMonitor(ctx, g, deps)
	return g.Wait()
}

// startScoring builds the scoring stack and launches the periodic pass.
func (a *App) startScoring(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	features := service.NewFeatureService(deps.FeatureStore)

	var pred scoring.Predictor
	if a.cfg.Predictor.URL != "" {
		pred = predictor.NewClient(predictor.Config{
			URL:        a.cfg.Predictor.URL,
			Timeout:    a.cfg.Predictor.Timeout.Duration,
			RetryCount: a.cfg.Predictor.RetryCount,
		})
	} else {
		a.logger.InfoContext(ctx, "no predictor configured, scoring uses the neutral probability")
	}

	fusion := scoring.NewFusion(features, pred, deps.SignalStore, a.logger)
	tokens := universe.NewManager(deps.UniverseStore, deps.PortfolioStore, a.logger)
	runner := scoring.NewRunner(fusion, tokens, deps.RunStore, a.cfg.Scoring.Universe, a.logger)

	interval := a.cfg.Scoring.Interval.Duration
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			a.runScoringPass(ctx, deps, runner)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
}

// runScoringPass executes one pass with the current admin configuration.
func (a *App) runScoringPass(ctx context.Context, deps *Dependencies, runner *scoring.Runner) {
	cfg, err := deps.AdminConfigStore.Get(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "scoring pass: load admin config",
			slog.String("error", err.Error()),
		)
		return
	}

	scored, err := runner.Run(ctx, cfg)
	if err != nil {
		a.logger.ErrorContext(ctx, "scoring pass failed",
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.InfoContext(ctx, "scoring pass complete", slog.Int("scored", scored))
}

// startTrading builds the execution stack and launches the periodic batch.
func (a *App) startTrading(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	risk := service.NewRiskService(service.RiskParams{
		InitialCash:        a.cfg.Trading.InitialCash,
		MaxPositionSize:    a.cfg.Trading.MaxPositionSize,
		MaxTokenAllocation: a.cfg.Trading.MaxTokenAllocation,
		MinTradeUSD:        a.cfg.Trading.MinTradeUSD,
	}, a.logger)

	prices := service.NewPriceService(
		deps.PriceCache, deps.FeatureStore, a.cfg.Trading.PriceMaxAge.Duration, a.logger,
	)

	exec := executor.New(
		deps.SignalStore, deps.TradeStore, deps.PortfolioStore,
		deps.AdminConfigStore, prices, risk,
		executor.Config{
			InitialCash:    a.cfg.Trading.InitialCash,
			SignalLookback: a.cfg.Trading.SignalLookback.Duration,
		},
		a.logger,
	)

	universeMgr := universe.NewManager(deps.UniverseStore, deps.PortfolioStore, a.logger)

	interval := a.cfg.Trading.Interval.Duration
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			a.runTradeBatch(ctx, deps, exec, universeMgr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
}

// runTradeBatch executes one locked paper-trade batch and records the result.
func (a *App) runTradeBatch(ctx context.Context, deps *Dependencies, exec *executor.Executor, universeMgr *universe.Manager) {
	start := time.Now()

	unlock, err := deps.LockManager.Acquire(ctx, portfolioLockKey, a.cfg.Trading.LockTTL.Duration)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "trade batch skipped, lock held elsewhere")
			return
		}
		a.logger.ErrorContext(ctx, "trade batch: acquire lock",
			slog.String("error", err.Error()),
		)
		return
	}
	defer unlock()

	result, err := exec.ExecuteBatch(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		a.logger.ErrorContext(ctx, "trade batch failed",
			slog.String("error", err.Error()),
		)
	}

	run := domain.Run{
		Service:   "paper_trade",
		Status:    status,
		Count:     result.TradesExecuted,
		Duration:  time.Since(start),
		Timestamp: time.Now().UTC(),
	}
	if rerr := deps.RunStore.Add(ctx, run); rerr != nil {
		a.logger.WarnContext(ctx, "trade batch: record run",
			slog.String("error", rerr.Error()),
		)
	}
	if err != nil {
		return
	}

	a.logger.InfoContext(ctx, "trade batch complete",
		slog.Int("signals_processed", result.SignalsProcessed),
		slog.Int("trades_executed", result.TradesExecuted),
	)

	if result.TradesExecuted > 0 {
		if _, serr := universeMgr.SyncPortfolioUniverse(ctx); serr != nil {
			a.logger.WarnContext(ctx, "trade batch: sync portfolio universe",
				slog.String("error", serr.Error()),
			)
		}
		a.notifyTrades(ctx, deps, result)
	}
}

// notifyTrades sends one notification per executed trade plus a batch summary.
func (a *App) notifyTrades(ctx context.Context, deps *Dependencies, result domain.BatchResult) {
	if deps.Notifier == nil {
		return
	}

	for _, t := range result.ExecutedTrades {
		title := fmt.Sprintf("Paper trade: %s %s", t.Action, t.TokenID)
		var body string
		if t.Action == domain.ActionSell {
			body = fmt.Sprintf("Sold %.6f @ $%.4f, P&L $%.2f (%.2f%%)",
				t.Quantity, t.Price, t.PnL, t.PnLPct)
		} else {
			body = fmt.Sprintf("Bought %.6f @ $%.4f for $%.2f (score %.3f)",
				t.Quantity, t.Price, t.TotalCost, t.CompositeScore)
		}
		if err := deps.Notifier.Notify(ctx, notify.EventTradeExecuted, title, body); err != nil {
			a.logger.WarnContext(ctx, "trade notification failed",
				slog.String("error", err.Error()),
			)
		}
	}

	summary := fmt.Sprintf("Processed %d signals, executed %d trades.",
		result.SignalsProcessed, result.TradesExecuted)
	if err := deps.Notifier.Notify(ctx, notify.EventBatchComplete, "Batch complete", summary); err != nil {
		a.logger.WarnContext(ctx, "batch notification failed",
			slog.String("error", err.Error()),
		)
	}
}

// startFeed launches the live price feed when enabled.
func (a *App) startFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Feed.Enabled || a.cfg.Feed.WSURL == "" {
		return
	}

	priceFeed := feed.NewPriceFeed(a.cfg.Feed.WSURL, a.cfg.Feed.Tokens, deps.PriceCache, a.logger)
	g.Go(func() error {
		defer priceFeed.Close()
		return priceFeed.Run(ctx)
	})
}

// startMonitor launches health checks and archival.
func (a *App) startMonitor(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	reporter := service.NewPerformanceService(deps.TradeStore, deps.PortfolioStore, a.logger)

	var archiver monitor.ArchiveRunner
	if deps.Archiver != nil {
		archiver = deps.Archiver
	} else {
		a.logger.InfoContext(ctx, "no blob storage configured, archival disabled")
	}
	var alerter monitor.Alerter
	if deps.Notifier != nil {
		alerter = deps.Notifier
	}

	mon := monitor.New(
		deps.SignalStore, deps.RunStore, reporter, archiver, alerter,
		monitor.Config{
			CheckInterval:    a.cfg.Monitor.CheckInterval.Duration,
			SignalStaleAfter: a.cfg.Monitor.SignalStaleAfter.Duration,
			MaxDrawdownPct:   a.cfg.Monitor.MaxDrawdownPct,
			ArchiveAfter:     a.cfg.Monitor.ArchiveAfter.Duration,
			ArchiveInterval:  a.cfg.Monitor.ArchiveInterval.Duration,
			InitialCash:      a.cfg.Trading.InitialCash,
		},
		a.logger,
	)

	g.Go(func() error {
		return mon.Run(ctx)
	})
}
