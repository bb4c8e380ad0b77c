package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modacrypto/modabot/internal/domain"
)

// PerformanceReport aggregates realized and open results for the portfolio.
type PerformanceReport struct {
	ClosedTrades  int
	WinningTrades int
	WinRate       float64 // fraction of closed trades with positive pnl
	RealizedPnL   float64
	AvgPnLPct     float64
	OpenTrades    int
	OpenExposure  float64 // cost basis currently deployed
}

// maxReportTrades bounds how much closed-trade history one report scans.
const maxReportTrades = 1000

// PerformanceService computes portfolio performance from the trade log and
// current positions. Used by the monitor loops and for batch summaries.
type PerformanceService struct {
	trades    domain.TradeStore
	portfolio domain.PortfolioStore
	logger    *slog.Logger
}

// NewPerformanceService creates a PerformanceService.
func NewPerformanceService(trades domain.TradeStore, portfolio domain.PortfolioStore, logger *slog.Logger) *PerformanceService {
	return &PerformanceService{
		trades:    trades,
		portfolio: portfolio,
		logger:    logger.With(slog.String("component", "performance")),
	}
}

// Report aggregates closed-trade P&L and open exposure.
func (s *PerformanceService) Report(ctx context.Context) (PerformanceReport, error) {
	var report PerformanceReport

	closed, err := s.trades.ListByStatus(ctx, domain.TradeStatusClosed, maxReportTrades)
	if err != nil {
		return report, fmt.Errorf("performance: list closed trades: %w", err)
	}

	var pctSum float64
	for _, t := range closed {
		report.ClosedTrades++
		report.RealizedPnL += t.PnL
		pctSum += t.PnLPct
		if t.PnL > 0 {
			report.WinningTrades++
		}
	}
	if report.ClosedTrades > 0 {
		report.WinRate = float64(report.WinningTrades) / float64(report.ClosedTrades)
		report.AvgPnLPct = pctSum / float64(report.ClosedTrades)
	}

	open, err := s.trades.ListOpen(ctx)
	if err != nil {
		return report, fmt.Errorf("performance: list open trades: %w", err)
	}
	report.OpenTrades = len(open)

	portfolio, err := s.portfolio.All(ctx)
	if err != nil {
		return report, fmt.Errorf("performance: load portfolio: %w", err)
	}
	report.OpenExposure = portfolio.CostBasis()

	return report, nil
}
