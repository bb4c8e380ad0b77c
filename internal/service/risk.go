// Package service holds the pre-trade risk gate, position sizing, and the
// supporting price and performance services used by the paper-trade executor.
package service

import (
	"log/slog"

	"github.com/modacrypto/modabot/internal/domain"
)

// RiskParams holds the capital limits the risk gate enforces.
type RiskParams struct {
	// InitialCash is the portfolio's starting capital; allocation caps are
	// expressed against it, not against current cash.
	InitialCash float64
	// MaxPositionSize is the fraction of available cash a single buy may use.
	MaxPositionSize float64
	// MaxTokenAllocation is the fraction of initial cash one token may absorb.
	MaxTokenAllocation float64
	// MinTradeUSD is the hard floor below which buys are not worth placing.
	MinTradeUSD float64
}

// RiskDecision is the gate's verdict for one candidate buy.
type RiskDecision struct {
	Allowed bool
	Reason  domain.SkipReason
}

// RiskService evaluates candidate buys against the configured capital and
// allocation limits. It never errors: every input maps to exactly one of the
// five defined outcomes.
type RiskService struct {
	params RiskParams
	logger *slog.Logger
}

// NewRiskService creates a RiskService with the given limits.
func NewRiskService(params RiskParams, logger *slog.Logger) *RiskService {
	return &RiskService{
		params: params,
		logger: logger.With(slog.String("component", "risk")),
	}
}

// Params returns the configured limits.
func (s *RiskService) Params() RiskParams {
	return s.params
}

// EvaluateBuy runs the fixed check sequence for a candidate buy; the first
// failing check wins. The existing-open-trade guard is the executor's
// responsibility and is deliberately not duplicated here.
//
//  1. insufficient_cash: the sized budget is below the trade floor
//  2. max_allocation_reached: the token already absorbs its full cap
//  3. would_exceed_max_allocation: this buy would push it past the cap
//  4. insufficient_confidence: score below the current admin threshold
//  5. passed_all_checks
func (s *RiskService) EvaluateBuy(sig domain.Signal, availableCash float64, pos domain.Position, cfg domain.AdminConfig) RiskDecision {
	budget := availableCash * s.params.MaxPositionSize
	if budget < s.params.MinTradeUSD {
		return rejected(domain.SkipInsufficientCash)
	}

	currentValue := pos.CostBasis()
	maxAllocation := s.params.InitialCash * s.params.MaxTokenAllocation
	if currentValue >= maxAllocation {
		return rejected(domain.SkipMaxAllocationReached)
	}
	if currentValue+budget > maxAllocation {
		return rejected(domain.SkipWouldExceedMaxAllocation)
	}

	// Defends against an admin threshold that tightened after the signal
	// was generated.
	if sig.CompositeScore < cfg.MinCompositeScore {
		return rejected(domain.SkipInsufficientConfidence)
	}

	return RiskDecision{Allowed: true, Reason: domain.ReasonPassedAllChecks}
}

func rejected(reason domain.SkipReason) RiskDecision {
	return RiskDecision{Allowed: false, Reason: reason}
}
