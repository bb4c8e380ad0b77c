package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modacrypto/modabot/internal/domain"
)

func testRiskService() *RiskService {
	return NewRiskService(RiskParams{
		InitialCash:        10000,
		MaxPositionSize:    0.10,
		MaxTokenAllocation: 0.15,
		MinTradeUSD:        100,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEvaluateBuy(t *testing.T) {
	svc := testRiskService()
	cfg := domain.DefaultAdminConfig(0.85)
	strong := domain.Signal{TokenID: "bitcoin", Action: domain.ActionBuy, CompositeScore: 0.90}

	tests := []struct {
		name       string
		sig        domain.Signal
		cash       float64
		pos        domain.Position
		allowed    bool
		wantReason domain.SkipReason
	}{
		{
			name:       "clean buy passes",
			sig:        strong,
			cash:       10000,
			allowed:    true,
			wantReason: domain.ReasonPassedAllChecks,
		},
		{
			// 900 * 0.10 = 90, below the 100 floor.
			name:       "budget below trade floor",
			sig:        strong,
			cash:       900,
			wantReason: domain.SkipInsufficientCash,
		},
		{
			// Cost basis 0.04 * 37500 = 1500 meets the 15% cap exactly.
			name:       "allocation cap already reached",
			sig:        strong,
			cash:       8500,
			pos:        domain.Position{TokenID: "bitcoin", Quantity: 0.04, AvgCost: 37500},
			wantReason: domain.SkipMaxAllocationReached,
		},
		{
			// 800 held plus an 800 budget overshoots the 1500 cap.
			name:       "buy would exceed allocation cap",
			sig:        strong,
			cash:       8000,
			pos:        domain.Position{TokenID: "bitcoin", Quantity: 0.02, AvgCost: 40000},
			wantReason: domain.SkipWouldExceedMaxAllocation,
		},
		{
			name:       "score below current threshold",
			sig:        domain.Signal{TokenID: "bitcoin", Action: domain.ActionBuy, CompositeScore: 0.80},
			cash:       10000,
			wantReason: domain.SkipInsufficientConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := svc.EvaluateBuy(tt.sig, tt.cash, tt.pos, cfg)
			assert.Equal(t, tt.allowed, dec.Allowed)
			assert.Equal(t, tt.wantReason, dec.Reason)
		})
	}
}

// When several checks would fail, the first in the sequence wins.
func TestEvaluateBuyCheckOrdering(t *testing.T) {
	svc := testRiskService()
	cfg := domain.DefaultAdminConfig(0.85)

	// Tiny cash AND a weak score: insufficient cash is reported.
	weak := domain.Signal{TokenID: "bitcoin", CompositeScore: 0.60}
	dec := svc.EvaluateBuy(weak, 500, domain.Position{}, cfg)
	assert.Equal(t, domain.SkipInsufficientCash, dec.Reason)

	// Cap reached AND a weak score: the allocation check fires first.
	full := domain.Position{TokenID: "bitcoin", Quantity: 0.05, AvgCost: 40000}
	dec = svc.EvaluateBuy(weak, 10000, full, cfg)
	assert.Equal(t, domain.SkipMaxAllocationReached, dec.Reason)
}
