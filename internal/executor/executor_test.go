package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modacrypto/modabot/internal/domain"
	"github.com/modacrypto/modabot/internal/service"
)

type fakeSignalStore struct {
	recent []domain.Signal
	err    error
}

func (s *fakeSignalStore) Add(_ context.Context, sig domain.Signal) (string, error) {
	return sig.ID, nil
}

func (s *fakeSignalStore) Recent(context.Context, time.Time) ([]domain.Signal, error) {
	return s.recent, s.err
}

func (s *fakeSignalStore) OlderThan(context.Context, time.Time, int) ([]domain.Signal, error) {
	return nil, nil
}

func (s *fakeSignalStore) PurgeBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeTradeStore struct {
	added  []domain.Trade
	open   []domain.Trade
	closed []string
	addErr error
}

func (s *fakeTradeStore) Add(_ context.Context, t domain.Trade) (string, error) {
	if s.addErr != nil {
		return "", s.addErr
	}
	s.added = append(s.added, t)
	return t.ID, nil
}

func (s *fakeTradeStore) ListOpen(context.Context) ([]domain.Trade, error) {
	return s.open, nil
}

func (s *fakeTradeStore) CloseOpenTrades(_ context.Context, tokenID string) error {
	s.closed = append(s.closed, tokenID)
	return nil
}

func (s *fakeTradeStore) ListByStatus(context.Context, domain.TradeStatus, int) ([]domain.Trade, error) {
	return nil, nil
}

func (s *fakeTradeStore) ClosedBefore(context.Context, time.Time, int) ([]domain.Trade, error) {
	return nil, nil
}

type fakePortfolioStore struct {
	positions domain.Portfolio
	setErr    error
}

func newFakePortfolioStore() *fakePortfolioStore {
	return &fakePortfolioStore{positions: domain.Portfolio{}}
}

func (s *fakePortfolioStore) All(context.Context) (domain.Portfolio, error) {
	out := make(domain.Portfolio, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out, nil
}

func (s *fakePortfolioStore) Get(_ context.Context, tokenID string) (domain.Position, error) {
	pos, ok := s.positions[tokenID]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *fakePortfolioStore) Set(_ context.Context, pos domain.Position) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.positions[pos.TokenID] = pos
	return nil
}

type fakeAdminStore struct {
	cfg domain.AdminConfig
}

func (s *fakeAdminStore) Get(context.Context) (domain.AdminConfig, error) {
	return s.cfg, nil
}

func (s *fakeAdminStore) Set(context.Context, domain.AdminConfig) error {
	return nil
}

type fakePrices struct {
	prices map[string]float64
	err    error
}

func (p *fakePrices) CurrentPrice(_ context.Context, tokenID string) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.prices[tokenID], nil
}

type harness struct {
	executor  *Executor
	signals   *fakeSignalStore
	trades    *fakeTradeStore
	portfolio *fakePortfolioStore
	prices    *fakePrices
}

func newHarness() *harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	signals := &fakeSignalStore{}
	trades := &fakeTradeStore{}
	portfolio := newFakePortfolioStore()
	prices := &fakePrices{prices: map[string]float64{}}
	admin := &fakeAdminStore{cfg: domain.DefaultAdminConfig(0.85)}
	risk := service.NewRiskService(service.RiskParams{
		InitialCash:        10000,
		MaxPositionSize:    0.10,
		MaxTokenAllocation: 0.15,
		MinTradeUSD:        100,
	}, logger)
	exec := New(signals, trades, portfolio, admin, prices, risk, Config{
		InitialCash:    10000,
		SignalLookback: 2 * time.Hour,
	}, logger)
	return &harness{executor: exec, signals: signals, trades: trades, portfolio: portfolio, prices: prices}
}

func buySignal(id, tokenID string, score float64) domain.Signal {
	return domain.Signal{
		ID:             id,
		TokenID:        tokenID,
		Action:         domain.ActionBuy,
		CompositeScore: score,
		Timestamp:      time.Now().UTC(),
	}
}

func sellSignal(id, tokenID string, score float64) domain.Signal {
	return domain.Signal{
		ID:             id,
		TokenID:        tokenID,
		Action:         domain.ActionSell,
		CompositeScore: score,
		Timestamp:      time.Now().UTC(),
	}
}

func TestExecuteBatchBuy(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{buySignal("s1", "bitcoin", 0.90)}
	h.prices.prices["bitcoin"] = 45000

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SignalsProcessed)
	assert.Equal(t, 1, result.TradesExecuted)

	require.Len(t, h.trades.added, 1)
	trade := h.trades.added[0]
	assert.Equal(t, "s1", trade.SignalID)
	assert.Equal(t, domain.ActionBuy, trade.Action)
	assert.Equal(t, domain.TradeStatusOpen, trade.Status)
	// 10000 cash, 0.10 max size, 1.8 multiplier capped at the 1000 base.
	assert.InDelta(t, 1000.0/45000, trade.Quantity, 1e-9)
	assert.InDelta(t, 1000, trade.TotalCost, 1e-9)
	assert.NotEmpty(t, trade.ID)

	pos := h.portfolio.positions["bitcoin"]
	assert.InDelta(t, 1000.0/45000, pos.Quantity, 1e-9)
	assert.InDelta(t, 45000, pos.AvgCost, 1e-9)
}

func TestExecuteBatchSecondBuySameTokenSkipped(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{
		buySignal("s1", "bitcoin", 0.90),
		buySignal("s2", "bitcoin", 0.95),
	}
	h.prices.prices["bitcoin"] = 45000

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TradesExecuted)
	assert.Equal(t, 1, result.Skipped[domain.SkipExistingOpenTrade])
}

func TestExecuteBatchExistingOpenTradeBlocksBuy(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{buySignal("s1", "bitcoin", 0.90)}
	h.trades.open = []domain.Trade{{ID: "t0", TokenID: "bitcoin", Status: domain.TradeStatusOpen}}
	h.prices.prices["bitcoin"] = 45000

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TradesExecuted)
	assert.Equal(t, 1, result.Skipped[domain.SkipExistingOpenTrade])
}

func TestExecuteBatchSellLiquidatesPosition(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{sellSignal("s1", "bitcoin", 0.90)}
	h.portfolio.positions["bitcoin"] = domain.Position{
		TokenID: "bitcoin", Quantity: 1, AvgCost: 40000,
	}
	h.trades.open = []domain.Trade{{ID: "t0", TokenID: "bitcoin", Status: domain.TradeStatusOpen}}
	h.prices.prices["bitcoin"] = 50000

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TradesExecuted)

	require.Len(t, h.trades.added, 1)
	trade := h.trades.added[0]
	assert.Equal(t, domain.ActionSell, trade.Action)
	assert.Equal(t, domain.TradeStatusClosed, trade.Status)
	assert.InDelta(t, 50000, trade.TotalProceeds, 1e-9)
	assert.InDelta(t, 10000, trade.PnL, 1e-9)
	assert.InDelta(t, 25.0, trade.PnLPct, 1e-9)

	assert.Equal(t, []string{"bitcoin"}, h.trades.closed)
	pos := h.portfolio.positions["bitcoin"]
	assert.Zero(t, pos.Quantity)
	assert.Zero(t, pos.AvgCost)
	assert.False(t, pos.LastUpdated.IsZero())
}

func TestExecuteBatchSellWithoutPosition(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{sellSignal("s1", "bitcoin", 0.90)}
	h.prices.prices["bitcoin"] = 50000

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TradesExecuted)
	assert.Equal(t, 1, result.Skipped[domain.SkipNoPositionToSell])
}

func TestExecuteBatchNoPriceData(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{buySignal("s1", "bitcoin", 0.90)}

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped[domain.SkipNoPriceData])
	assert.Empty(t, h.trades.added)
}

func TestExecuteBatchHoldSignalsFiltered(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{
		{ID: "s1", TokenID: "bitcoin", Action: domain.ActionHold, CompositeScore: 0.90},
		buySignal("s2", "ethereum", 0.80),
	}

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.SignalsProcessed)
	assert.Equal(t, 0, result.TradesExecuted)
}

func TestExecuteBatchInvalidAdminConfig(t *testing.T) {
	h := newHarness()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	admin := &fakeAdminStore{cfg: domain.AdminConfig{
		Weights:           domain.Weights{ML: 0.9, Rule: 0.9},
		MinCompositeScore: 0.85,
	}}
	risk := service.NewRiskService(service.RiskParams{
		InitialCash: 10000, MaxPositionSize: 0.10, MaxTokenAllocation: 0.15, MinTradeUSD: 100,
	}, logger)
	exec := New(h.signals, h.trades, h.portfolio, admin, h.prices, risk, Config{InitialCash: 10000}, logger)

	_, err := exec.ExecuteBatch(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidWeights)
}

// Cash spent by an earlier buy in the batch shrinks the budget the later
// signals see.
func TestExecuteBatchCashAccumulator(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{
		buySignal("s1", "bitcoin", 0.90),
		buySignal("s2", "ethereum", 0.90),
	}
	h.prices.prices["bitcoin"] = 45000
	h.prices.prices["ethereum"] = 3000

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.TradesExecuted)

	require.Len(t, h.trades.added, 2)
	assert.InDelta(t, 1000, h.trades.added[0].TotalCost, 1e-9)
	// 9000 cash remained, 0.10 max size, capped at the 900 base.
	assert.InDelta(t, 900, h.trades.added[1].TotalCost, 1e-9)
}

func TestExecuteBatchTradeWriteFailure(t *testing.T) {
	h := newHarness()
	h.signals.recent = []domain.Signal{buySignal("s1", "bitcoin", 0.90)}
	h.prices.prices["bitcoin"] = 45000
	h.trades.addErr = errors.New("insert failed")

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TradesExecuted)
	assert.Equal(t, 1, result.Skipped[domain.SkipExecutionError])
	assert.Empty(t, h.portfolio.positions)
}

func TestExecuteBatchRiskRejectionRecorded(t *testing.T) {
	h := newHarness()
	// 0.02 BTC at 75000 puts the cost basis at the 1500 allocation cap.
	h.portfolio.positions["bitcoin"] = domain.Position{
		TokenID: "bitcoin", Quantity: 0.02, AvgCost: 75000,
	}
	h.signals.recent = []domain.Signal{buySignal("s1", "bitcoin", 0.90)}
	h.prices.prices["bitcoin"] = 75000

	result, err := h.executor.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TradesExecuted)
	assert.Equal(t, 1, result.Skipped[domain.SkipMaxAllocationReached])
}
