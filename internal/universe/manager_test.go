package universe

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modacrypto/modabot/internal/domain"
)

type fakeUniverseStore struct {
	tokens map[string]map[string]domain.Token
}

func newFakeUniverseStore() *fakeUniverseStore {
	return &fakeUniverseStore{tokens: map[string]map[string]domain.Token{}}
}

func (s *fakeUniverseStore) Put(_ context.Context, universe string, tok domain.Token) error {
	if s.tokens[universe] == nil {
		s.tokens[universe] = map[string]domain.Token{}
	}
	s.tokens[universe][tok.ID] = tok
	return nil
}

func (s *fakeUniverseStore) Remove(_ context.Context, universe, tokenID string) error {
	delete(s.tokens[universe], tokenID)
	return nil
}

func (s *fakeUniverseStore) List(_ context.Context, universe string) ([]domain.Token, error) {
	var out []domain.Token
	for _, tok := range s.tokens[universe] {
		out = append(out, tok)
	}
	return out, nil
}

type fakePortfolioStore struct {
	positions domain.Portfolio
}

func (s *fakePortfolioStore) All(context.Context) (domain.Portfolio, error) {
	return s.positions, nil
}

func (s *fakePortfolioStore) Get(_ context.Context, tokenID string) (domain.Position, error) {
	pos, ok := s.positions[tokenID]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *fakePortfolioStore) Set(_ context.Context, pos domain.Position) error {
	s.positions[pos.TokenID] = pos
	return nil
}

func newTestManager(portfolio domain.Portfolio) (*Manager, *fakeUniverseStore) {
	store := newFakeUniverseStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, &fakePortfolioStore{positions: portfolio}, logger), store
}

func TestAddStampsAddedAt(t *testing.T) {
	mgr, store := newTestManager(nil)
	ctx := context.Background()

	err := mgr.Add(ctx, Watchlist, domain.Token{ID: "bitcoin", Symbol: "BTC"})
	require.NoError(t, err)

	tok := store.tokens[Watchlist]["bitcoin"]
	assert.False(t, tok.AddedAt.IsZero())
}

func TestAddRejectsEmptyID(t *testing.T) {
	mgr, _ := newTestManager(nil)
	err := mgr.Add(context.Background(), Watchlist, domain.Token{Symbol: "BTC"})
	require.Error(t, err)
}

func TestSyncPortfolioUniverse(t *testing.T) {
	portfolio := domain.Portfolio{
		"bitcoin":  {TokenID: "bitcoin", Quantity: 0.5, AvgCost: 40000},
		"ethereum": {TokenID: "ethereum", Quantity: 2, AvgCost: 3000},
		"dogecoin": {TokenID: "dogecoin"}, // flat, must not be synced
	}
	mgr, store := newTestManager(portfolio)
	ctx := context.Background()

	// A stale entry from a position that has since been closed.
	require.NoError(t, store.Put(ctx, Portfolio, domain.Token{ID: "solana"}))

	count, err := mgr.SyncPortfolioUniverse(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Contains(t, store.tokens[Portfolio], "bitcoin")
	assert.Contains(t, store.tokens[Portfolio], "ethereum")
	assert.NotContains(t, store.tokens[Portfolio], "dogecoin")
	assert.NotContains(t, store.tokens[Portfolio], "solana")
}
