// Package universe manages named token lists. Three tiers are in use:
// the market universe for macro trend tracking, the watchlist universe that
// the scoring pass iterates over, and the portfolio universe mirroring
// tokens with open positions.
package universe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modacrypto/modabot/internal/domain"
)

// Universe tier names.
const (
	Market    = "market"
	Watchlist = "watchlist"
	Portfolio = "portfolio"
)

// Manager provides universe membership operations on top of the store.
type Manager struct {
	store     domain.UniverseStore
	portfolio domain.PortfolioStore
	logger    *slog.Logger
}

// NewManager creates a Manager.
func NewManager(store domain.UniverseStore, portfolio domain.PortfolioStore, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		portfolio: portfolio,
		logger:    logger.With(slog.String("component", "universe")),
	}
}

// List returns all tokens in the named universe.
func (m *Manager) List(ctx context.Context, universe string) ([]domain.Token, error) {
	tokens, err := m.store.List(ctx, universe)
	if err != nil {
		return nil, fmt.Errorf("universe: list %s: %w", universe, err)
	}
	return tokens, nil
}

// Add puts a token into the named universe. AddedAt is stamped when unset.
func (m *Manager) Add(ctx context.Context, universe string, tok domain.Token) error {
	if tok.ID == "" {
		return fmt.Errorf("universe: add to %s: empty token ID", universe)
	}
	if tok.AddedAt.IsZero() {
		tok.AddedAt = time.Now().UTC()
	}
	if err := m.store.Put(ctx, universe, tok); err != nil {
		return fmt.Errorf("universe: add %s to %s: %w", tok.ID, universe, err)
	}
	m.logger.Info("token added",
		slog.String("universe", universe),
		slog.String("token_id", tok.ID),
	)
	return nil
}

// Remove drops a token from the named universe.
func (m *Manager) Remove(ctx context.Context, universe, tokenID string) error {
	if err := m.store.Remove(ctx, universe, tokenID); err != nil {
		return fmt.Errorf("universe: remove %s from %s: %w", tokenID, universe, err)
	}
	m.logger.Info("token removed",
		slog.String("universe", universe),
		slog.String("token_id", tokenID),
	)
	return nil
}

// SyncPortfolioUniverse rebuilds the portfolio universe from current
// positions: tokens with an open position are added, tokens no longer held
// are removed. Returns the number of open positions synced.
func (m *Manager) SyncPortfolioUniverse(ctx context.Context) (int, error) {
	positions, err := m.portfolio.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("universe: load portfolio: %w", err)
	}

	existing, err := m.store.List(ctx, Portfolio)
	if err != nil {
		return 0, fmt.Errorf("universe: list portfolio universe: %w", err)
	}

	held := make(map[string]bool, len(positions))
	count := 0
	for tokenID, pos := range positions {
		if !pos.Open() {
			continue
		}
		held[tokenID] = true
		tok := domain.Token{ID: tokenID, AddedAt: time.Now().UTC()}
		if err := m.store.Put(ctx, Portfolio, tok); err != nil {
			return count, fmt.Errorf("universe: sync position %s: %w", tokenID, err)
		}
		count++
	}

	for _, tok := range existing {
		if held[tok.ID] {
			continue
		}
		if err := m.store.Remove(ctx, Portfolio, tok.ID); err != nil {
			return count, fmt.Errorf("universe: drop stale %s: %w", tok.ID, err)
		}
	}

	m.logger.Info("portfolio universe synced", slog.Int("positions", count))
	return count, nil
}
