package domain

import (
	"context"
	"time"
)

// The persistence layer is a document store consumed through one narrow
// interface per logical collection. The core depends only on
// key-value-with-query semantics, never on vendor transaction behavior.

// SignalStore persists scoring signals.
type SignalStore interface {
	// Add appends a signal and returns its document ID.
	Add(ctx context.Context, sig Signal) (string, error)
	// Recent returns signals with Timestamp >= since, newest first.
	Recent(ctx context.Context, since time.Time) ([]Signal, error)
	// OlderThan returns up to limit signals older than cutoff, oldest first.
	OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Signal, error)
	// PurgeBefore deletes signals older than cutoff and reports how many.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TradeStore persists the append-only trade log.
type TradeStore interface {
	Add(ctx context.Context, t Trade) (string, error)
	// ListOpen returns all trades whose exposure has not been closed.
	ListOpen(ctx context.Context) ([]Trade, error)
	// CloseOpenTrades flips a token's open trades to closed after a full
	// exit, so the token returns to the Flat state.
	CloseOpenTrades(ctx context.Context, tokenID string) error
	ListByStatus(ctx context.Context, status TradeStatus, limit int) ([]Trade, error)
	// ClosedBefore returns closed trades older than cutoff, oldest first.
	ClosedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Trade, error)
}

// PortfolioStore persists current positions keyed by token ID.
type PortfolioStore interface {
	All(ctx context.Context) (Portfolio, error)
	Get(ctx context.Context, tokenID string) (Position, error)
	// Set upserts the position document for its token.
	Set(ctx context.Context, pos Position) error
}

// AdminConfigStore persists the singleton scoring configuration.
type AdminConfigStore interface {
	// Get returns the current configuration. When no document exists yet the
	// store writes and returns its bootstrap default.
	Get(ctx context.Context) (AdminConfig, error)
	Set(ctx context.Context, cfg AdminConfig) error
}

// FeatureStore persists engineered feature bundles.
type FeatureStore interface {
	Add(ctx context.Context, bundle FeatureBundle) error
	// Latest returns the newest bundle for a token, or ErrNotFound.
	Latest(ctx context.Context, tokenID string) (FeatureBundle, error)
}

// Token is one entry in a named universe (token list).
type Token struct {
	ID      string
	Symbol  string
	Name    string
	AddedAt time.Time
}

// UniverseStore persists named token lists.
type UniverseStore interface {
	Put(ctx context.Context, universe string, tok Token) error
	Remove(ctx context.Context, universe, tokenID string) error
	List(ctx context.Context, universe string) ([]Token, error)
}

// Run is one audit entry for a completed scoring or execution pass.
type Run struct {
	ID        int64
	Service   string
	Status    string
	Count     int
	Duration  time.Duration
	Timestamp time.Time
}

// RunStore persists the pass audit log.
type RunStore interface {
	Add(ctx context.Context, run Run) error
	Recent(ctx context.Context, since time.Time) ([]Run, error)
}
