package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modacrypto/modabot/internal/domain"
)

// PortfolioStore implements domain.PortfolioStore using PostgreSQL.
type PortfolioStore struct {
	pool *pgxpool.Pool
}

// NewPortfolioStore creates a new PortfolioStore backed by the given connection pool.
func NewPortfolioStore(pool *pgxpool.Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

// All returns every position document keyed by token ID.
func (s *PortfolioStore) All(ctx context.Context) (domain.Portfolio, error) {
	const query = `SELECT token_id, quantity, avg_cost, last_updated FROM portfolio`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list portfolio: %w", err)
	}
	defer rows.Close()

	portfolio := make(domain.Portfolio)
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.TokenID, &p.Quantity, &p.AvgCost, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		portfolio[p.TokenID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate portfolio: %w", err)
	}
	return portfolio, nil
}

// Get returns the position for a token, or ErrNotFound.
func (s *PortfolioStore) Get(ctx context.Context, tokenID string) (domain.Position, error) {
	const query = `SELECT token_id, quantity, avg_cost, last_updated FROM portfolio WHERE token_id = $1`

	var p domain.Position
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&p.TokenID, &p.Quantity, &p.AvgCost, &p.LastUpdated,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", tokenID, err)
	}
	return p, nil
}

// Set upserts the position document for its token.
func (s *PortfolioStore) Set(ctx context.Context, pos domain.Position) error {
	const query = `
		INSERT INTO portfolio (token_id, quantity, avg_cost, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id) DO UPDATE SET
			quantity     = EXCLUDED.quantity,
			avg_cost     = EXCLUDED.avg_cost,
			last_updated = EXCLUDED.last_updated`

	_, err := s.pool.Exec(ctx, query, pos.TokenID, pos.Quantity, pos.AvgCost, pos.LastUpdated)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", pos.TokenID, err)
	}
	return nil
}
