package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modacrypto/modabot/internal/domain"
)

// UniverseStore implements domain.UniverseStore using PostgreSQL.
type UniverseStore struct {
	pool *pgxpool.Pool
}

// NewUniverseStore creates a new UniverseStore backed by the given connection pool.
func NewUniverseStore(pool *pgxpool.Pool) *UniverseStore {
	return &UniverseStore{pool: pool}
}

// Put adds or refreshes a token in a named universe.
func (s *UniverseStore) Put(ctx context.Context, universe string, tok domain.Token) error {
	const query = `
		INSERT INTO universe_tokens (universe, token_id, symbol, name, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (universe, token_id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name   = EXCLUDED.name`

	_, err := s.pool.Exec(ctx, query, universe, tok.ID, tok.Symbol, tok.Name, tok.AddedAt)
	if err != nil {
		return fmt.Errorf("postgres: put universe token %s/%s: %w", universe, tok.ID, err)
	}
	return nil
}

// Remove deletes a token from a named universe. Removing a token that is not
// present is not an error.
func (s *UniverseStore) Remove(ctx context.Context, universe, tokenID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM universe_tokens WHERE universe = $1 AND token_id = $2`,
		universe, tokenID,
	)
	if err != nil {
		return fmt.Errorf("postgres: remove universe token %s/%s: %w", universe, tokenID, err)
	}
	return nil
}

// List returns all tokens in a named universe, oldest first.
func (s *UniverseStore) List(ctx context.Context, universe string) ([]domain.Token, error) {
	const query = `
		SELECT token_id, symbol, name, added_at FROM universe_tokens
		WHERE universe = $1 ORDER BY added_at ASC`

	rows, err := s.pool.Query(ctx, query, universe)
	if err != nil {
		return nil, fmt.Errorf("postgres: list universe %s: %w", universe, err)
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Name, &t.AddedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan universe token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate universe %s: %w", universe, err)
	}
	return tokens, nil
}
