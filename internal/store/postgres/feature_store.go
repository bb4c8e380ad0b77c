package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modacrypto/modabot/internal/domain"
)

// FeatureStore implements domain.FeatureStore using PostgreSQL. Feature
// values are stored as a JSONB document so the scoring pipeline can evolve
// its feature set without schema changes.
type FeatureStore struct {
	pool *pgxpool.Pool
}

// NewFeatureStore creates a new FeatureStore backed by the given connection pool.
func NewFeatureStore(pool *pgxpool.Pool) *FeatureStore {
	return &FeatureStore{pool: pool}
}

// Add inserts a feature bundle for a token.
func (s *FeatureStore) Add(ctx context.Context, bundle domain.FeatureBundle) error {
	vals, err := json.Marshal(bundle.Values)
	if err != nil {
		return fmt.Errorf("postgres: marshal features for %s: %w", bundle.TokenID, err)
	}

	const query = `
		INSERT INTO features (token_id, vals, ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id, ts) DO UPDATE SET vals = EXCLUDED.vals`

	_, err = s.pool.Exec(ctx, query, bundle.TokenID, vals, bundle.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: insert features for %s: %w", bundle.TokenID, err)
	}
	return nil
}

// Latest returns the newest feature bundle for a token, or ErrNotFound.
func (s *FeatureStore) Latest(ctx context.Context, tokenID string) (domain.FeatureBundle, error) {
	const query = `
		SELECT token_id, vals, ts FROM features
		WHERE token_id = $1 ORDER BY ts DESC LIMIT 1`

	var bundle domain.FeatureBundle
	var vals []byte

	err := s.pool.QueryRow(ctx, query, tokenID).Scan(&bundle.TokenID, &vals, &bundle.Timestamp)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.FeatureBundle{}, domain.ErrNotFound
		}
		return domain.FeatureBundle{}, fmt.Errorf("postgres: latest features for %s: %w", tokenID, err)
	}

	if err := json.Unmarshal(vals, &bundle.Values); err != nil {
		return domain.FeatureBundle{}, fmt.Errorf("postgres: unmarshal features for %s: %w", tokenID, err)
	}
	return bundle, nil
}
