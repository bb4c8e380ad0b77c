package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modacrypto/modabot/internal/domain"
)

// AdminConfigStore implements domain.AdminConfigStore using PostgreSQL.
// The configuration is a singleton row; Get bootstraps the default document
// when none exists yet.
type AdminConfigStore struct {
	pool *pgxpool.Pool

	// bootstrapMinScore seeds min_composite_score on first access.
	bootstrapMinScore float64
}

// NewAdminConfigStore creates a new AdminConfigStore backed by the given
// connection pool. bootstrapMinScore is used when the singleton row does not
// exist yet.
func NewAdminConfigStore(pool *pgxpool.Pool, bootstrapMinScore float64) *AdminConfigStore {
	return &AdminConfigStore{pool: pool, bootstrapMinScore: bootstrapMinScore}
}

// Get returns the current scoring configuration. When no row exists yet the
// store writes and returns the bootstrap default.
func (s *AdminConfigStore) Get(ctx context.Context) (domain.AdminConfig, error) {
	const query = `
		SELECT weight_ml, weight_rule, weight_sentiment, weight_event,
		       min_composite_score, updated_at
		FROM admin_config WHERE id = 1`

	var cfg domain.AdminConfig
	err := s.pool.QueryRow(ctx, query).Scan(
		&cfg.Weights.ML, &cfg.Weights.Rule, &cfg.Weights.Sentiment,
		&cfg.Weights.Event, &cfg.MinCompositeScore, &cfg.UpdatedAt,
	)
	if err == nil {
		return cfg, nil
	}
	if err != pgx.ErrNoRows {
		return domain.AdminConfig{}, fmt.Errorf("postgres: get admin config: %w", err)
	}

	cfg = domain.DefaultAdminConfig(s.bootstrapMinScore)
	cfg.UpdatedAt = time.Now().UTC()
	if err := s.Set(ctx, cfg); err != nil {
		return domain.AdminConfig{}, fmt.Errorf("postgres: bootstrap admin config: %w", err)
	}
	return cfg, nil
}

// Set upserts the singleton configuration row.
func (s *AdminConfigStore) Set(ctx context.Context, cfg domain.AdminConfig) error {
	const query = `
		INSERT INTO admin_config (
			id, weight_ml, weight_rule, weight_sentiment, weight_event,
			min_composite_score, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			weight_ml           = EXCLUDED.weight_ml,
			weight_rule         = EXCLUDED.weight_rule,
			weight_sentiment    = EXCLUDED.weight_sentiment,
			weight_event        = EXCLUDED.weight_event,
			min_composite_score = EXCLUDED.min_composite_score,
			updated_at          = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		cfg.Weights.ML, cfg.Weights.Rule, cfg.Weights.Sentiment,
		cfg.Weights.Event, cfg.MinCompositeScore, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert admin config: %w", err)
	}
	return nil
}
