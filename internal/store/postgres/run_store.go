package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modacrypto/modabot/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Add appends one audit entry. Duration is stored as nanoseconds.
func (s *RunStore) Add(ctx context.Context, run domain.Run) error {
	const query = `
		INSERT INTO runs (service, status, count, duration, ts)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		run.Service, run.Status, run.Count, int64(run.Duration), run.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run for %s: %w", run.Service, err)
	}
	return nil
}

// Recent returns audit entries with timestamp at or after since, newest first.
func (s *RunStore) Recent(ctx context.Context, since time.Time) ([]domain.Run, error) {
	const query = `
		SELECT id, service, status, count, duration, ts FROM runs
		WHERE ts >= $1 ORDER BY ts DESC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var r domain.Run
		var durNS int64
		if err := rows.Scan(&r.ID, &r.Service, &r.Status, &r.Count, &durNS, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		r.Duration = time.Duration(durNS)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate recent runs: %w", err)
	}
	return runs, nil
}
