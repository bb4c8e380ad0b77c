package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modacrypto/modabot/internal/domain"
)

// SignalStore implements domain.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a new SignalStore backed by the given connection pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

const signalSelectCols = `id, token_id, ml_prob, rule_score, sentiment_score,
	event_score, composite_score, action, confidence,
	weight_ml, weight_rule, weight_sentiment, weight_event, min_threshold, ts`

func scanSignalRows(rows pgx.Rows) ([]domain.Signal, error) {
	var signals []domain.Signal
	for rows.Next() {
		var s domain.Signal
		if err := rows.Scan(
			&s.ID, &s.TokenID, &s.MLProb, &s.RuleScore, &s.SentimentScore,
			&s.EventScore, &s.CompositeScore, &s.Action, &s.Confidence,
			&s.WeightsUsed.ML, &s.WeightsUsed.Rule, &s.WeightsUsed.Sentiment,
			&s.WeightsUsed.Event, &s.MinThreshold, &s.Timestamp,
		); err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// Add inserts a signal and returns its document ID. A fresh ID is generated
// when the signal does not carry one.
func (s *SignalStore) Add(ctx context.Context, sig domain.Signal) (string, error) {
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}

	const query = `
		INSERT INTO signals (
			id, token_id, ml_prob, rule_score, sentiment_score,
			event_score, composite_score, action, confidence,
			weight_ml, weight_rule, weight_sentiment, weight_event,
			min_threshold, ts
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15
		)`

	_, err := s.pool.Exec(ctx, query,
		sig.ID, sig.TokenID, sig.MLProb, sig.RuleScore, sig.SentimentScore,
		sig.EventScore, sig.CompositeScore, sig.Action, sig.Confidence,
		sig.WeightsUsed.ML, sig.WeightsUsed.Rule, sig.WeightsUsed.Sentiment,
		sig.WeightsUsed.Event, sig.MinThreshold, sig.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("postgres: insert signal for %s: %w", sig.TokenID, err)
	}
	return sig.ID, nil
}

// Recent returns signals with timestamp at or after since, newest first.
func (s *SignalStore) Recent(ctx context.Context, since time.Time) ([]domain.Signal, error) {
	query := `SELECT ` + signalSelectCols + ` FROM signals WHERE ts >= $1 ORDER BY ts DESC`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent signals: %w", err)
	}
	defer rows.Close()

	signals, err := scanSignalRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent signals: %w", err)
	}
	return signals, nil
}

// OlderThan returns up to limit signals older than cutoff, oldest first.
func (s *SignalStore) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Signal, error) {
	query := `SELECT ` + signalSelectCols + ` FROM signals WHERE ts < $1 ORDER BY ts ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals older than: %w", err)
	}
	defer rows.Close()

	signals, err := scanSignalRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan old signals: %w", err)
	}
	return signals, nil
}

// PurgeBefore deletes signals older than cutoff. Returns the number deleted.
func (s *SignalStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM signals WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge signals before: %w", err)
	}
	return tag.RowsAffected(), nil
}
