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

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, signal_id, token_id, action, quantity, price,
	total_cost, total_proceeds, pnl, pnl_pct, composite_score, status, ts`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.ID, &t.SignalID, &t.TokenID, &t.Action, &t.Quantity, &t.Price,
			&t.TotalCost, &t.TotalProceeds, &t.PnL, &t.PnLPct,
			&t.CompositeScore, &t.Status, &t.Timestamp,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Add appends a trade to the log and returns its document ID.
func (s *TradeStore) Add(ctx context.Context, t domain.Trade) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	const query = `
		INSERT INTO trades (
			id, signal_id, token_id, action, quantity, price,
			total_cost, total_proceeds, pnl, pnl_pct,
			composite_score, status, ts
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13
		)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.SignalID, t.TokenID, t.Action, t.Quantity, t.Price,
		t.TotalCost, t.TotalProceeds, t.PnL, t.PnLPct,
		t.CompositeScore, t.Status, t.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("postgres: insert trade for %s: %w", t.TokenID, err)
	}
	return t.ID, nil
}

// ListOpen returns all trades whose exposure has not been closed.
func (s *TradeStore) ListOpen(ctx context.Context) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE status = $1 ORDER BY ts DESC`

	rows, err := s.pool.Query(ctx, query, domain.TradeStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open trades: %w", err)
	}
	return trades, nil
}

// CloseOpenTrades flips a token's open trades to closed after a full exit.
func (s *TradeStore) CloseOpenTrades(ctx context.Context, tokenID string) error {
	const query = `UPDATE trades SET status = $1 WHERE token_id = $2 AND status = $3`

	_, err := s.pool.Exec(ctx, query, domain.TradeStatusClosed, tokenID, domain.TradeStatusOpen)
	if err != nil {
		return fmt.Errorf("postgres: close open trades for %s: %w", tokenID, err)
	}
	return nil
}

// ListByStatus returns trades with the given status, newest first.
func (s *TradeStore) ListByStatus(ctx context.Context, status domain.TradeStatus, limit int) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE status = $1 ORDER BY ts DESC`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by status: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by status: %w", err)
	}
	return trades, nil
}

// ClosedBefore returns closed trades older than cutoff, oldest first.
func (s *TradeStore) ClosedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE status = $1 AND ts < $2 ORDER BY ts ASC`
	args := []any{domain.TradeStatusClosed, cutoff}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed trades before: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan closed trades before: %w", err)
	}
	return trades, nil
}

// PurgeClosedBefore deletes closed trades older than cutoff. Returns the
// number deleted. Used after successful archival.
func (s *TradeStore) PurgeClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM trades WHERE status = $1 AND ts < $2`,
		domain.TradeStatusClosed, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge closed trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}
