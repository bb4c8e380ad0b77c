// Package archive exports aged signals and closed trades to blob storage as
// JSONL, then purges the archived rows from the primary store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modacrypto/modabot/internal/domain"
)

// archiveBatchLimit caps how many records one archival pass exports.
const archiveBatchLimit = 10000

// SignalArchiveStore provides the signal queries the archiver needs.
type SignalArchiveStore interface {
	OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Signal, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TradeArchiveStore provides the trade queries the archiver needs.
type TradeArchiveStore interface {
	ClosedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Trade, error)
	PurgeClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver moves old records out of the primary store. Purging only happens
// after the upload succeeds, so a failed upload leaves the store untouched.
type Archiver struct {
	writer  domain.BlobWriter
	signals SignalArchiveStore
	trades  TradeArchiveStore
	logger  *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, signals SignalArchiveStore, trades TradeArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:  writer,
		signals: signals,
		trades:  trades,
		logger:  logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveSignals exports signals older than cutoff to blob storage and
// purges them. Returns the number of records archived.
func (a *Archiver) ArchiveSignals(ctx context.Context, cutoff time.Time) (int64, error) {
	signals, err := a.signals.OlderThan(ctx, cutoff, archiveBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("archive: signals query: %w", err)
	}
	if len(signals) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(signals)
	if err != nil {
		return 0, fmt.Errorf("archive: signals marshal: %w", err)
	}

	path := archivePath("signals", cutoff)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive: signals upload: %w", err)
	}

	// Purge only up to the oldest record NOT exported, so records beyond the
	// batch limit survive until the next pass.
	purgeCutoff := cutoff
	if len(signals) == archiveBatchLimit {
		purgeCutoff = signals[len(signals)-1].Timestamp.Add(time.Nanosecond)
	}
	purged, err := a.signals.PurgeBefore(ctx, purgeCutoff)
	if err != nil {
		return int64(len(signals)), fmt.Errorf("archive: signals purge: %w", err)
	}

	a.logger.Info("signals archived",
		slog.String("path", path),
		slog.Int("archived", len(signals)),
		slog.Int64("purged", purged),
	)
	return int64(len(signals)), nil
}

// ArchiveTrades exports closed trades older than cutoff to blob storage and
// purges them. Open trades are never archived. Returns the number of records
// archived.
func (a *Archiver) ArchiveTrades(ctx context.Context, cutoff time.Time) (int64, error) {
	trades, err := a.trades.ClosedBefore(ctx, cutoff, archiveBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("archive: trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("archive: trades marshal: %w", err)
	}

	path := archivePath("trades", cutoff)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive: trades upload: %w", err)
	}

	purgeCutoff := cutoff
	if len(trades) == archiveBatchLimit {
		purgeCutoff = trades[len(trades)-1].Timestamp.Add(time.Nanosecond)
	}
	purged, err := a.trades.PurgeClosedBefore(ctx, purgeCutoff)
	if err != nil {
		return int64(len(trades)), fmt.Errorf("archive: trades purge: %w", err)
	}

	a.logger.Info("trades archived",
		slog.String("path", path),
		slog.Int("archived", len(trades)),
		slog.Int64("purged", purged),
	)
	return int64(len(trades)), nil
}

// archivePath builds the blob key for one archival pass, grouped by the
// cutoff's year-month with the full cutoff timestamp in the object name.
// Records are purged after upload, so no two passes may ever write the same
// key: an overwrite would destroy the only remaining copy of the earlier
// pass's records.
//
//	archive/signals/2025-01/20250103T000000.jsonl
//	archive/trades/2025-01/20250107T120000.jsonl
func archivePath(kind string, cutoff time.Time) string {
	c := cutoff.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, c.Format("2006-01"), c.Format("20060102T150405"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
