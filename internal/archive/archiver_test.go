package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modacrypto/modabot/internal/domain"
)

type fakeBlobWriter struct {
	objects map[string][]byte
	err     error
}

func newFakeBlobWriter() *fakeBlobWriter {
	return &fakeBlobWriter{objects: map[string][]byte{}}
}

func (w *fakeBlobWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects[path] = buf
	return nil
}

type fakeSignalArchive struct {
	signals []domain.Signal
	purged  []time.Time
}

func (s *fakeSignalArchive) OlderThan(_ context.Context, cutoff time.Time, limit int) ([]domain.Signal, error) {
	var out []domain.Signal
	for _, sig := range s.signals {
		if sig.Timestamp.Before(cutoff) {
			out = append(out, sig)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeSignalArchive) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.purged = append(s.purged, cutoff)
	var kept []domain.Signal
	var n int64
	for _, sig := range s.signals {
		if sig.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, sig)
	}
	s.signals = kept
	return n, nil
}

type fakeTradeArchive struct {
	trades []domain.Trade
}

func (s *fakeTradeArchive) ClosedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, t := range s.trades {
		if t.Status == domain.TradeStatusClosed && t.Timestamp.Before(cutoff) {
			out = append(out, t)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeTradeArchive) PurgeClosedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.Trade
	var n int64
	for _, t := range s.trades {
		if t.Status == domain.TradeStatusClosed && t.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.trades = kept
	return n, nil
}

func archiveLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveSignals(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	old := domain.Signal{ID: "s1", TokenID: "bitcoin", Timestamp: cutoff.Add(-24 * time.Hour)}
	fresh := domain.Signal{ID: "s2", TokenID: "bitcoin", Timestamp: cutoff.Add(time.Hour)}

	writer := newFakeBlobWriter()
	signals := &fakeSignalArchive{signals: []domain.Signal{old, fresh}}
	a := NewArchiver(writer, signals, &fakeTradeArchive{}, archiveLogger())

	n, err := a.ArchiveSignals(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Archive file is month-grouped JSONL with one record per line.
	data, ok := writer.objects["archive/signals/2026-08/20260801T000000.jsonl"]
	require.True(t, ok)
	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var sig domain.Signal
		require.NoError(t, json.Unmarshal(sc.Bytes(), &sig))
		assert.Equal(t, "s1", sig.ID)
		lines++
	}
	assert.Equal(t, 1, lines)

	// The fresh signal survived the purge.
	require.Len(t, signals.signals, 1)
	assert.Equal(t, "s2", signals.signals[0].ID)
}

func TestArchiveSignalsNothingToDo(t *testing.T) {
	writer := newFakeBlobWriter()
	signals := &fakeSignalArchive{}
	a := NewArchiver(writer, signals, &fakeTradeArchive{}, archiveLogger())

	n, err := a.ArchiveSignals(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.objects)
	assert.Empty(t, signals.purged)
}

func TestArchiveSignalsUploadFailureSkipsPurge(t *testing.T) {
	cutoff := time.Now().UTC()
	writer := newFakeBlobWriter()
	writer.err = errors.New("bucket unreachable")
	signals := &fakeSignalArchive{signals: []domain.Signal{
		{ID: "s1", Timestamp: cutoff.Add(-time.Hour)},
	}}
	a := NewArchiver(writer, signals, &fakeTradeArchive{}, archiveLogger())

	_, err := a.ArchiveSignals(context.Background(), cutoff)
	require.Error(t, err)
	assert.Len(t, signals.signals, 1)
	assert.Empty(t, signals.purged)
}

func TestArchiveTradesSkipsOpen(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	trades := &fakeTradeArchive{trades: []domain.Trade{
		{ID: "t1", Status: domain.TradeStatusClosed, Timestamp: cutoff.Add(-time.Hour)},
		{ID: "t2", Status: domain.TradeStatusOpen, Timestamp: cutoff.Add(-time.Hour)},
	}}
	writer := newFakeBlobWriter()
	a := NewArchiver(writer, &fakeSignalArchive{}, trades, archiveLogger())

	n, err := a.ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The open trade stays in the store.
	require.Len(t, trades.trades, 1)
	assert.Equal(t, "t2", trades.trades[0].ID)
	assert.Contains(t, writer.objects, "archive/trades/2026-08/20260801T000000.jsonl")
}

// Two passes whose cutoffs fall in the same month must not share a blob key:
// the first pass's records only exist in cold storage after the purge, so an
// overwrite would destroy them.
func TestArchiveSignalsTwoPassesSameMonth(t *testing.T) {
	first := domain.Signal{ID: "s-jan-02", TokenID: "bitcoin",
		Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	second := domain.Signal{ID: "s-jan-05", TokenID: "bitcoin",
		Timestamp: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)}

	writer := newFakeBlobWriter()
	signals := &fakeSignalArchive{signals: []domain.Signal{first, second}}
	a := NewArchiver(writer, signals, &fakeTradeArchive{}, archiveLogger())

	n, err := a.ArchiveSignals(context.Background(), time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = a.ArchiveSignals(context.Background(), time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.Len(t, writer.objects, 2)
	assert.Empty(t, signals.signals)

	// Every purged record must still be readable from cold storage.
	found := map[string]bool{}
	for _, data := range writer.objects {
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			var sig domain.Signal
			require.NoError(t, json.Unmarshal(sc.Bytes(), &sig))
			found[sig.ID] = true
		}
	}
	assert.True(t, found["s-jan-02"])
	assert.True(t, found["s-jan-05"])
}
