package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func notifyLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyAllowList(t *testing.T) {
	sender := &recordingSender{name: "telegram"}
	n := NewNotifier([]Sender{sender}, []string{EventTradeExecuted}, notifyLogger())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, EventTradeExecuted, "Trade", "bought"))
	require.NoError(t, n.Notify(ctx, EventBatchComplete, "Batch", "done"))

	assert.Equal(t, []string{"Trade"}, sender.titles)
}

func TestNotifyEmptyAllowListPassesEverything(t *testing.T) {
	sender := &recordingSender{name: "discord"}
	n := NewNotifier([]Sender{sender}, nil, notifyLogger())

	require.NoError(t, n.Notify(context.Background(), EventDrawdownAlert, "Drawdown", "limit hit"))
	assert.Len(t, sender.titles, 1)
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	broken := &recordingSender{name: "telegram", err: errors.New("chat not found")}
	working := &recordingSender{name: "discord"}
	n := NewNotifier([]Sender{broken, working}, nil, notifyLogger())

	err := n.NotifyAll(context.Background(), "Alert", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Equal(t, []string{"Alert"}, working.titles)
}
