// Package monitor runs background health checks over the scoring and trading
// pipeline and triggers archival of aged records.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modacrypto/modabot/internal/domain"
	"github.com/modacrypto/modabot/internal/notify"
	"github.com/modacrypto/modabot/internal/service"
)

// Config holds monitor thresholds and intervals.
type Config struct {
	CheckInterval    time.Duration
	SignalStaleAfter time.Duration
	MaxDrawdownPct   float64
	ArchiveAfter     time.Duration
	ArchiveInterval  time.Duration
	InitialCash      float64
}

// Reporter produces portfolio performance summaries.
type Reporter interface {
	Report(ctx context.Context) (service.PerformanceReport, error)
}

// ArchiveRunner exports and purges aged records.
type ArchiveRunner interface {
	ArchiveSignals(ctx context.Context, cutoff time.Time) (int64, error)
	ArchiveTrades(ctx context.Context, cutoff time.Time) (int64, error)
}

// Alerter delivers filtered notifications.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Monitor periodically checks pipeline health and fires alerts when the
// signal flow stalls, scoring passes fail, or realized drawdown exceeds the
// configured limit. It also drives periodic archival.
type Monitor struct {
	signals  domain.SignalStore
	runs     domain.RunStore
	reporter Reporter
	archiver ArchiveRunner
	alerter  Alerter
	cfg      Config
	logger   *slog.Logger

	// lastRunCheck bounds the failed-run scan window between ticks.
	lastRunCheck time.Time
}

// New creates a Monitor. archiver and alerter may be nil, in which case the
// corresponding work is skipped.
func New(
	signals domain.SignalStore,
	runs domain.RunStore,
	reporter Reporter,
	archiver ArchiveRunner,
	alerter Alerter,
	cfg Config,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		signals:  signals,
		runs:     runs,
		reporter: reporter,
		archiver: archiver,
		alerter:  alerter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "monitor")),
	}
}

// Run blocks until ctx is cancelled, performing health checks every
// CheckInterval and archival every ArchiveInterval.
func (m *Monitor) Run(ctx context.Context) error {
	checkInterval := m.cfg.CheckInterval
	if checkInterval <= 0 {
		checkInterval = 5 * time.Minute
	}
	checkTicker := time.NewTicker(checkInterval)
	defer checkTicker.Stop()

	archiveInterval := m.cfg.ArchiveInterval
	if archiveInterval <= 0 {
		archiveInterval = 24 * time.Hour
	}
	archiveTicker := time.NewTicker(archiveInterval)
	defer archiveTicker.Stop()

	m.lastRunCheck = time.Now()
	m.logger.Info("monitor started",
		slog.Duration("check_interval", checkInterval),
		slog.Duration("archive_interval", archiveInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-checkTicker.C:
			m.runChecks(ctx)
		case <-archiveTicker.C:
			m.runArchival(ctx)
		}
	}
}

// runChecks performs one round of health checks. Individual check failures
// are logged and do not stop the remaining checks.
func (m *Monitor) runChecks(ctx context.Context) {
	if err := m.checkSignalFreshness(ctx); err != nil {
		m.logger.Error("signal freshness check failed", slog.String("error", err.Error()))
	}
	if err := m.checkFailedRuns(ctx); err != nil {
		m.logger.Error("failed run check failed", slog.String("error", err.Error()))
	}
	if err := m.checkDrawdown(ctx); err != nil {
		m.logger.Error("drawdown check failed", slog.String("error", err.Error()))
	}
}

func (m *Monitor) checkSignalFreshness(ctx context.Context) error {
	since := time.Now().Add(-m.cfg.SignalStaleAfter)
	recent, err := m.signals.Recent(ctx, since)
	if err != nil {
		return fmt.Errorf("monitor: recent signals: %w", err)
	}
	if len(recent) > 0 {
		return nil
	}

	m.logger.Warn("no recent signals", slog.Duration("window", m.cfg.SignalStaleAfter))
	m.alert(ctx, notify.EventSignalStale, "Signal flow stalled",
		fmt.Sprintf("No signals produced in the last %s.", m.cfg.SignalStaleAfter))
	return nil
}

func (m *Monitor) checkFailedRuns(ctx context.Context) error {
	since := m.lastRunCheck
	m.lastRunCheck = time.Now()

	runs, err := m.runs.Recent(ctx, since)
	if err != nil {
		return fmt.Errorf("monitor: recent runs: %w", err)
	}

	for _, run := range runs {
		if run.Status == "ok" {
			continue
		}
		m.logger.Warn("degraded run",
			slog.String("service", run.Service),
			slog.String("status", run.Status),
			slog.Int("count", run.Count),
		)
		m.alert(ctx, notify.EventRunFailed, "Degraded pass",
			fmt.Sprintf("%s pass finished with status %q (%d processed).",
				run.Service, run.Status, run.Count))
	}
	return nil
}

func (m *Monitor) checkDrawdown(ctx context.Context) error {
	if m.reporter == nil || m.cfg.InitialCash <= 0 {
		return nil
	}

	report, err := m.reporter.Report(ctx)
	if err != nil {
		return fmt.Errorf("monitor: performance report: %w", err)
	}
	if report.RealizedPnL >= 0 {
		return nil
	}

	drawdown := -report.RealizedPnL / m.cfg.InitialCash
	if drawdown < m.cfg.MaxDrawdownPct {
		return nil
	}

	m.logger.Warn("drawdown limit exceeded",
		slog.Float64("drawdown", drawdown),
		slog.Float64("limit", m.cfg.MaxDrawdownPct),
	)
	m.alert(ctx, notify.EventDrawdownAlert, "Drawdown limit exceeded",
		fmt.Sprintf("Realized drawdown %.1f%% exceeds the %.1f%% limit.",
			drawdown*100, m.cfg.MaxDrawdownPct*100))
	return nil
}

// runArchival exports signals and closed trades older than ArchiveAfter.
func (m *Monitor) runArchival(ctx context.Context) {
	if m.archiver == nil {
		return
	}
	cutoff := time.Now().Add(-m.cfg.ArchiveAfter)

	sigCount, err := m.archiver.ArchiveSignals(ctx, cutoff)
	if err != nil {
		m.logger.Error("signal archival failed", slog.String("error", err.Error()))
	}
	tradeCount, err := m.archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		m.logger.Error("trade archival failed", slog.String("error", err.Error()))
	}

	if sigCount > 0 || tradeCount > 0 {
		m.alert(ctx, notify.EventArchiveComplete, "Archive complete",
			fmt.Sprintf("Archived %d signals and %d trades older than %s.",
				sigCount, tradeCount, cutoff.Format("2006-01-02")))
	}
}

func (m *Monitor) alert(ctx context.Context, event, title, message string) {
	if m.alerter == nil {
		return
	}
	if err := m.alerter.Notify(ctx, event, title, message); err != nil {
		m.logger.Error("alert delivery failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
