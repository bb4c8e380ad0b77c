package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modacrypto/modabot/internal/domain"
)

// TokenLister supplies the tokens of a named universe.
type TokenLister interface {
	List(ctx context.Context, universe string) ([]domain.Token, error)
}

// Runner executes full scoring passes over a universe: one signal per token,
// with a run audit entry at the end. Admin configuration is read fresh by
// the caller and applied consistently across the whole pass.
type Runner struct {
	fusion   *Fusion
	tokens   TokenLister
	runs     domain.RunStore
	universe string
	logger   *slog.Logger
}

// NewRunner creates a Runner over the given universe. runs may be nil to
// skip audit logging.
func NewRunner(fusion *Fusion, tokens TokenLister, runs domain.RunStore, universe string, logger *slog.Logger) *Runner {
	return &Runner{
		fusion:   fusion,
		tokens:   tokens,
		runs:     runs,
		universe: universe,
		logger:   logger.With(slog.String("component", "scoring_runner")),
	}
}

// Run scores every token in the universe with the same config snapshot. A
// failing token is logged and skipped; it never aborts the pass. The number
// of signals produced is returned.
func (r *Runner) Run(ctx context.Context, cfg domain.AdminConfig) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("scoring: %w", err)
	}

	start := time.Now()
	toks, err := r.tokens.List(ctx, r.universe)
	if err != nil {
		return 0, fmt.Errorf("scoring: list universe %s: %w", r.universe, err)
	}

	scored := 0
	for _, tok := range toks {
		if ctx.Err() != nil {
			return scored, ctx.Err()
		}
		if _, err := r.fusion.Score(ctx, tok.ID, cfg); err != nil {
			r.logger.ErrorContext(ctx, "token scoring failed",
				slog.String("token_id", tok.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		scored++
	}

	r.recordRun(ctx, scored, len(toks), time.Since(start))
	r.logger.InfoContext(ctx, "scoring pass completed",
		slog.String("universe", r.universe),
		slog.Int("tokens", len(toks)),
		slog.Int("scored", scored),
	)
	return scored, nil
}

func (r *Runner) recordRun(ctx context.Context, scored, total int, elapsed time.Duration) {
	if r.runs == nil {
		return
	}
	status := "ok"
	if scored < total {
		status = "partial"
	}
	run := domain.Run{
		Service:   "scoring",
		Status:    status,
		Count:     scored,
		Duration:  elapsed,
		Timestamp: time.Now().UTC(),
	}
	if err := r.runs.Add(ctx, run); err != nil {
		r.logger.WarnContext(ctx, "run audit write failed", slog.String("error", err.Error()))
	}
}
