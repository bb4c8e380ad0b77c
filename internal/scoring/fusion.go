// Package scoring fuses an ML buy probability with rule, sentiment, and
// event sub-scores into a composite trading signal.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/modacrypto/modabot/internal/domain"
)

// neutralProb is the prior used whenever no ML prediction is available.
const neutralProb = 0.5

// FeatureSource supplies the latest engineered feature bundle for a token.
type FeatureSource interface {
	Features(ctx context.Context, tokenID string) (domain.FeatureBundle, error)
}

// Predictor is the black-box ML probability source. Implementations return a
// buy probability in [0, 1].
type Predictor interface {
	Predict(ctx context.Context, bundle domain.FeatureBundle) (float64, error)
}

// Fusion scores tokens and persists the resulting signals.
type Fusion struct {
	features  FeatureSource
	predictor Predictor
	signals   domain.SignalStore
	logger    *slog.Logger
}

// NewFusion creates a Fusion. predictor may be nil, in which case every
// signal uses the neutral ML prior.
func NewFusion(features FeatureSource, predictor Predictor, signals domain.SignalStore, logger *slog.Logger) *Fusion {
	return &Fusion{
		features:  features,
		predictor: predictor,
		signals:   signals,
		logger:    logger.With(slog.String("component", "fusion")),
	}
}

// Fuse combines a feature bundle and an ML probability into a Signal using
// the given configuration. It is pure: no I/O, no clock reads beyond the
// caller-supplied timestamp, and no mutation of its inputs.
//
// The composite score is the weighted sum of the four component scores. The
// action is buy when the composite reaches cfg.MinCompositeScore, sell when
// it is at or below the mirrored threshold, and hold otherwise.
func Fuse(bundle domain.FeatureBundle, mlProb float64, cfg domain.AdminConfig, now time.Time) domain.Signal {
	rule := ruleScore(bundle)
	sentiment := sentimentScore(bundle)
	event := eventScore(bundle)

	w := cfg.Weights
	composite := mlProb*w.ML + rule*w.Rule + sentiment*w.Sentiment + event*w.Event

	action := domain.ActionHold
	switch {
	case composite >= cfg.MinCompositeScore:
		action = domain.ActionBuy
	case composite <= 1-cfg.MinCompositeScore:
		action = domain.ActionSell
	}

	return domain.Signal{
		TokenID:        bundle.TokenID,
		MLProb:         mlProb,
		RuleScore:      rule,
		SentimentScore: sentiment,
		EventScore:     event,
		CompositeScore: composite,
		Action:         action,
		Confidence:     math.Abs(composite-0.5) * 2,
		WeightsUsed:    w,
		MinThreshold:   cfg.MinCompositeScore,
		Timestamp:      now,
	}
}

// Score computes and persists a signal for one token. The caller is
// responsible for validating cfg before the pass; Score re-checks it and
// refuses to run on invalid weights. Missing or failing upstream inputs are
// absorbed as neutral defaults and never fail the computation.
func (f *Fusion) Score(ctx context.Context, tokenID string, cfg domain.AdminConfig) (domain.Signal, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Signal{}, fmt.Errorf("scoring: %w", err)
	}

	bundle, err := f.features.Features(ctx, tokenID)
	if err != nil {
		// A token with no features still gets a neutral score.
		f.logger.WarnContext(ctx, "no features, scoring with neutral defaults",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		bundle = domain.FeatureBundle{TokenID: tokenID}
	}

	sig := Fuse(bundle, f.mlProb(ctx, bundle), cfg, time.Now().UTC())
	sig.TokenID = tokenID

	id, err := f.signals.Add(ctx, sig)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("scoring: store signal for %s: %w", tokenID, err)
	}
	sig.ID = id

	f.logger.DebugContext(ctx, "signal generated",
		slog.String("token_id", tokenID),
		slog.String("action", string(sig.Action)),
		slog.Float64("composite_score", sig.CompositeScore),
	)
	return sig, nil
}

// mlProb asks the predictor for a buy probability, falling back to the
// neutral prior when the predictor is absent, fails, or returns a value
// outside [0, 1].
func (f *Fusion) mlProb(ctx context.Context, bundle domain.FeatureBundle) float64 {
	if f.predictor == nil {
		return neutralProb
	}
	prob, err := f.predictor.Predict(ctx, bundle)
	if err != nil {
		f.logger.WarnContext(ctx, "prediction failed, using neutral prior",
			slog.String("token_id", bundle.TokenID),
			slog.String("error", err.Error()),
		)
		return neutralProb
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return neutralProb
	}
	return prob
}
