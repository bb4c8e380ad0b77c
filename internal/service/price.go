package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/modacrypto/modabot/internal/domain"
)

// PriceService resolves the current market price for a token: the live price
// cache first, then the newest stored feature bundle's current_price. A
// non-positive result means the price is unavailable.
type PriceService struct {
	cache    domain.PriceCache
	features domain.FeatureStore
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewPriceService creates a PriceService. cache may be nil; maxAge bounds how
// stale a cached tick may be before falling through to stored features
// (zero disables the staleness check).
func NewPriceService(cache domain.PriceCache, features domain.FeatureStore, maxAge time.Duration, logger *slog.Logger) *PriceService {
	return &PriceService{
		cache:    cache,
		features: features,
		maxAge:   maxAge,
		logger:   logger.With(slog.String("component", "price")),
	}
}

// CurrentPrice returns the best known price for the token, or 0 when no
// usable price exists. Lookup failures are absorbed: the executor treats a
// non-positive price as a no_price_data skip, which is the desired outcome
// for an unreachable price source too.
func (s *PriceService) CurrentPrice(ctx context.Context, tokenID string) (float64, error) {
	if s.cache != nil {
		price, ts, err := s.cache.GetPrice(ctx, tokenID)
		switch {
		case err == nil && price > 0 && (s.maxAge <= 0 || time.Since(ts) <= s.maxAge):
			return price, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			s.logger.WarnContext(ctx, "price cache lookup failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}

	bundle, err := s.features.Latest(ctx, tokenID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "feature price lookup failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
		return 0, nil
	}

	if price := bundle.Value(domain.FeatureCurrentPrice, 0); price > 0 {
		return price, nil
	}
	return 0, nil
}
