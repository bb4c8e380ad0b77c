package service

import (
	"context"

	"github.com/modacrypto/modabot/internal/domain"
)

// FeatureService exposes the stored feature bundles to the scoring pass.
type FeatureService struct {
	store domain.FeatureStore
}

// NewFeatureService creates a FeatureService over the given store.
func NewFeatureService(store domain.FeatureStore) *FeatureService {
	return &FeatureService{store: store}
}

// Features returns the newest bundle for a token. ErrNotFound is passed
// through; the scorer falls back to neutral defaults.
func (s *FeatureService) Features(ctx context.Context, tokenID string) (domain.FeatureBundle, error) {
	return s.store.Latest(ctx, tokenID)
}
