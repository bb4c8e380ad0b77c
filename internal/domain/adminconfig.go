package domain

import (
	"fmt"
	"time"
)

// AdminConfig is the externally owned, process-wide scoring configuration.
// It is read fresh at the start of every scoring or execution pass and is
// never written by the core; updates arrive through the adminConfig
// collection from the administrative surface.
type AdminConfig struct {
	Weights           Weights
	MinCompositeScore float64
	UpdatedAt         time.Time
}

// DefaultAdminConfig returns the bootstrap configuration written to the store
// when no adminConfig document exists yet.
func DefaultAdminConfig(minCompositeScore float64) AdminConfig {
	return AdminConfig{
		Weights: Weights{
			ML:        0.4,
			Rule:      0.3,
			Sentiment: 0.2,
			Event:     0.1,
		},
		MinCompositeScore: minCompositeScore,
	}
}

// Validate checks the invariants the configuration owner is responsible for.
// A pass that receives an invalid config must refuse to run rather than
// silently renormalize.
func (c AdminConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("admin config: %w (sum=%.4f)", err, c.Weights.Sum())
	}
	if c.MinCompositeScore < 0.5 || c.MinCompositeScore > 1 {
		return fmt.Errorf("admin config: min composite score %.3f outside [0.5, 1]", c.MinCompositeScore)
	}
	return nil
}
