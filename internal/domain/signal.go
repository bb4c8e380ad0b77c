package domain

import "time"

// Action is the trading decision attached to a signal.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Weights are the fusion weights applied to the four component scores when
// computing a composite score. They must sum to 1.0 (within WeightTolerance).
type Weights struct {
	ML        float64 `json:"ml_weight"`
	Rule      float64 `json:"rule_weight"`
	Sentiment float64 `json:"sentiment_weight"`
	Event     float64 `json:"event_weight"`
}

// WeightTolerance is the allowed deviation of the weight sum from 1.0.
const WeightTolerance = 0.001

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.ML + w.Rule + w.Sentiment + w.Event
}

// Validate returns ErrInvalidWeights unless the weights sum to 1.0 within
// tolerance and each weight lies in [0, 1].
func (w Weights) Validate() error {
	for _, v := range []float64{w.ML, w.Rule, w.Sentiment, w.Event} {
		if v < 0 || v > 1 {
			return ErrInvalidWeights
		}
	}
	sum := w.Sum()
	if sum < 1.0-WeightTolerance || sum > 1.0+WeightTolerance {
		return ErrInvalidWeights
	}
	return nil
}

// Signal is an immutable scoring decision for one token. It is created once
// by the fusion pass and never mutated afterwards; the executor only reads it.
type Signal struct {
	ID             string
	TokenID        string
	MLProb         float64
	RuleScore      float64
	SentimentScore float64
	EventScore     float64
	CompositeScore float64
	Action         Action
	Confidence     float64
	WeightsUsed    Weights
	MinThreshold   float64
	Timestamp      time.Time
}

// Qualifies reports whether the signal is actionable for paper trading:
// composite score at or above the threshold and a non-hold action.
func (s Signal) Qualifies(minCompositeScore float64) bool {
	if s.CompositeScore < minCompositeScore {
		return false
	}
	return s.Action == ActionBuy || s.Action == ActionSell
}
