package domain

import (
	"math"
	"time"
)

// Well-known feature keys produced by the external feature-engineering
// pipeline. Any key may be absent from a bundle; readers must fall back to a
// neutral default instead of failing.
const (
	FeatureRSI14               = "rsi_14"
	FeatureMACD                = "macd"
	FeatureMACDSignal          = "macd_signal"
	FeatureBBPosition          = "bb_position"
	FeaturePriceChange7D       = "price_change_7d"
	FeatureVolumeRatio         = "volume_ratio"
	FeatureVolatility7D        = "volatility_7d"
	FeatureCurrentPrice        = "current_price"
	FeatureSocialScore         = "social_score"
	FeatureSentiment           = "sentiment"
	FeatureCompositeSocial     = "composite_social_score"
	FeatureTweets24H           = "tweets_24h"
	FeatureRedditPosts24H      = "reddit_posts_24h"
	FeatureSocialVolume24H     = "social_volume_24h"
	FeatureEventsCount14D      = "events_count_14d"
	FeatureAvgEventImpact      = "average_event_impact"
	FeaturePositiveEvents14D   = "positive_events_14d"
	FeatureNegativeEvents14D   = "negative_events_14d"
	FeatureEventSentimentRatio = "event_sentiment_ratio"
	FeatureScheduledEvents14D  = "scheduled_events_14d"
)

// FeatureBundle is one snapshot of engineered features for a token, as named
// floats. Bundles are produced upstream and consumed read-only here.
type FeatureBundle struct {
	TokenID   string
	Values    map[string]float64
	Timestamp time.Time
}

// Value returns the named feature, or def when the key is absent or the
// stored value is NaN/Inf. Malformed inputs never propagate into scoring.
func (f FeatureBundle) Value(key string, def float64) float64 {
	v, ok := f.Values[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
