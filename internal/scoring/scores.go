package scoring

import "github.com/modacrypto/modabot/internal/domain"

// The rule, sentiment, and event sub-scores map raw indicators into [0, 1]
// through fixed piecewise bands. The bands are never learned and never
// reconfigured at runtime; missing indicators fall back to the stated
// neutral defaults instead of propagating.

// ruleScore averages five technical sub-scores and damps the result by
// recent volatility.
func ruleScore(f domain.FeatureBundle) float64 {
	var score float64

	// RSI(14): oversold is bullish, overbought bearish.
	switch rsi := f.Value(domain.FeatureRSI14, 50); {
	case rsi < 30:
		score += 0.8
	case rsi < 40:
		score += 0.6
	case rsi > 70:
		score += 0.2
	case rsi > 60:
		score += 0.4
	default:
		score += 0.5
	}

	// MACD vs. its signal line.
	macd := f.Value(domain.FeatureMACD, 0)
	macdSignal := f.Value(domain.FeatureMACDSignal, 0)
	switch {
	case macd > macdSignal && macd > 0:
		score += 0.8
	case macd > macdSignal:
		score += 0.6
	case macd < macdSignal && macd < 0:
		score += 0.2
	case macd < macdSignal:
		score += 0.4
	default:
		score += 0.5
	}

	// Bollinger band position: 0 = lower band, 1 = upper band.
	switch bb := f.Value(domain.FeatureBBPosition, 0.5); {
	case bb < 0.1:
		score += 0.7
	case bb < 0.3:
		score += 0.6
	case bb > 0.9:
		score += 0.3
	case bb > 0.7:
		score += 0.4
	default:
		score += 0.5
	}

	// 7-day price momentum.
	switch chg := f.Value(domain.FeaturePriceChange7D, 0); {
	case chg > 0.1:
		score += 0.8
	case chg > 0.05:
		score += 0.6
	case chg < -0.1:
		score += 0.2
	case chg < -0.05:
		score += 0.4
	default:
		score += 0.5
	}

	// Volume vs. 7-day average.
	switch ratio := f.Value(domain.FeatureVolumeRatio, 1.0); {
	case ratio > 2.0:
		score += 0.7
	case ratio > 1.5:
		score += 0.6
	case ratio < 0.5:
		score += 0.4
	default:
		score += 0.5
	}

	// High volatility reduces confidence in the technical read; an unusually
	// quiet tape slightly so.
	switch vol := f.Value(domain.FeatureVolatility7D, 0.05); {
	case vol > 0.15:
		score *= 0.9
	case vol < 0.02:
		score *= 0.95
	}

	return score / 5
}

// sentimentScore blends normalized social metrics and boosts the result when
// social activity is elevated. The result is clamped to at most 1.0.
func sentimentScore(f domain.FeatureBundle) float64 {
	socialScore := f.Value(domain.FeatureSocialScore, 50)
	sentiment := f.Value(domain.FeatureSentiment, 0)
	compositeSocial := f.Value(domain.FeatureCompositeSocial, 0.5)

	// Social score is on a 0-100 scale; providers occasionally report larger
	// magnitudes, mapped onto a 0-1000 scale instead.
	normalizedSocial := socialScore / 100
	if socialScore > 100 {
		normalizedSocial = min(socialScore/1000, 1.0)
	}

	// Sentiment is assumed to be on a -5..+5 scale.
	normalizedSentiment := 0.5
	if sentiment >= -5 && sentiment <= 5 {
		normalizedSentiment = (sentiment + 5) / 10
	}

	score := normalizedSocial*0.4 + normalizedSentiment*0.4 + compositeSocial*0.2

	tweets := f.Value(domain.FeatureTweets24H, 0)
	redditPosts := f.Value(domain.FeatureRedditPosts24H, 0)
	socialVolume := f.Value(domain.FeatureSocialVolume24H, 0)

	multiplier := 1.0
	switch {
	case tweets > 100 || redditPosts > 50 || socialVolume > 1000:
		multiplier = 1.10
	case tweets > 50 || redditPosts > 20 || socialVolume > 500:
		multiplier = 1.05
	}

	return min(score*multiplier, 1.0)
}

// eventScore derives a score from the trailing event window. With no events
// it stays at the neutral 0.5.
func eventScore(f domain.FeatureBundle) float64 {
	if f.Value(domain.FeatureEventsCount14D, 0) <= 0 {
		return 0.5
	}

	score := f.Value(domain.FeatureAvgEventImpact, 0)

	// Event sentiment ratio contributes -0.2..+0.2.
	score += f.Value(domain.FeatureEventSentimentRatio, 0) * 0.2

	if f.Value(domain.FeaturePositiveEvents14D, 0) > f.Value(domain.FeatureNegativeEvents14D, 0) {
		score += 0.1
	}

	if scheduled := f.Value(domain.FeatureScheduledEvents14D, 0); scheduled > 0 {
		score += min(scheduled*0.05, 0.2)
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
