// Package predictor calls the external ML prediction service. The service
// scores engineered features and returns a probability in [0, 1]; callers
// treat any failure as "model unavailable" and fall back to a neutral score.
package predictor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/modacrypto/modabot/internal/domain"
)

// Config holds connection parameters for the prediction service.
type Config struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
}

// Client is a thin HTTP client for the prediction service. It implements
// scoring.Predictor.
type Client struct {
	rc *resty.Client
}

// NewClient creates a Client for the given service configuration.
func NewClient(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.URL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{rc: rc}
}

type predictRequest struct {
	TokenID  string             `json:"token_id"`
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Probability float64 `json:"probability"`
}

// Predict posts a feature bundle to the prediction service and returns the
// model's buy probability.
func (c *Client) Predict(ctx context.Context, bundle domain.FeatureBundle) (float64, error) {
	req := predictRequest{
		TokenID:  bundle.TokenID,
		Features: bundle.Values,
	}

	var out predictResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/predict")
	if err != nil {
		return 0, fmt.Errorf("predictor: predict %s: %w", bundle.TokenID, err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("predictor: predict %s: status %d", bundle.TokenID, resp.StatusCode())
	}

	return out.Probability, nil
}
