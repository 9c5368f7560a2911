package source

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"market-dashboard/internal/config"
	"market-dashboard/internal/market"
	"market-dashboard/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPSource downloads the market CSV from a URL.
type HTTPSource struct {
	client     *resty.Client
	url        string
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
	// backoff returns the wait before retry attempt i when the server gave no Retry-After.
	backoff func(i int) time.Duration
}

var _ market.Loader = (*HTTPSource)(nil)

// NewHTTPSource creates an HTTPSource for url.
func NewHTTPSource(url string, cfg *config.Remote, logger *zap.Logger) *HTTPSource {
	client := resty.New().
		SetTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetHeader("Accept", "text/csv")

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &HTTPSource{
		client:     client,
		url:        url,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		maxRetries: maxRetries,
		backoff: func(i int) time.Duration {
			// 1s, 2s, 4s ...
			return time.Duration(math.Pow(2, float64(i))) * time.Second
		},
	}
}

// Load downloads and parses the CSV.
func (s *HTTPSource) Load(ctx context.Context) ([]models.MarketRecord, error) {
	resp, err := s.doRequest(ctx)
	if err != nil {
		s.logger.Error("Failed to download market data", zap.String("url", s.url), zap.Error(err))
		return nil, fmt.Errorf("failed to download market data: %w", err)
	}

	s.logger.Debug("Downloaded market data", zap.String("url", s.url), zap.Int("bytes", len(resp.Body())))
	return market.ParseCSV(bytes.NewReader(resp.Body()))
}

// doRequest executes the GET with rate limiting and retry logic.
func (s *HTTPSource) doRequest(ctx context.Context) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < s.maxRetries; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		s.logger.Debug("Executing request", zap.String("url", s.url), zap.Int("attempt", i+1))
		resp, err = s.client.R().SetContext(ctx).Get(s.url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			err = fmt.Errorf("request failed with status %s", resp.Status())
		} else if ctx.Err() == nil {
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, err
		}
		if i == s.maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			retryAfter = s.backoff(i)
		}

		s.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", s.maxRetries, err)
}
