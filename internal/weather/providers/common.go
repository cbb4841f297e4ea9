package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/forecast-drift/internal/forecast"
)

const (
	userAgent    = "forecast-drift/1.0 (github.com/i474232898/forecast-drift)"
	maxBodyBytes = 8 << 20
)

// ClientConfig controls the shared outbound HTTP client.
type ClientConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultClientConfig mirrors the retry budget used for every upstream.
func DefaultClientConfig(timeout time.Duration) ClientConfig {
	return ClientConfig{
		Timeout:      timeout,
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// NewHTTPClient builds a retrying client with exponential backoff. The final
// response is passed through after retries so status codes can be mapped.
func NewHTTPClient(cfg ClientConfig) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// getJSON performs a GET through the circuit breaker and returns the body.
func getJSON(
	ctx context.Context,
	client *retryablehttp.Client,
	cb *gobreaker.CircuitBreaker,
	rawURL string,
	accept string,
) ([]byte, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	result, err := cb.Execute(func() (interface{}, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", userAgent)

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, errRateLimited
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("%w: response is not JSON", errUnexpected)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

// numberOf converts a JSON value into a nullable number. Numeric strings are
// accepted; null, missing and anything else is null.
func numberOf(v gjson.Result) forecast.Number {
	switch v.Type {
	case gjson.Number:
		return forecast.Num(v.Float())
	case gjson.String:
		return forecast.ParseNumber(v.Str)
	}
	return forecast.Null()
}

// stringOf returns the string value, or "" for null and missing values.
func stringOf(v gjson.Result) string {
	if v.Type == gjson.Null || !v.Exists() {
		return ""
	}
	return v.String()
}
