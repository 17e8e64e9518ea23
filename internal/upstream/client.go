// Package upstream implements the HTTP client for weather data providers.
//
// A fetch is a single bounded-timeout GET against one provider; retries and
// failover live in the router, not here. Payloads pass through opaque: the
// proxy serves whatever the provider returned and only inspects the body far
// enough to recognize a provider-reported error.
package upstream

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/wxrelay/wxrelay/internal/config"
)

// Provider is the static description of one upstream, resolved from config
// at startup and immutable afterwards.
type Provider struct {
	Name       string
	BaseURL    string
	Key        string
	QueryParam string
	KeyParam   string
	Priority   int
}

// FromConfig resolves a ProviderConfig into a Provider with parameter-name
// defaults applied.
func FromConfig(pc config.ProviderConfig) Provider {
	return Provider{
		Name:       pc.Name,
		BaseURL:    pc.BaseURL,
		Key:        pc.Key,
		QueryParam: pc.GetQueryParam(),
		KeyParam:   pc.GetKeyParam(),
		Priority:   pc.Priority,
	}
}

// Client performs bounded-timeout fetches against providers.
type Client struct {
	http    *resty.Client
	timeout time.Duration
}

// NewClient creates a Client with the given per-fetch timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    resty.New().SetTimeout(timeout),
		timeout: timeout,
	}
}

// Fetch requests current conditions for location from one provider and
// returns the raw payload. Failures come back as *TimeoutError or
// *UpstreamError so the breaker and orchestrator can classify them.
func (c *Client) Fetch(ctx context.Context, p Provider, location string) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam(p.QueryParam, location)
	if p.Key != "" {
		req.SetQueryParam(p.KeyParam, p.Key)
	}

	resp, err := req.Get(p.BaseURL)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Provider: p.Name, Duration: c.timeout}
		}
		return nil, &UpstreamError{Provider: p.Name, Reason: err.Error()}
	}

	if code := resp.StatusCode(); code >= 400 {
		return nil, &UpstreamError{Provider: p.Name, StatusCode: code}
	}

	body := resp.Body()
	// Some providers report failures inside a 200 response.
	if errField := gjson.GetBytes(body, "error"); errField.Exists() {
		reason := errField.Get("info").String()
		if reason == "" {
			reason = errField.Get("message").String()
		}
		if reason == "" {
			reason = "provider reported an error"
		}
		return nil, &UpstreamError{Provider: p.Name, StatusCode: resp.StatusCode(), Reason: reason}
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
