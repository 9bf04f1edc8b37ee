package worldtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodyBytes = 1 << 20

// Failure reasons reported by ProviderError.
const (
	ReasonTransport = "transport"
	ReasonStatus    = "status"
	ReasonDecode    = "decode"
	ReasonEmpty     = "empty"
)

// ProviderError describes why the time provider did not yield a timestamp.
type ProviderError struct {
	Reason string
	Status int
	Err    error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Reason == ReasonStatus:
		return fmt.Sprintf("time provider returned status %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("time provider %s: %v", e.Reason, e.Err)
	default:
		return "time provider " + e.Reason
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Client fetches the current time for one timezone from a worldtimeapi-style endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// NewClient builds a client for baseURL/timezone. timeout bounds each call.
func NewClient(baseURL, timezone string, timeout time.Duration, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("time provider base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid time provider base url: %w", err)
	}
	timezone = strings.Trim(strings.TrimSpace(timezone), "/")
	if timezone == "" {
		return nil, fmt.Errorf("timezone is required")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	c := &Client{
		endpoint:   base + "/" + timezone,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the URL queried by CurrentTime.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type timeResponse struct {
	Datetime string `json:"datetime"`
}

// CurrentTime makes a single GET request and returns the raw "datetime" field.
func (c *Client) CurrentTime(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", &ProviderError{Reason: ReasonTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Reason: ReasonTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", &ProviderError{Reason: ReasonStatus, Status: resp.StatusCode}
	}

	var payload timeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		if err == io.EOF {
			return "", &ProviderError{Reason: ReasonEmpty}
		}
		return "", &ProviderError{Reason: ReasonDecode, Err: err}
	}

	datetime := strings.TrimSpace(payload.Datetime)
	if datetime == "" {
		return "", &ProviderError{Reason: ReasonEmpty}
	}
	return datetime, nil
}
