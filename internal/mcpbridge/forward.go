package mcpbridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openmost/mcp-http-bridge/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single backend round trip.
const DefaultTimeout = 30 * time.Second

// maxReplyBytes caps how much of a backend body is read.
const maxReplyBytes = 32 << 20

// Reply is a completed HTTP exchange with the backend.
type Reply struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Forwarder sends a serialized JSON-RPC envelope to the backend. A non-nil
// error means no HTTP response was obtained.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) (*Reply, error)
}

// HTTPForwarder POSTs envelopes to the configured server URL. It makes a
// single attempt per call.
type HTTPForwarder struct {
	creds      config.Credentials
	httpClient *http.Client
	base       http.RoundTripper
	timeout    time.Duration
	limiter    *rate.Limiter
	userAgent  string
}

// ForwarderOption configures an HTTPForwarder.
type ForwarderOption func(*HTTPForwarder) error

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ForwarderOption {
	return func(f *HTTPForwarder) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		f.timeout = d
		return nil
	}
}

// WithBaseTransport sets the transport under the bearer-token layer.
func WithBaseTransport(rt http.RoundTripper) ForwarderOption {
	return func(f *HTTPForwarder) error {
		f.base = rt
		return nil
	}
}

// WithRateLimit throttles outbound calls to rps per second. Zero disables it.
func WithRateLimit(rps float64) ForwarderOption {
	return func(f *HTTPForwarder) error {
		if rps < 0 {
			return fmt.Errorf("rate limit must not be negative, got %v", rps)
		}
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ForwarderOption {
	return func(f *HTTPForwarder) error {
		f.userAgent = ua
		return nil
	}
}

// NewHTTPForwarder creates a forwarder for creds.
func NewHTTPForwarder(creds config.Credentials, opts ...ForwarderOption) (*HTTPForwarder, error) {
	f := &HTTPForwarder{
		creds:     creds,
		base:      http.DefaultTransport,
		timeout:   DefaultTimeout,
		userAgent: "mcp-http-bridge/1.0",
	}
	for _, o := range opts {
		if err := o(f); err != nil {
			return nil, err
		}
	}

	token := &oauth2.Token{AccessToken: creds.AuthToken, TokenType: "Bearer"}
	f.httpClient = &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   f.base,
		},
		Timeout: f.timeout,
	}
	return f, nil
}

// Forward implements Forwarder.
func (f *HTTPForwarder) Forward(ctx context.Context, body []byte) (*Reply, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.creds.ServerURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Matomo-Host", f.creds.MatomoHost)
	req.Header.Set("X-Matomo-Token-Auth", f.creds.MatomoToken)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read backend response: %w", err)}
	}
	return &Reply{StatusCode: resp.StatusCode, Status: resp.Status, Body: data}, nil
}
