// Package health probes the backend once at startup so connectivity problems
// show up in the diagnostics before the host sends its first request.
package health

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds probe configuration.
type Config struct {
	ProbeTimeout time.Duration
	UserAgent    string
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(success bool)

// Checker probes the backend base URL.
type Checker struct {
	httpClient *http.Client
	cfg        Config
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger
}

// New creates a new Checker.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	return &Checker{
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// BaseURL strips a trailing /mcp path segment so the probe hits the service
// root rather than the JSON-RPC endpoint.
func BaseURL(serverURL string) string {
	u := strings.TrimRight(serverURL, "/")
	return strings.TrimSuffix(u, "/mcp")
}

// Check probes serverURL's base and logs the outcome. It never fails the
// caller: the bridge keeps serving even if the backend is down at startup.
func (h *Checker) Check(ctx context.Context, serverURL string) bool {
	target := BaseURL(serverURL)
	h.logger.Info("health: probing backend", zap.String("url", target))

	start := time.Now()
	status, err := h.probeEndpoint(ctx, target)
	success := err == nil && status >= 200 && status < 300

	if h.onMetrics != nil {
		h.onMetrics(success)
	}

	switch {
	case err != nil:
		h.logger.Warn("health: backend unreachable", zap.String("url", target), zap.Error(err))
	case !success:
		h.logger.Warn("health: backend responded with error status",
			zap.String("url", target),
			zap.Int("status", status),
		)
	default:
		h.logger.Info("health: backend reachable",
			zap.String("url", target),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return success
}

// probeEndpoint attempts HEAD then GET, returning the last status seen.
func (h *Checker) probeEndpoint(ctx context.Context, endpoint string) (int, error) {
	// Try HEAD first.
	status, err := h.do(ctx, http.MethodHead, endpoint)
	if err == nil && status >= 200 && status < 300 {
		return status, nil
	}

	// Fallback to GET.
	return h.do(ctx, http.MethodGet, endpoint)
}

func (h *Checker) do(ctx context.Context, method, endpoint string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return 0, err
	}
	if h.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", h.cfg.UserAgent)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
