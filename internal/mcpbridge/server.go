// Package mcpbridge implements a stdio Model Context Protocol (MCP) server
// that answers the handshake locally and forwards tools/list and tools/call
// to a remote HTTP tool server.
//
// The bridge speaks newline-delimited JSON-RPC 2.0 and handles one message
// at a time: each line is fully resolved, including any backend round trip,
// before the next one is read.
package mcpbridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openmost/mcp-http-bridge/internal/telemetry"
	"go.uber.org/zap"
)

// Bridge translates between the stdio JSON-RPC host and the HTTP backend.
type Bridge struct {
	forwarder Forwarder
	routes    map[string]route
	cache     *toolsCache
	metrics   *telemetry.Metrics
	logger    *zap.Logger

	// lastID is the most recent synthetic id. Only the serving goroutine
	// touches it.
	lastID int64
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithServerInfo sets the identity reported by initialize.
func WithServerInfo(info ServerInfo) Option {
	return func(b *Bridge) {
		b.routes = newRoutes(info)
	}
}

// WithToolsCacheTTL caches successful tools/list results for ttl.
// Zero disables caching.
func WithToolsCacheTTL(ttl time.Duration) Option {
	return func(b *Bridge) {
		if ttl > 0 {
			b.cache = newToolsCache(ttl)
		} else {
			b.cache = nil
		}
	}
}

// WithMetrics records bridge activity on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// New creates a Bridge that forwards through f. logger receives diagnostics
// only and must not write to the protocol stream.
func New(f Forwarder, logger *zap.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		forwarder: f,
		routes:    newRoutes(ServerInfo{Name: "openmost-matomo-mcp", Version: "1.0.0"}),
		logger:    logger,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Serve reads messages from r and writes responses to w until r is
// exhausted or ctx is cancelled. EOF is a clean stop.
func (b *Bridge) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	in := bufio.NewReader(r)
	out := bufio.NewWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := in.ReadBytes('\n')
		if len(line) > 0 {
			if resp := b.Handle(ctx, line); resp != nil {
				if _, err := out.Write(resp); err != nil {
					return fmt.Errorf("write response: %w", err)
				}
				if err := out.Flush(); err != nil {
					return fmt.Errorf("write response: %w", err)
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read message: %w", readErr)
		}
	}
}

// Handle processes one input line and returns the newline-terminated
// response, or nil when nothing must be written (blank line or notification).
func (b *Bridge) Handle(ctx context.Context, line []byte) (out []byte) {
	id := nullID
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("panic while handling message", zap.Any("panic", p), zap.ByteString("id", id))
			out = b.encode(errorResponse(id, fmt.Errorf("%v", p)))
		}
	}()

	resp := b.handle(ctx, line, &id)
	if resp == nil {
		return nil
	}
	if resp.Error != nil {
		b.metrics.RecordError(errorCode(resp.Error))
	}
	return b.encode(resp)
}

func (b *Bridge) handle(ctx context.Context, line []byte, id *json.RawMessage) *response {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	req, err := parseRequest(line)
	if err != nil {
		b.logger.Warn("rejecting message", zap.Error(err), zap.Int("bytes", len(line)))
		b.metrics.RecordMessage("", telemetry.OutcomeError)
		return errorResponse(nullID, err)
	}
	if req.id == nil {
		b.lastID++
		req.assignID(b.lastID)
	}
	*id = req.id

	b.logger.Debug("received request", zap.String("method", req.method), zap.ByteString("id", req.id))

	r := b.routes[req.method]
	switch r.outcome {
	case outcomeSuppressed:
		b.metrics.RecordMessage(req.method, telemetry.OutcomeSuppressed)
		return nil

	case outcomeLocal:
		b.metrics.RecordMessage(req.method, telemetry.OutcomeLocal)
		return resultResponse(req.id, r.result)

	case outcomeForward:
		result, err := b.forward(ctx, req)
		if err != nil {
			b.logger.Warn("forward failed",
				zap.String("method", req.method),
				zap.ByteString("id", req.id),
				zap.Error(err),
			)
			return errorResponse(req.id, err)
		}
		return resultResponse(req.id, result)

	default:
		b.logger.Warn("method not found", zap.String("method", req.method))
		b.metrics.RecordMessage("unknown", telemetry.OutcomeError)
		return errorResponse(req.id, &MethodNotFoundError{Method: req.method})
	}
}

// forward sends req to the backend and translates the reply.
func (b *Bridge) forward(ctx context.Context, req *request) (json.RawMessage, error) {
	cacheable := b.cache != nil && req.method == methodToolsList
	key := req.params()
	if cacheable {
		if result, ok := b.cache.get(key); ok {
			b.metrics.RecordMessage(req.method, telemetry.OutcomeCached)
			b.logger.Debug("tools/list served from cache")
			return result, nil
		}
	}

	body, err := json.Marshal(req.fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	b.logger.Debug("forwarding request",
		zap.String("method", req.method),
		zap.ByteString("id", req.id),
		zap.Int("bytes", len(body)),
	)
	b.metrics.RecordMessage(req.method, telemetry.OutcomeForwarded)

	start := time.Now()
	reply, err := b.forwarder.Forward(ctx, body)
	code := 0
	if reply != nil {
		code = reply.StatusCode
	}
	b.metrics.RecordForward(req.method, code, time.Since(start))
	if err != nil {
		return nil, err
	}

	b.logger.Debug("backend replied",
		zap.Int("status", reply.StatusCode),
		zap.Int("bytes", len(reply.Body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	result, err := translate(reply)
	if cacheable {
		if err != nil {
			b.cache.invalidate(key)
		} else {
			b.cache.set(key, result)
		}
	}
	return result, err
}

// encode renders resp, falling back to an internal error if resp itself
// cannot be encoded.
func (b *Bridge) encode(resp *response) []byte {
	out, err := encode(resp)
	if err == nil {
		return out
	}
	b.logger.Error("encode response", zap.Error(err))
	out, _ = encode(errorResponse(resp.ID, err))
	return out
}
