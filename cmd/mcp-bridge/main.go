// mcp-bridge lets a host that expects a local stdio MCP server talk to a
// remote HTTP tool server. The MCP handshake is answered locally; tools/list
// and tools/call are POSTed to the server URL.
//
// Add to Claude Desktop (~/.claude/claude_desktop_config.json):
//
//	{
//	  "mcpServers": {
//	    "matomo": {
//	      "command": "/path/to/mcp-bridge",
//	      "args": [
//	        "https://matomo-mcp.openmost.io/mcp",
//	        "<openmost-token>",
//	        "https://analytics.example.com",
//	        "<matomo-token>"
//	      ]
//	    }
//	  }
//	}
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmost/mcp-http-bridge/internal/config"
	"github.com/openmost/mcp-http-bridge/internal/health"
	"github.com/openmost/mcp-http-bridge/internal/mcpbridge"
	"github.com/openmost/mcp-http-bridge/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	v       = config.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcp-bridge <" + strings.Join(config.PositionalNames(), "> <") + ">",
	Short: "stdio MCP bridge to a remote HTTP tool server",
	Long: `mcp-bridge is a stdio MCP server for hosts such as Claude Desktop.

It answers initialize, resources/list and prompts/list itself, ignores
notifications, and forwards tools/list and tools/call to the server URL with
the Matomo credentials attached as headers.

Any startup parameter left out falls back to an environment variable:

  server-url    MATOMO_MCP_SERVER_URL
  auth-token    OPENMOST_MCP_TOKEN
  matomo-host   MATOMO_HOST
  matomo-token  MATOMO_TOKEN_AUTH

Stdout carries the protocol only. All logging goes to stderr.`,
	Version:      version,
	Args:         cobra.MaximumNArgs(len(config.PositionalNames())),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	// Stdout belongs to the protocol.
	rootCmd.SetOut(os.Stderr)
	rootCmd.SetErr(os.Stderr)
	gin.DefaultWriter = os.Stderr

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
	flags.Duration("timeout", config.DefaultTimeout, "Backend request timeout")
	flags.Duration("tools-cache-ttl", 0, "Cache tools/list results for this long (e.g. 5m); 0 disables caching")
	flags.Float64("rate-limit", 0, "Maximum forwarded requests per second; 0 = unlimited")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464); empty disables")
	flags.Bool("probe", false, "Probe the backend once at startup and log the result")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	flags.String("server-name", config.DefaultServerName, "Server name reported by initialize")
	flags.String("server-version", config.DefaultServerVersion, "Server version reported by initialize")

	for key, flag := range map[string]string{
		config.KeyTimeout:       "timeout",
		config.KeyToolsCacheTTL: "tools-cache-ttl",
		config.KeyRateLimit:     "rate-limit",
		config.KeyMetricsAddr:   "metrics-addr",
		config.KeyProbe:         "probe",
		config.KeyLogLevel:      "log-level",
		config.KeyServerName:    "server-name",
		config.KeyServerVersion: "server-version",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := config.ReadFile(v, cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(v, args)
	if err != nil {
		var missing *config.MissingParamsError
		if errors.As(err, &missing) {
			_ = cmd.Usage()
		}
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting MCP bridge",
		zap.String("version", version),
		zap.Object("credentials", cfg.Credentials),
		zap.Duration("timeout", cfg.Timeout),
		zap.Duration("tools_cache_ttl", cfg.ToolsCacheTTL),
		zap.Float64("rate_limit", cfg.RateLimit),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	if cfg.MetricsAddr != "" {
		metricsSrv := telemetry.NewServer(cfg.MetricsAddr, reg, logger)
		metricsSrv.Start()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutCtx); err != nil {
				logger.Error("metrics shutdown error", zap.Error(err))
			}
		}()
	}

	// ── Backend ───────────────────────────────────────────────────────────────
	userAgent := "mcp-http-bridge/" + version
	forwarder, err := mcpbridge.NewHTTPForwarder(cfg.Credentials,
		mcpbridge.WithTimeout(cfg.Timeout),
		mcpbridge.WithRateLimit(cfg.RateLimit),
		mcpbridge.WithUserAgent(userAgent),
	)
	if err != nil {
		return fmt.Errorf("create forwarder: %w", err)
	}

	if cfg.Probe {
		checker := health.New(health.Config{UserAgent: userAgent}, logger)
		checker.SetMetricsRecord(metrics.RecordProbe)
		checker.Check(ctx, cfg.Credentials.ServerURL)
	}

	bridge := mcpbridge.New(forwarder, logger,
		mcpbridge.WithServerInfo(mcpbridge.ServerInfo{Name: cfg.ServerName, Version: cfg.ServerVersion}),
		mcpbridge.WithToolsCacheTTL(cfg.ToolsCacheTTL),
		mcpbridge.WithMetrics(metrics),
	)

	// ── Serve ─────────────────────────────────────────────────────────────────
	// Serve blocks on stdin, so a signal is handled here rather than waiting
	// for the next line.
	errc := make(chan error, 1)
	go func() {
		errc <- bridge.Serve(ctx, os.Stdin, os.Stdout)
	}()
	logger.Info("MCP bridge ready", zap.String("server_url", cfg.Credentials.ServerURL))

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("input closed, shutting down")
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
