package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fullArgs = []string{"https://mcp.example.com/mcp", "tok", "https://analytics.example.com", "mtok"}

func TestLoad_positionalArgs(t *testing.T) {
	cfg, err := Load(New(), fullArgs)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := Credentials{
		ServerURL:   "https://mcp.example.com/mcp",
		AuthToken:   "tok",
		MatomoHost:  "https://analytics.example.com",
		MatomoToken: "mtok",
	}
	if cfg.Credentials != want {
		t.Errorf("credentials: got %+v, want %+v", cfg.Credentials, want)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("timeout: got %s, want %s", cfg.Timeout, DefaultTimeout)
	}
	if cfg.ToolsCacheTTL != 0 {
		t.Errorf("tools cache TTL: got %s, want 0", cfg.ToolsCacheTTL)
	}
	if cfg.ServerName != DefaultServerName || cfg.ServerVersion != DefaultServerVersion {
		t.Errorf("server identity: got %s/%s", cfg.ServerName, cfg.ServerVersion)
	}
}

func TestLoad_missingParams(t *testing.T) {
	_, err := Load(New(), fullArgs[:2])

	var missing *MissingParamsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingParamsError, got %v", err)
	}
	if got := strings.Join(missing.Names, ","); got != "matomo-host,matomo-token" {
		t.Errorf("missing names: got %q", got)
	}
}

func TestLoad_envFallback(t *testing.T) {
	t.Setenv("MATOMO_HOST", "https://env.example.com")
	t.Setenv("MATOMO_TOKEN_AUTH", "env-mtok")
	t.Setenv("MCP_BRIDGE_TIMEOUT", "5s")

	cfg, err := Load(New(), fullArgs[:2])
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Credentials.MatomoHost != "https://env.example.com" {
		t.Errorf("matomo host: got %q", cfg.Credentials.MatomoHost)
	}
	if cfg.Credentials.MatomoToken != "env-mtok" {
		t.Errorf("matomo token: got %q", cfg.Credentials.MatomoToken)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("timeout: got %s, want 5s", cfg.Timeout)
	}
}

func TestLoad_argsOverrideEnv(t *testing.T) {
	t.Setenv("OPENMOST_MCP_TOKEN", "from-env")

	cfg, err := Load(New(), fullArgs)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Credentials.AuthToken != "tok" {
		t.Errorf("auth token: got %q, want positional value", cfg.Credentials.AuthToken)
	}
}

func TestLoad_tooManyArgs(t *testing.T) {
	if _, err := Load(New(), append(fullArgs, "extra")); err == nil {
		t.Error("expected error for a fifth argument")
	}
}

func TestLoad_invalidServerURL(t *testing.T) {
	for _, raw := range []string{"ftp://mcp.example.com", "not a url", "https://"} {
		args := append([]string{raw}, fullArgs[1:]...)
		if _, err := Load(New(), args); err == nil {
			t.Errorf("expected error for server URL %q", raw)
		}
	}
}

func TestLoad_invalidSettings(t *testing.T) {
	v := New()
	v.Set(KeyTimeout, "0s")
	v.Set(KeyRateLimit, -1)
	v.Set(KeyLogLevel, "loud")

	_, err := Load(v, fullArgs)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"timeout", "rate limit", "log level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	content := "matomo_host: https://file.example.com\nmatomo_token: file-mtok\ntools_cache_ttl: 5m\nrate_limit: 2.5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	v := New()
	if err := ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	cfg, err := Load(v, fullArgs[:2])
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Credentials.MatomoHost != "https://file.example.com" {
		t.Errorf("matomo host: got %q", cfg.Credentials.MatomoHost)
	}
	if cfg.ToolsCacheTTL != 5*time.Minute {
		t.Errorf("tools cache TTL: got %s, want 5m", cfg.ToolsCacheTTL)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("rate limit: got %v, want 2.5", cfg.RateLimit)
	}
}

func TestReadFile_missing(t *testing.T) {
	if err := ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
	if err := ReadFile(New(), ""); err != nil {
		t.Errorf("empty path: unexpected error %v", err)
	}
}

func TestCredentials_masksTokens(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	logger.Info("config", zap.Object("credentials", Credentials{
		ServerURL:  "https://mcp.example.com",
		AuthToken:  "secret",
		MatomoHost: "https://analytics.example.com",
	}))

	fields := logs.All()[0].ContextMap()["credentials"].(map[string]any)
	if fields["auth_token"] != "***" {
		t.Errorf("auth_token: got %v, want ***", fields["auth_token"])
	}
	if fields["matomo_token"] != "NOT SET" {
		t.Errorf("matomo_token: got %v, want NOT SET", fields["matomo_token"])
	}
	if fields["server_url"] != "https://mcp.example.com" {
		t.Errorf("server_url: got %v", fields["server_url"])
	}
}

func TestPositionalNames(t *testing.T) {
	got := strings.Join(PositionalNames(), " ")
	if got != "server-url auth-token matomo-host matomo-token" {
		t.Errorf("got %q", got)
	}
}
