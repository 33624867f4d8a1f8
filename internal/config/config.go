// Package config loads the bridge's startup configuration.
//
// The four startup parameters (server URL, bearer token, Matomo host and
// Matomo token) are positional arguments. Any that are omitted fall back to
// flags, environment variables and finally an optional YAML file, in that
// order. Everything else is an ordinary flag/env/file setting.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Configuration keys.
const (
	KeyServerURL     = "server_url"
	KeyAuthToken     = "auth_token"
	KeyMatomoHost    = "matomo_host"
	KeyMatomoToken   = "matomo_token"
	KeyTimeout       = "timeout"
	KeyToolsCacheTTL = "tools_cache_ttl"
	KeyRateLimit     = "rate_limit"
	KeyMetricsAddr   = "metrics_addr"
	KeyProbe         = "probe"
	KeyLogLevel      = "log_level"
	KeyServerName    = "server_name"
	KeyServerVersion = "server_version"
)

// Defaults.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultLogLevel      = "info"
	DefaultServerName    = "openmost-matomo-mcp"
	DefaultServerVersion = "1.0.0"
)

// EnvPrefix is applied to every key without a dedicated environment name.
const EnvPrefix = "MCP_BRIDGE"

// positional lists the startup parameters in argument order together with
// the environment variable each one falls back to.
var positional = []struct {
	key  string
	name string
	env  string
}{
	{KeyServerURL, "server-url", "MATOMO_MCP_SERVER_URL"},
	{KeyAuthToken, "auth-token", "OPENMOST_MCP_TOKEN"},
	{KeyMatomoHost, "matomo-host", "MATOMO_HOST"},
	{KeyMatomoToken, "matomo-token", "MATOMO_TOKEN_AUTH"},
}

// PositionalNames returns the startup parameter names in argument order.
func PositionalNames() []string {
	names := make([]string, len(positional))
	for i, p := range positional {
		names[i] = p.name
	}
	return names
}

// Credentials identifies the backend and the Matomo instance it should act on.
// Immutable after startup.
type Credentials struct {
	ServerURL   string
	AuthToken   string
	MatomoHost  string
	MatomoToken string
}

// MarshalLogObject logs the credentials with both tokens masked.
func (c Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("server_url", c.ServerURL)
	enc.AddString("matomo_host", c.MatomoHost)
	enc.AddString("auth_token", mask(c.AuthToken))
	enc.AddString("matomo_token", mask(c.MatomoToken))
	return nil
}

func mask(s string) string {
	if s == "" {
		return "NOT SET"
	}
	return "***"
}

// Config is the fully resolved bridge configuration.
type Config struct {
	Credentials Credentials

	Timeout       time.Duration
	ToolsCacheTTL time.Duration
	RateLimit     float64 // forwarded requests per second; 0 = unlimited
	MetricsAddr   string
	Probe         bool
	LogLevel      string
	ServerName    string
	ServerVersion string
}

// MissingParamsError reports startup parameters that were not supplied by
// any source.
type MissingParamsError struct {
	Names []string
}

func (e *MissingParamsError) Error() string {
	return "missing required parameter(s): " + strings.Join(e.Names, ", ")
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, p := range positional {
		_ = v.BindEnv(p.key, p.env)
	}

	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyToolsCacheTTL, time.Duration(0))
	v.SetDefault(KeyRateLimit, 0.0)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyProbe, false)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyServerName, DefaultServerName)
	v.SetDefault(KeyServerVersion, DefaultServerVersion)
	return v
}

// ReadFile merges the YAML file at path into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration. Non-empty positional args take precedence
// over every other source.
func Load(v *viper.Viper, args []string) (*Config, error) {
	if len(args) > len(positional) {
		return nil, fmt.Errorf("expected at most %d arguments, got %d", len(positional), len(args))
	}
	for i, arg := range args {
		if arg != "" {
			v.Set(positional[i].key, arg)
		}
	}

	var missing []string
	for _, p := range positional {
		if strings.TrimSpace(v.GetString(p.key)) == "" {
			missing = append(missing, p.name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingParamsError{Names: missing}
	}

	cfg := &Config{
		Credentials: Credentials{
			ServerURL:   v.GetString(KeyServerURL),
			AuthToken:   v.GetString(KeyAuthToken),
			MatomoHost:  v.GetString(KeyMatomoHost),
			MatomoToken: v.GetString(KeyMatomoToken),
		},
		Timeout:       v.GetDuration(KeyTimeout),
		ToolsCacheTTL: v.GetDuration(KeyToolsCacheTTL),
		RateLimit:     v.GetFloat64(KeyRateLimit),
		MetricsAddr:   v.GetString(KeyMetricsAddr),
		Probe:         v.GetBool(KeyProbe),
		LogLevel:      v.GetString(KeyLogLevel),
		ServerName:    v.GetString(KeyServerName),
		ServerVersion: v.GetString(KeyServerVersion),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be expressed as defaults.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Credentials.ServerURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid server URL %q: %w", c.Credentials.ServerURL, err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("invalid server URL %q: scheme must be http or https", c.Credentials.ServerURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("invalid server URL %q: missing host", c.Credentials.ServerURL))
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.ToolsCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("tools cache TTL must not be negative, got %s", c.ToolsCacheTTL))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %v", c.RateLimit))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}
