// Package config handles loading and validating the proxy's configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppConfig is the root configuration object, generalized from the
// teacher's flat provider map into the richer tree SPEC_FULL.md §3
// describes. Loaded once at startup and shared by reference thereafter.
//
// Grounded on original_source/src/config/models.rs field-for-field; the
// loading precedence (defaults -> file -> env) is grounded on the
// teacher's internal/config/config.go.
type AppConfig struct {
	Server      ServerConfig      `koanf:"server"`
	OAuth       OAuthConfig       `koanf:"oauth"`
	Gemini      GeminiConfig      `koanf:"gemini"`
	Logging     LoggingConfig     `koanf:"logging"`
	Performance PerformanceConfig `koanf:"performance"`
	Translation TranslationConfig `koanf:"translation"`
	Cache       CacheConfig       `koanf:"cache"`
	EventLog    EventLogConfig    `koanf:"eventlog"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	Workers int    `koanf:"workers"`
}

// OAuthConfig holds Google Cloud OAuth2 authentication settings.
type OAuthConfig struct {
	CredentialsPath      string `koanf:"credentials_path"`
	AutoRefresh          bool   `koanf:"auto_refresh"`
	RefreshBufferSeconds int64  `koanf:"refresh_buffer_seconds"`
}

// GeminiConfig holds upstream Gemini API connection settings.
type GeminiConfig struct {
	APIBaseURL     string `koanf:"api_base_url"`
	DefaultModel   string `koanf:"default_model"`
	TimeoutSeconds int64  `koanf:"timeout_seconds"`
	MaxRetries     int    `koanf:"max_retries"`
}

// LoggingConfig holds logging level, format, and redaction settings.
type LoggingConfig struct {
	Level          string `koanf:"level"`
	Format         string `koanf:"format"`
	SanitizeTokens bool   `koanf:"sanitize_tokens"`
}

// PerformanceConfig holds HTTP connection-pool tuning settings.
type PerformanceConfig struct {
	ConnectionPoolSize int  `koanf:"connection_pool_size"`
	EnableCompression  bool `koanf:"enable_compression"`
}

// TranslationConfig holds the Request Translator's behavioral flags.
type TranslationConfig struct {
	InjectSystemBridgeText  bool `koanf:"inject_system_bridge_text"`
	EnableUltrathinkKeyword bool `koanf:"enable_ultrathink_keyword"`
}

// CacheConfig holds the Context Cache Manager's settings.
type CacheConfig struct {
	Enabled bool `koanf:"enabled"`
}

// EventLogConfig holds the append-only Event Log Sink's settings.
type EventLogConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// envPrefix is the prefix every environment-variable override must carry:
// GEMINI_PROXY_SERVER_PORT -> server.port.
const envPrefix = "GEMINI_PROXY_"

// defaultsMap mirrors defaults() as a flat dotted-key map, the shape
// confmap.Provider needs to seed koanf's lowest-precedence layer.
func defaultsMap() map[string]interface{} {
	return map[string]interface{}{
		"server.host":    "127.0.0.1",
		"server.port":    8080,
		"server.workers": runtime.NumCPU(),

		"oauth.credentials_path":       defaultCredentialsPath(),
		"oauth.auto_refresh":           true,
		"oauth.refresh_buffer_seconds": int64(300),

		"gemini.api_base_url":    "https://cloudcode-pa.googleapis.com/v1internal",
		"gemini.default_model":   "gemini-3-flash-preview",
		"gemini.timeout_seconds": int64(300),
		"gemini.max_retries":     3,

		"logging.level":           "info",
		"logging.format":          "pretty",
		"logging.sanitize_tokens": true,

		"performance.connection_pool_size": 100,
		"performance.enable_compression":   true,

		"translation.inject_system_bridge_text": false,
		"translation.enable_ultrathink_keyword": true,

		"cache.enabled": false,

		"eventlog.enabled": true,
		"eventlog.path":    defaultEventLogPath(),
	}
}

func defaultEventLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".gemini-proxy", "events.log")
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".gemini-proxy", "oauth_creds.json")
}

// DefaultConfigPath returns ~/.gemini-proxy/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".gemini-proxy", "config.yaml")
}

// Load reads configuration layered defaults -> optional YAML file -> env,
// identical precedence to the teacher's Load, generalized to AppConfig.
func Load(path string) (*AppConfig, error) {
	// Load .env into the process environment before env.Provider reads it,
	// same ordering the teacher uses.
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigPath()
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyToPath), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandEnvPlaceholder(&cfg.OAuth.CredentialsPath)
	expandEnvPlaceholder(&cfg.Gemini.APIBaseURL)

	return &cfg, nil
}

// envKeyToPath turns GEMINI_PROXY_GEMINI_MAX_RETRIES into "gemini.max_retries":
// every AppConfig section is exactly one level deep, so only the first
// underscore (the section/field boundary) becomes the koanf path separator;
// remaining underscores are part of the field name itself.
func envKeyToPath(s string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(trimmed, "_", 2)
	return strings.Join(parts, ".")
}

// expandEnvPlaceholder resolves a "${VAR_NAME}" string value against the
// process environment, preserving the teacher's ${VAR} expansion behavior
// for any config field that may reference one.
func expandEnvPlaceholder(value *string) {
	if strings.HasPrefix(*value, "${") && strings.HasSuffix(*value, "}") {
		envVar := (*value)[2 : len(*value)-1]
		if resolved := os.Getenv(envVar); resolved != "" {
			*value = resolved
		}
	}
}

// ReadTimeout and WriteTimeout are fixed at the teacher's defaults; a
// per-request timeout on the Upstream Client side is the one that matters
// for this proxy (Gemini.TimeoutSeconds), not the listener's own.
func (c AppConfig) ReadTimeout() time.Duration  { return 120 * time.Second }
func (c AppConfig) WriteTimeout() time.Duration { return 0 } // unbounded, for SSE
