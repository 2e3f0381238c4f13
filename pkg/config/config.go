// Package config provides unified configuration for the weiche proxy.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (WEICHE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the weiche proxy.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Breaker BreakerConfig `yaml:"breaker"`
	Models  ModelsConfig  `yaml:"models"`
	Auth    AuthConfig    `yaml:"auth"`
	Dump    DumpConfig    `yaml:"dump"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 0 (streaming)
}

// BackendConfig holds the upstream Chat Completions endpoint settings.
type BackendConfig struct {
	URL        string        `yaml:"url"`          // required
	Timeout    time.Duration `yaml:"timeout"`      // non-streaming calls, default: 30s
	APIKey     string        `yaml:"api_key"`      // optional fallback bearer
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`           // default: true
	FailureThreshold int           `yaml:"failure_threshold"` // default: 5
	Cooldown         time.Duration `yaml:"cooldown"`          // default: 30s
}

// ModelsConfig holds model cache and aliasing settings.
type ModelsConfig struct {
	CacheTTL time.Duration     `yaml:"cache_ttl"` // default: 5m
	Default  string            `yaml:"default"`   // model used when the request omits one
	Aliases  map[string]string `yaml:"aliases"`   // requested name -> backend name
}

// AuthConfig holds optional JWT validation settings. When the secret is
// empty, tokens are forwarded to the backend without local validation.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	JWTSecretFile string `yaml:"jwt_secret_file"` // _file variant for jwt_secret
	Issuer        string `yaml:"issuer"`
}

// DumpConfig holds debug dump sink settings.
type DumpConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Dir     string `yaml:"dir"`     // default: "logs"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error; default: "info"
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			ReadTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			Timeout: 30 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		},
		Models: ModelsConfig{
			CacheTTL: 5 * time.Minute,
		},
		Dump: DumpConfig{
			Dir: "logs",
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
