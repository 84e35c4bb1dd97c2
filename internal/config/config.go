package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the web application host
type Config struct {
	// Deployment environment, read once at startup
	Environment Environment `env:"APP_ENVIRONMENT" envDefault:"Production"`
	Name        string      `env:"APP_NAME" envDefault:"webapp"`

	// Server configuration
	HTTPPort          int    `env:"APP_HTTP_PORT" envDefault:"8080"`
	HTTPSPort         int    `env:"APP_HTTPS_PORT" envDefault:"8443"`
	HTTPSRedirectPort int    `env:"APP_HTTPS_REDIRECT_PORT" envDefault:"443"`
	GRPCEnabled       bool   `env:"APP_GRPC_ENABLED" envDefault:"false"`
	GRPCPort          int    `env:"APP_GRPC_PORT" envDefault:"9090"`
	CORSEnabled       bool   `env:"APP_CORS_ENABLED" envDefault:"false"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`

	// TLS configuration
	TLS TLSConfig

	// Redis configuration
	Redis RedisConfig

	// Authorization configuration
	Auth AuthConfig

	// Health check configuration
	Health HealthConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// TLSConfig holds the key pair for the optional HTTPS listener
type TLSConfig struct {
	CertFile string `env:"APP_TLS_CERT_FILE"`
	KeyFile  string `env:"APP_TLS_KEY_FILE"`
}

// Enabled reports whether a key pair was configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// RedisConfig holds Redis connection configuration. An empty address disables
// the Redis readiness check.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// AuthConfig holds bearer token configuration. An empty secret keeps the
// allow-all authorization policy.
type AuthConfig struct {
	JWTSecret   string `env:"AUTH_JWT_SECRET"`
	JWTIssuer   string `env:"AUTH_JWT_ISSUER"`
	JWTAudience string `env:"AUTH_JWT_AUDIENCE"`
}

// HealthConfig holds health check configuration
type HealthConfig struct {
	CheckTimeout    time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"5s"`
	MonitorInterval time.Duration `env:"HEALTH_MONITOR_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ReadHeaderTimeout time.Duration `env:"TIMEOUT_READ_HEADER" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}

	// Validate server ports
	if !validPort(c.HTTPPort) {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !validPort(c.HTTPSRedirectPort) {
		return fmt.Errorf("invalid HTTPS redirect port: %d", c.HTTPSRedirectPort)
	}
	if c.GRPCEnabled && !validPort(c.GRPCPort) {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate TLS config
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("TLS requires both a certificate and a key file")
	}
	if c.TLS.Enabled() {
		if !validPort(c.HTTPSPort) {
			return fmt.Errorf("invalid HTTPS port: %d", c.HTTPSPort)
		}
		if c.HTTPSPort == c.HTTPPort {
			return fmt.Errorf("HTTP and HTTPS ports must differ: %d", c.HTTPPort)
		}
	}

	if c.GRPCEnabled && c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("HTTP and gRPC ports must differ: %d", c.HTTPPort)
	}

	// Validate health config
	if c.Health.CheckTimeout <= 0 {
		return fmt.Errorf("health check timeout must be positive")
	}
	if c.Health.MonitorInterval <= 0 {
		return fmt.Errorf("health monitor interval must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetHTTPSAddr returns the HTTPS server address
func (c *Config) GetHTTPSAddr() string {
	return fmt.Sprintf(":%d", c.HTTPSPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
