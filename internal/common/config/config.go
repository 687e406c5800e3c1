// internal/common/config/config.go
package config

import (
	"fmt"
	"net"
	"strconv"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	IdleTimeout     int    `mapstructure:"idle_timeout"`     // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// Address returns host:port for http.Server.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RelayConfig configures the form relay the finished application is posted to.
type RelayConfig struct {
	URL            string `mapstructure:"url"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
	SubjectPrefix  string `mapstructure:"subject_prefix"`
	Template       string `mapstructure:"template"`
	DisableCaptcha bool   `mapstructure:"disable_captcha"`
}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type SessionConfig struct {
	Backend         string `mapstructure:"backend"`
	TTL             int    `mapstructure:"ttl"` // milliseconds
	CookieName      string `mapstructure:"cookie_name"`
	CookieSecure    bool   `mapstructure:"cookie_secure"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	JanitorInterval int    `mapstructure:"janitor_interval"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// String summarizes the config for startup logs without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("app=%s env=%s addr=%s session=%s relay=%s",
		c.App.Name, c.App.Environment, c.Server.Address(), c.Session.Backend, c.Relay.URL)
}
