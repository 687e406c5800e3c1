// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides (relay.url -> RELAY_URL).
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

// setViperDefaults registers every key so AutomaticEnv can override keys
// missing from the file, and covers booleans whose zero value is not the default.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "joinnow")
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("relay.url", "https://formsubmit.co/ccidcop@gmail.com")
	v.SetDefault("relay.disable_captcha", true)
	v.SetDefault("session.backend", SessionBackendMemory)
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.enabled", true)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working
// directory. A missing file is fine; the process environment is used.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values. Unset
// variables expand to "" so validation sees them as missing.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_URL"); val != "" {
			cfg.Database.Redis.Address = strings.TrimPrefix(val, "redis://")
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "joinnow"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 45000
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	// Relay defaults
	if cfg.Relay.Timeout == 0 {
		cfg.Relay.Timeout = 30000
	}
	if cfg.Relay.SubjectPrefix == "" {
		cfg.Relay.SubjectPrefix = "NETWORTHWARS Internship Application"
	}
	if cfg.Relay.Template == "" {
		cfg.Relay.Template = "table"
	}

	// Session defaults
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = SessionBackendMemory
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 7200000
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "joinnow_session"
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "wizard:session:"
	}
	if cfg.Session.JanitorInterval == 0 {
		cfg.Session.JanitorInterval = 60000
	}

	// Redis defaults
	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 10
	}
	if cfg.Database.Redis.MinIdleConns == 0 {
		cfg.Database.Redis.MinIdleConns = 2
	}
	if cfg.Database.Redis.DialTimeout == 0 {
		cfg.Database.Redis.DialTimeout = 5000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if cfg.Relay.URL == "" {
		return fmt.Errorf("relay.url is required")
	}
	if u, err := url.Parse(cfg.Relay.URL); err != nil || u.Host == "" {
		return fmt.Errorf("relay.url must be an absolute url")
	}
	if cfg.Relay.Timeout < 0 {
		return fmt.Errorf("relay.timeout must not be negative")
	}

	switch cfg.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis session backend")
		}
	default:
		return fmt.Errorf("session.backend must be %q or %q", SessionBackendMemory, SessionBackendRedis)
	}
	if cfg.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
