// Package config loads the add-on configuration from defaults, an optional
// config.yaml, an optional .env file and the process environment, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config is the complete runtime configuration.
type Config struct {
	OMDb     OMDbConfig     `mapstructure:"omdb"`
	Cinemeta CinemetaConfig `mapstructure:"cinemeta"`
	Server   ServerConfig   `mapstructure:"server"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// OMDbConfig configures the ratings provider. An empty APIKey disables live
// ratings.
type OMDbConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	LimitCooldown     time.Duration `mapstructure:"limit_cooldown"`
}

// CinemetaConfig configures the catalog provider.
type CinemetaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Silent             bool          `mapstructure:"-"`
	CacheMaxAge        int           `mapstructure:"cache_max_age"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	// TrustedProxies are CIDRs or addresses allowed to set X-Forwarded-For.
	TrustedProxies     []string      `mapstructure:"trusted_proxies"`
}

// EnrichConfig configures the enrichment engine.
type EnrichConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// HTTPConfig configures outbound requests.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CacheConfig selects the ratings cache backend.
type CacheConfig struct {
	Backend string `mapstructure:"backend"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Options tells Load where to look for files. Empty paths use the defaults:
// config.yaml in the working directory and .env next to it, both optional.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"omdb.api_key":           "OMDB_API_KEY",
	"omdb.base_url":          "OMDB_BASE_URL",
	"cinemeta.base_url":      "CINEMETA_BASE_URL",
	"server.port":            "PORT",
	"server.host":            "HOST",
	"server.silent":          "STARTUP_SILENT",
	"server.trusted_proxies": "TRUSTED_PROXIES",
	"logging.level":          "LOG_LEVEL",
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("omdb.api_key", "")
	v.SetDefault("omdb.base_url", "https://www.omdbapi.com")
	v.SetDefault("omdb.requests_per_second", 5)
	v.SetDefault("omdb.limit_cooldown", "1h")

	v.SetDefault("cinemeta.base_url", "https://v3-cinemeta.strem.io")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 7000)
	v.SetDefault("server.silent", "")
	v.SetDefault("server.cache_max_age", 86400)
	v.SetDefault("server.rate_limit_per_minute", 0)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("enrich.concurrency", 4)

	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.user_agent", "Poster-Ratings-Overlay/1.0")

	v.SetDefault("cache.backend", "memory")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// Load reads the configuration.
func Load(opts Options) (*Config, error) {
	if err := LoadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.OMDb.APIKey = strings.TrimSpace(cfg.OMDb.APIKey)
	cfg.Server.Silent = IsTruthy(v.GetString("server.silent"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their value. An empty path means
// ".env"; a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the add-on cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Enrich.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("enrich.concurrency must be at least 1, got %d", c.Enrich.Concurrency))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("http.timeout must be positive"))
	}
	for _, proxy := range c.Server.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies entry %q is not an address or CIDR", proxy))
		}
	}
	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be memory or sqlite, got %q", c.Cache.Backend))
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be human or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func validProxy(value string) bool {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "/") {
		_, err := netip.ParsePrefix(value)
		return err == nil
	}
	_, err := netip.ParseAddr(value)
	return err == nil
}

// HasOMDbKey reports whether live ratings are configured.
func (c *Config) HasOMDbKey() bool {
	return c.OMDb.APIKey != ""
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// IsTruthy reports whether value is one of 1, true, yes or on, ignoring case
// and surrounding space.
func IsTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
