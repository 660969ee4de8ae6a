package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Angeloni    AngeloniConfig    `mapstructure:"angeloni"`
	Minhacooper MinhacooperConfig `mapstructure:"minhacooper"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // only "memory"
	TTL  time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP    int `mapstructure:"per_ip"`   // requests per minute per client
	Angeloni int `mapstructure:"angeloni"` // outbound requests per minute
}

// AngeloniConfig holds the Angeloni storefront configuration
type AngeloniConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	GraphQLPath string        `mapstructure:"graphql_path"`
	BindingID   string        `mapstructure:"binding_id"`
	SHA256Hash  string        `mapstructure:"sha256_hash"`
	PageSize    int           `mapstructure:"page_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// MinhacooperConfig holds the Minhacooper storefront and browser configuration
type MinhacooperConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	StoreID           string        `mapstructure:"store_id"`
	Headless          bool          `mapstructure:"headless"`
	ExecPath          string        `mapstructure:"exec_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	ScrollDelay       time.Duration `mapstructure:"scroll_delay"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// TelemetryConfig holds tracing configuration
type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"` // empty disables export
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/comparador/")

	// COMPARADOR_ANGELONI_BASE_URL -> angeloni.base_url
	v.SetEnvPrefix("COMPARADOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory if there is one.
// Variables already present in the environment win.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return gotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "30m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.angeloni", 60)

	// Angeloni defaults
	v.SetDefault("angeloni.base_url", "https://www.angeloni.com.br/super")
	v.SetDefault("angeloni.graphql_path", "/_v/segment/graphql/v1")
	v.SetDefault("angeloni.binding_id", "d44a2c5b-9d10-4104-85cb-7ae32e06f776")
	v.SetDefault("angeloni.sha256_hash", "efcfea65b452e9aa01e820e140a5b4a331adfce70470d2290c08bc4912b45212")
	v.SetDefault("angeloni.page_size", 50)
	v.SetDefault("angeloni.timeout", "30s")
	v.SetDefault("angeloni.user_agent", browserUserAgent)

	// Minhacooper defaults
	v.SetDefault("minhacooper.base_url", "https://minhacooper.com.br")
	v.SetDefault("minhacooper.store_id", "v.nova-bnu")
	v.SetDefault("minhacooper.headless", true)
	v.SetDefault("minhacooper.exec_path", "")
	v.SetDefault("minhacooper.navigation_timeout", "30s")
	v.SetDefault("minhacooper.settle_delay", "3s")
	v.SetDefault("minhacooper.scroll_delay", "2s")
	v.SetDefault("minhacooper.user_agent", browserUserAgent)

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "comparador")
	v.SetDefault("telemetry.otlp_endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'memory', got: %s", config.Cache.Type)
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %s", config.Cache.TTL)
	}

	if err := validateURL("angeloni.base_url", config.Angeloni.BaseURL); err != nil {
		return err
	}

	if config.Angeloni.BindingID == "" || config.Angeloni.SHA256Hash == "" {
		return fmt.Errorf("angeloni binding_id and sha256_hash are required")
	}

	if config.Angeloni.PageSize <= 0 {
		return fmt.Errorf("angeloni page size must be positive, got: %d", config.Angeloni.PageSize)
	}

	if err := validateURL("minhacooper.base_url", config.Minhacooper.BaseURL); err != nil {
		return err
	}

	if config.Minhacooper.StoreID == "" {
		return fmt.Errorf("minhacooper store_id is required (set COMPARADOR_MINHACOOPER_STORE_ID)")
	}

	if config.Log.Format != "json" && config.Log.Format != "text" {
		return fmt.Errorf("log format must be 'json' or 'text', got: %s", config.Log.Format)
	}

	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got: %q", key, raw)
	}
	return nil
}
