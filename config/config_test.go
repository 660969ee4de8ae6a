package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"COMPARADOR_SERVER_PORT",
	"COMPARADOR_SERVER_ENVIRONMENT",
	"COMPARADOR_SERVER_ALLOWED_ORIGINS",
	"COMPARADOR_CACHE_TYPE",
	"COMPARADOR_CACHE_TTL",
	"COMPARADOR_RATELIMIT_PER_IP",
	"COMPARADOR_RATELIMIT_ANGELONI",
	"COMPARADOR_ANGELONI_BASE_URL",
	"COMPARADOR_ANGELONI_PAGE_SIZE",
	"COMPARADOR_MINHACOOPER_STORE_ID",
	"COMPARADOR_MINHACOOPER_HEADLESS",
	"COMPARADOR_MINHACOOPER_SETTLE_DELAY",
	"COMPARADOR_TELEMETRY_OTLP_ENDPOINT",
	"COMPARADOR_LOG_LEVEL",
	"COMPARADOR_LOG_FORMAT",
}

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		for _, key := range configEnvVars {
			os.Unsetenv(key)
		}
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
			t.Errorf("Server.AllowedOrigins = %v, want [http://localhost:3000]", cfg.Server.AllowedOrigins)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 30*time.Minute {
			t.Errorf("Cache.TTL = %v, want 30m", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.RateLimit.Angeloni != 60 {
			t.Errorf("RateLimit.Angeloni = %d, want 60", cfg.RateLimit.Angeloni)
		}
		if cfg.Angeloni.BaseURL != "https://www.angeloni.com.br/super" {
			t.Errorf("Angeloni.BaseURL = %s, want https://www.angeloni.com.br/super", cfg.Angeloni.BaseURL)
		}
		if cfg.Angeloni.PageSize != 50 {
			t.Errorf("Angeloni.PageSize = %d, want 50", cfg.Angeloni.PageSize)
		}
		if cfg.Angeloni.Timeout != 30*time.Second {
			t.Errorf("Angeloni.Timeout = %v, want 30s", cfg.Angeloni.Timeout)
		}
		if cfg.Minhacooper.StoreID != "v.nova-bnu" {
			t.Errorf("Minhacooper.StoreID = %s, want v.nova-bnu", cfg.Minhacooper.StoreID)
		}
		if !cfg.Minhacooper.Headless {
			t.Error("Minhacooper.Headless = false, want true")
		}
		if cfg.Minhacooper.SettleDelay != 3*time.Second {
			t.Errorf("Minhacooper.SettleDelay = %v, want 3s", cfg.Minhacooper.SettleDelay)
		}
		if cfg.Minhacooper.ScrollDelay != 2*time.Second {
			t.Errorf("Minhacooper.ScrollDelay = %v, want 2s", cfg.Minhacooper.ScrollDelay)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			t.Errorf("Telemetry.OTLPEndpoint = %s, want empty", cfg.Telemetry.OTLPEndpoint)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("COMPARADOR_SERVER_PORT", "9090")
		os.Setenv("COMPARADOR_SERVER_ENVIRONMENT", "production")
		os.Setenv("COMPARADOR_CACHE_TTL", "5m")
		os.Setenv("COMPARADOR_RATELIMIT_PER_IP", "200")
		os.Setenv("COMPARADOR_RATELIMIT_ANGELONI", "30")
		os.Setenv("COMPARADOR_ANGELONI_BASE_URL", "https://staging.angeloni.example/super")
		os.Setenv("COMPARADOR_MINHACOOPER_STORE_ID", "v.centro-bnu")
		os.Setenv("COMPARADOR_MINHACOOPER_HEADLESS", "false")
		os.Setenv("COMPARADOR_MINHACOOPER_SETTLE_DELAY", "500ms")
		os.Setenv("COMPARADOR_LOG_FORMAT", "text")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Cache.TTL != 5*time.Minute {
			t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.RateLimit.Angeloni != 30 {
			t.Errorf("RateLimit.Angeloni = %d, want 30", cfg.RateLimit.Angeloni)
		}
		if cfg.Angeloni.BaseURL != "https://staging.angeloni.example/super" {
			t.Errorf("Angeloni.BaseURL = %s, want https://staging.angeloni.example/super", cfg.Angeloni.BaseURL)
		}
		if cfg.Minhacooper.StoreID != "v.centro-bnu" {
			t.Errorf("Minhacooper.StoreID = %s, want v.centro-bnu", cfg.Minhacooper.StoreID)
		}
		if cfg.Minhacooper.Headless {
			t.Error("Minhacooper.Headless = true, want false")
		}
		if cfg.Minhacooper.SettleDelay != 500*time.Millisecond {
			t.Errorf("Minhacooper.SettleDelay = %v, want 500ms", cfg.Minhacooper.SettleDelay)
		}
		if cfg.Log.Format != "text" {
			t.Errorf("Log.Format = %s, want text", cfg.Log.Format)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("COMPARADOR_CACHE_TYPE", "redis")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for unsupported cache type")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration: ") {
			t.Errorf("Load() error = %v, want 'invalid configuration' prefix", err)
		}
	})

	t.Run("fails validation for relative angeloni url", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("COMPARADOR_ANGELONI_BASE_URL", "/super")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for relative base url")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		envContent := `
# Comment line
TEST_VAR_1=value1
TEST_VAR_2=value2

# Another comment
TEST_VAR_3=value3
`
		err := os.WriteFile(".env", []byte(envContent), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_VAR_3")
		defer func() {
			os.Unsetenv("TEST_VAR_1")
			os.Unsetenv("TEST_VAR_2")
			os.Unsetenv("TEST_VAR_3")
		}()

		err = loadEnvFile()
		if err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_VAR_3") != "value3" {
			t.Errorf("TEST_VAR_3 = %s, want value3", os.Getenv("TEST_VAR_3"))
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		os.Setenv("TEST_OVERRIDE", "existing-value")
		defer os.Unsetenv("TEST_OVERRIDE")

		err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		err = loadEnvFile()
		if err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})

	t.Run("feeds Load through the environment", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		os.Unsetenv("COMPARADOR_SERVER_PORT")
		defer os.Unsetenv("COMPARADOR_SERVER_PORT")

		err := os.WriteFile(".env", []byte("COMPARADOR_SERVER_PORT=7070\n"), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Server.Port != "7070" {
			t.Errorf("Server.Port = %s, want 7070", cfg.Server.Port)
		}
	})
}

func validConfig() *Config {
	return &Config{
		Cache: CacheConfig{Type: "memory", TTL: 30 * time.Minute},
		Angeloni: AngeloniConfig{
			BaseURL:    "https://www.angeloni.com.br/super",
			BindingID:  "binding",
			SHA256Hash: "hash",
			PageSize:   50,
		},
		Minhacooper: MinhacooperConfig{
			BaseURL: "https://minhacooper.com.br",
			StoreID: "v.nova-bnu",
		},
		Log: LogConfig{Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(validConfig()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "fails for invalid cache type", mutate: func(c *Config) { c.Cache.Type = "redis" }},
		{name: "fails for zero cache ttl", mutate: func(c *Config) { c.Cache.TTL = 0 }},
		{name: "fails without persisted query hash", mutate: func(c *Config) { c.Angeloni.SHA256Hash = "" }},
		{name: "fails for non-positive page size", mutate: func(c *Config) { c.Angeloni.PageSize = 0 }},
		{name: "fails for invalid minhacooper url", mutate: func(c *Config) { c.Minhacooper.BaseURL = "minhacooper" }},
		{name: "fails without store id", mutate: func(c *Config) { c.Minhacooper.StoreID = "" }},
		{name: "fails for unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			if err := validate(cfg); err == nil {
				t.Error("validate() error = nil, want error")
			}
		})
	}
}
