// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	// Load .env from multiple possible locations
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DB_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// Load base config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Merge environment-specific config
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	// Expand ${VAR} placeholders
	expandEnvVars(viper.GetViper())

	// Unmarshal final config
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// Direct override if still empty
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from multiple possible locations so tests and
// binaries run from nested directories still pick it up.
func loadEnvFile() {
	possiblePaths := []string{
		".env",          // Current directory
		"../.env",       // Parent directory
		"../../.env",    // Two levels up (for tests in test/e2e/)
		"../../../.env", // Three levels up
	}

	// Also try to find project root by looking for go.mod
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("✅ Loaded .env from: %s\n", path)
				return
			}
		}
	}

	fmt.Printf("⚠️  .env file not found in any location, using system environment variables\n")
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Walk up directories looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// Improved environment variable expansion
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		// Only process string values
		if strVal, ok := val.(string); ok {
			// Check if it contains environment variable pattern
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	// Keycloak
	if cfg.Auth.Keycloak.URL == "" {
		if val := os.Getenv("KEYCLOAK_URL"); val != "" {
			cfg.Auth.Keycloak.URL = val
		}
	}
	if cfg.Auth.Keycloak.ClientID == "" {
		if val := os.Getenv("KEYCLOAK_CLIENT_ID"); val != "" {
			cfg.Auth.Keycloak.ClientID = val
		}
	}
	if cfg.Auth.Keycloak.ClientSecret == "" {
		if val := os.Getenv("KEYCLOAK_CLIENT_SECRET"); val != "" {
			cfg.Auth.Keycloak.ClientSecret = val
		}
	}

	// Scoring API
	if cfg.Backends.Scoring.BaseURL == "" {
		if val := os.Getenv("SCORING_API_URL"); val != "" {
			cfg.Backends.Scoring.BaseURL = val
		}
	}
	if cfg.Backends.Scoring.APIKey == "" {
		if val := os.Getenv("SCORING_API_KEY"); val != "" {
			cfg.Backends.Scoring.APIKey = val
		}
	}

	// Blockchain gateway
	if cfg.Backends.Blockchain.BaseURL == "" {
		if val := os.Getenv("BLOCKCHAIN_API_URL"); val != "" {
			cfg.Backends.Blockchain.BaseURL = val
		}
	}
	if cfg.Backends.Blockchain.APIKey == "" {
		if val := os.Getenv("BLOCKCHAIN_API_KEY"); val != "" {
			cfg.Backends.Blockchain.APIKey = val
		}
	}

	// Database overrides
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile() // Load env file first

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Expand environment variables before unmarshal
	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Elasticsearch URL fallback
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
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

	// Pipeline defaults
	if cfg.Pipeline.HistoryLimit == 0 {
		cfg.Pipeline.HistoryLimit = 20
	}
	if cfg.Pipeline.HistoryTTL == 0 {
		cfg.Pipeline.HistoryTTL = 86400
	}
	if cfg.Pipeline.FollowUpMaxWords == 0 {
		cfg.Pipeline.FollowUpMaxWords = 4
	}

	// Capability defaults
	for key, capability := range cfg.Capabilities {
		if capability.Timeout == 0 {
			capability.Timeout = 10000
		}
		if capability.CacheTTL == 0 {
			capability.CacheTTL = 300
		}
		if capability.MaxRetries == 0 {
			capability.MaxRetries = 3
		}
		cfg.Capabilities[key] = capability
	}

	// Backend timeout defaults
	if cfg.Backends.Scoring.Timeout == 0 {
		cfg.Backends.Scoring.Timeout = 10000
	}
	if cfg.Backends.Blockchain.Timeout == 0 {
		cfg.Backends.Blockchain.Timeout = 15000
	}
}

// validateConfig rejects half-configured backends. A data backend left
// fully empty counts as absent and the service starts without it, so only
// partial settings are an error.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host != "" {
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when a postgres host is set")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required when a postgres host is set")
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetCapabilityConfig retrieves capability-specific configuration with fallback to defaults
func GetCapabilityConfig(cfg *Config, capabilityName string) CapabilityConfig {
	if capability, exists := cfg.Capabilities[capabilityName]; exists {
		return capability
	}

	// Return default capability config if not found
	return CapabilityConfig{
		Enabled:    true,
		Timeout:    10000,
		CacheTTL:   300,
		MaxRetries: 3,
	}
}

// IsCapabilityEnabled checks if a specific capability is enabled
func IsCapabilityEnabled(cfg *Config, capabilityName string) bool {
	if capability, exists := cfg.Capabilities[capabilityName]; exists {
		return capability.Enabled
	}
	return true
}
