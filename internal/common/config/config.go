// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                   `mapstructure:"app"`
	Server        ServerConfig                `mapstructure:"server"`
	Database      DatabaseConfig              `mapstructure:"database"`
	Auth          AuthConfig                  `mapstructure:"auth"`
	Backends      BackendsConfig              `mapstructure:"backends"`
	Pipeline      PipelineConfig              `mapstructure:"pipeline"`
	Capabilities  map[string]CapabilityConfig `mapstructure:"capabilities"`
	Logging       LoggingConfig               `mapstructure:"logging"`
	Notifications NotificationConfig          `mapstructure:"notifications"`
	Observability ObservabilityConfig         `mapstructure:"observability"`
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
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Configured reports whether a postgres backend is set up at all.
func (p PostgresConfig) Configured() bool {
	return p.Host != ""
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Configured reports whether an elasticsearch backend is set up at all.
func (e ElasticsearchConfig) Configured() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Configured reports whether a redis backend is set up at all.
func (r RedisConfig) Configured() bool {
	return r.Address != ""
}

// CapabilityConfig holds the core settings applicable to every capability handler.
type CapabilityConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Timeout    int  `mapstructure:"timeout"`     // milliseconds
	CacheTTL   int  `mapstructure:"cache_ttl"`   // seconds
	MaxRetries int  `mapstructure:"max_retries"` // for transient backend failures
}

// --- Specific Configuration Sections ---

// AuthConfig holds settings for token verification.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`
}

// BackendsConfig holds settings for external port-platform APIs.
type BackendsConfig struct {
	Scoring struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"scoring"`

	Blockchain struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"blockchain"`
}

// PipelineConfig holds settings for conversation orchestration.
type PipelineConfig struct {
	HistoryLimit     int `mapstructure:"history_limit"` // turns kept per conversation
	HistoryTTL       int `mapstructure:"history_ttl"`   // seconds
	FollowUpMaxWords int `mapstructure:"follow_up_max_words"`
}

// NotificationConfig holds settings for anomaly alert delivery.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		OpsEmail  string `mapstructure:"ops_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled           bool   `mapstructure:"enabled"`
		PriorityThreshold string `mapstructure:"priority_threshold"`
		OpsPhone          string `mapstructure:"ops_phone"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds tracing settings. Metrics are always exported;
// spans only when a Jaeger endpoint is configured.
type ObservabilityConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
