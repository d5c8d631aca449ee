// internal/capabilities/blockchain-audit/config.go
package blockchainaudit

import "time"

// ConfigKey addresses this capability in the capabilities config map.
const ConfigKey = "blockchain_audit"

// Config holds blockchain audit capability configuration
type Config struct {
	RequestTimeout time.Duration
}

// LoadConfig returns blockchain audit configuration with defaults
func LoadConfig() *Config {
	return &Config{
		RequestTimeout: 10 * time.Second,
	}
}
