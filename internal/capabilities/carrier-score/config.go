// internal/capabilities/carrier-score/config.go
package carrierscore

import "time"

// ConfigKey addresses this capability in the capabilities config map.
const ConfigKey = "carrier_score"

// Config holds carrier scoring capability configuration
type Config struct {
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

// LoadConfig returns carrier scoring configuration with defaults
func LoadConfig() *Config {
	return &Config{
		RequestTimeout: 8 * time.Second,
		CacheTTL:       5 * time.Minute,
	}
}
