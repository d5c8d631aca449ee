// internal/capabilities/anomaly-detect/config.go
package anomalydetect

import "time"

// ConfigKey addresses this capability in the capabilities config map.
const ConfigKey = "anomaly_detect"

// Config holds anomaly detection capability configuration
type Config struct {
	QueryTimeout time.Duration
	LookbackDays int
	MaxResults   int
}

// LoadConfig returns anomaly detection configuration with defaults
func LoadConfig() *Config {
	return &Config{
		QueryTimeout: 5 * time.Second,
		LookbackDays: 7,
		MaxResults:   50,
	}
}
