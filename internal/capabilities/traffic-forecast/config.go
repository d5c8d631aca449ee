// internal/capabilities/traffic-forecast/config.go
package trafficforecast

import "time"

// ConfigKey addresses this capability in the capabilities config map.
const ConfigKey = "traffic_forecast"

// Config holds traffic forecast capability configuration
type Config struct {
	QueryTimeout time.Duration
	HorizonHours int
	MaxPoints    int
}

// LoadConfig returns traffic forecast configuration with defaults
func LoadConfig() *Config {
	return &Config{
		QueryTimeout: 5 * time.Second,
		HorizonHours: 24,
		MaxPoints:    168,
	}
}
