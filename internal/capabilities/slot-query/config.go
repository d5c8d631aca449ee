// internal/capabilities/slot-query/config.go
package slotquery

import "time"

// ConfigKey addresses this capability in the capabilities config map.
const ConfigKey = "slot_query"

type Config struct {
	QueryTimeout       time.Duration
	CacheTTL           time.Duration
	MaxRecommendations int
	LowAvailability    float64
}

func LoadConfig() *Config {
	return &Config{
		QueryTimeout:       5 * time.Second,
		CacheTTL:           60 * time.Second,
		MaxRecommendations: 5,
		LowAvailability:    0.3,
	}
}
