// internal/capabilities/booking-status/config.go
package bookingstatus

import "time"

// ConfigKey addresses this capability in the capabilities config map.
const ConfigKey = "booking_status"

type Config struct {
	QueryTimeout time.Duration
	MaxRefs      int
}

func LoadConfig() *Config {
	return &Config{
		QueryTimeout: 5 * time.Second,
		MaxRefs:      10,
	}
}
