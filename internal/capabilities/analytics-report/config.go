// internal/capabilities/analytics-report/config.go
package analyticsreport

import "time"

// ConfigKey addresses this capability in the capabilities config map.
const ConfigKey = "analytics_report"

// Config holds analytics capability configuration
type Config struct {
	QueryTimeout    time.Duration
	HorizonHours    int
	MaxTrafficHits  int
	MaxAnomalyHits  int
	StressCacheTTL  time.Duration
	MinimumSeverity string
}

// LoadConfig returns analytics configuration with defaults
func LoadConfig() *Config {
	return &Config{
		QueryTimeout:    8 * time.Second,
		HorizonHours:    6,
		MaxTrafficHits:  168,
		MaxAnomalyHits:  50,
		StressCacheTTL:  time.Minute,
		MinimumSeverity: SeverityMedium,
	}
}
