// internal/capabilities/analytics-report/models.go
package analyticsreport

// Alert severities, lowest to highest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Stress levels derived from the composite index.
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelCritical = "critical"
)

// StressInputs are the observed terminal conditions the stress index is
// computed from. Sources lists where each figure came from; Missing lists
// the sources that could not be reached and were replaced by neutral
// defaults.
type StressInputs struct {
	TotalCapacity    int     `json:"total_capacity"`
	TotalRemaining   int     `json:"total_remaining"`
	Utilization      float64 `json:"utilization"`
	TrafficIntensity float64 `json:"traffic_intensity"`
	PeakHour         string  `json:"peak_hour"`
	AnomalyCount     int     `json:"anomaly_count"`
	AnomalySeverity  float64 `json:"anomaly_severity_avg"`
	PendingBookings  int     `json:"pending_bookings"`

	Sources []string `json:"sources"`
	Missing []string `json:"missing"`
}

// StressMetadata echoes the request scope and the key observed figures.
type StressMetadata struct {
	Terminal            string  `json:"terminal"`
	Gate                string  `json:"gate,omitempty"`
	Date                string  `json:"date"`
	HorizonHours        int     `json:"horizon_hours"`
	CapacityUtilization float64 `json:"capacity_utilization"`
	AnomalyCount        int     `json:"anomaly_count"`
	PendingBookings     int     `json:"pending_bookings"`
}

// DataQuality records which sources fed a report. Mode is "real" when every
// source answered, "hybrid" when some fell back to defaults and "degraded"
// when most did.
type DataQuality struct {
	Mode    string   `json:"mode"`
	Missing []string `json:"missing"`
	Sources []string `json:"sources"`
}

// StressReport is the composite 0-100 stress index with its explainable
// drivers and the narrative derived from them.
type StressReport struct {
	Index           float64            `json:"stress_index"`
	Level           string             `json:"level"`
	Drivers         map[string]float64 `json:"drivers"`
	Reasons         []string           `json:"reasons"`
	Recommendations []string           `json:"recommendations"`
	Metadata        StressMetadata     `json:"metadata"`
	DataQuality     DataQuality        `json:"data_quality"`
	ComputedAt      string             `json:"computed_at"`
}

// Alert is a single proactive operational warning.
type Alert struct {
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	Severity           string                 `json:"severity"`
	Title              string                 `json:"title"`
	Message            string                 `json:"message"`
	RecommendedActions []string               `json:"recommended_actions"`
	Evidence           map[string]interface{} `json:"evidence"`
	CreatedAt          string                 `json:"created_at"`
}

// stressSnapshot is the cached unit: the report plus the raw inputs, so the
// alerts path can reuse a recent stress computation instead of re-querying
// every source.
type stressSnapshot struct {
	Report StressReport `json:"report"`
	Inputs StressInputs `json:"inputs"`
}
