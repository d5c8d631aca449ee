// internal/notify/models.go
package notify

// AnomalyAlert describes a detected anomaly worth alerting the ops team about.
type AnomalyAlert struct {
	AnomalyID   string                 `json:"anomalyId"`
	Severity    string                 `json:"severity"` // "critical", "high", "medium", "low"
	Description string                 `json:"description"`
	Terminal    string                 `json:"terminal,omitempty"`
	Gate        string                 `json:"gate,omitempty"`
	DetectedAt  string                 `json:"detectedAt"` // ISO 8601
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// AlertOutcome reports what was delivered for an alert.
type AlertOutcome struct {
	AlertID string `json:"alertId"`
	Status  string `json:"status"` // "sent", "failed", "disabled"
	SentAt  string `json:"sentAt"` // ISO 8601
}

// Severities ordered from most to least urgent
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
