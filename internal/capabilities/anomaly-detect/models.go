// internal/capabilities/anomaly-detect/models.go
package anomalydetect

// Anomaly is one detection event from the port-anomalies index.
type Anomaly struct {
	AnomalyID   string `json:"anomaly_id"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Terminal    string `json:"terminal"`
	Gate        string `json:"gate"`
	CarrierID   string `json:"carrier_id"`
	Timestamp   string `json:"timestamp"`
}

func anomalyFromSource(source map[string]interface{}) Anomaly {
	anomaly := Anomaly{}
	if s, ok := source["anomaly_id"].(string); ok {
		anomaly.AnomalyID = s
	}
	if s, ok := source["type"].(string); ok {
		anomaly.Type = s
	}
	if s, ok := source["severity"].(string); ok {
		anomaly.Severity = s
	}
	if s, ok := source["description"].(string); ok {
		anomaly.Description = s
	}
	if s, ok := source["terminal"].(string); ok {
		anomaly.Terminal = s
	}
	if s, ok := source["gate"].(string); ok {
		anomaly.Gate = s
	}
	if s, ok := source["carrier_id"].(string); ok {
		anomaly.CarrierID = s
	}
	if s, ok := source["timestamp"].(string); ok {
		anomaly.Timestamp = s
	}
	return anomaly
}
