// internal/capabilities/traffic-forecast/models.go
package trafficforecast

// TrafficPoint is one hourly observation from the port-traffic index.
// Intensity is normalized to 0..1 by the ingest pipeline.
type TrafficPoint struct {
	Terminal  string  `json:"terminal"`
	Gate      string  `json:"gate"`
	Date      string  `json:"date"`
	Hour      int     `json:"hour"`
	Intensity float64 `json:"intensity"`
	Vehicles  int     `json:"vehicles"`
}

// pointFromSource converts a search hit source into a TrafficPoint.
// Numeric fields arrive as float64 from the JSON decoder.
func pointFromSource(source map[string]interface{}) TrafficPoint {
	point := TrafficPoint{}
	if s, ok := source["terminal"].(string); ok {
		point.Terminal = s
	}
	if s, ok := source["gate"].(string); ok {
		point.Gate = s
	}
	if s, ok := source["date"].(string); ok {
		point.Date = s
	}
	if v, ok := source["hour"].(float64); ok {
		point.Hour = int(v)
	}
	if v, ok := source["intensity"].(float64); ok {
		point.Intensity = v
	}
	if v, ok := source["vehicles"].(float64); ok {
		point.Vehicles = int(v)
	}
	return point
}
