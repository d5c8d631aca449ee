// internal/capabilities/carrier-score/models.go
package carrierscore

// CarrierStats is the aggregate the scoring backend exposes per carrier.
type CarrierStats struct {
	TotalBookings     int     `json:"total_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings"`
	NoShows           int     `json:"no_shows"`
	LateArrivals      int     `json:"late_arrivals"`
	AvgDelayMinutes   float64 `json:"avg_delay_minutes"`
	AvgDwellMinutes   float64 `json:"avg_dwell_minutes"`
	AnomalyCount      int     `json:"anomaly_count"`
}

// ScoreResult is the scored view of a carrier. The JSON tags matter: the
// result is cached in Redis and the slot recommender reads "score" from the
// cached value to pick its ranking strategy.
type ScoreResult struct {
	Score        float64                `json:"score"`
	Tier         string                 `json:"tier"`
	Components   map[string]float64     `json:"components"`
	Reasons      []string               `json:"reasons"`
	Confidence   float64                `json:"confidence"`
	StatsSummary map[string]interface{} `json:"stats_summary"`
}
