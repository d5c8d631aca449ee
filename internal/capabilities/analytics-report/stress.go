// internal/capabilities/analytics-report/stress.go
package analyticsreport

import (
	"fmt"
	"math"
	"time"
)

// Stress level boundaries on the 0-100 index.
const (
	stressLowMax    = 30.0
	stressMediumMax = 60.0
	stressHighMax   = 85.0
)

// Driver weights. They must sum to 1.
const (
	weightCapacity = 0.40
	weightTraffic  = 0.30
	weightAnomaly  = 0.20
	weightQueue    = 0.10
)

// Thresholds shared by the stress narrative and the alerts generator.
const (
	criticalCapacityThreshold = 0.90
	highCapacityThreshold     = 0.75
	mediumCapacityThreshold   = 0.60
	highTrafficThreshold      = 0.75

	anomalySpikeThreshold = 5
	anomalySeverityHigh   = 0.7
)

// anomalyCountCeiling is the event count at which the count component of the
// anomaly driver saturates.
const anomalyCountCeiling = 5.0

// driverOrder fixes the presentation order of stress drivers.
var driverOrder = []string{
	"capacity_pressure",
	"traffic_pressure",
	"anomaly_pressure",
	"queue_pressure",
}

// ComputeStress derives the composite stress index from observed terminal
// conditions. The computation is deterministic: identical inputs always
// produce an identical report apart from the timestamp.
func ComputeStress(inputs StressInputs, terminal, gate, date string, horizonHours int, now time.Time) StressReport {
	capacityPressure := math.Min(100, inputs.Utilization*100)
	trafficPressure := math.Min(100, inputs.TrafficIntensity*100)

	countScore := math.Min(100, float64(inputs.AnomalyCount)/anomalyCountCeiling*100)
	anomalyPressure := math.Min(100, countScore*0.7+inputs.AnomalySeverity*100*0.3)

	queuePressure := 0.0
	if inputs.TotalCapacity > 0 {
		queuePressure = math.Min(100, float64(inputs.PendingBookings)/float64(inputs.TotalCapacity)*100)
	}

	index := round1(capacityPressure*weightCapacity +
		trafficPressure*weightTraffic +
		anomalyPressure*weightAnomaly +
		queuePressure*weightQueue)
	level := stressLevel(index)

	reasons, recommendations := stressNarrative(inputs, level, capacityPressure, trafficPressure, queuePressure, horizonHours)

	return StressReport{
		Index: index,
		Level: level,
		Drivers: map[string]float64{
			"capacity_pressure": round1(capacityPressure),
			"traffic_pressure":  round1(trafficPressure),
			"anomaly_pressure":  round1(anomalyPressure),
			"queue_pressure":    round1(queuePressure),
		},
		Reasons:         reasons,
		Recommendations: recommendations,
		Metadata: StressMetadata{
			Terminal:            terminal,
			Gate:                gate,
			Date:                date,
			HorizonHours:        horizonHours,
			CapacityUtilization: round3(inputs.Utilization),
			AnomalyCount:        inputs.AnomalyCount,
			PendingBookings:     inputs.PendingBookings,
		},
		DataQuality: dataQuality(inputs),
		ComputedAt:  now.UTC().Format(time.RFC3339),
	}
}

// stressLevel maps an index to its operational band.
func stressLevel(index float64) string {
	switch {
	case index <= stressLowMax:
		return LevelLow
	case index <= stressMediumMax:
		return LevelMedium
	case index <= stressHighMax:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// stressNarrative builds the human-readable reasons and recommendations.
// Reasons follow driver order; level-wide recommendations are placed first
// for critical and high, last for low.
func stressNarrative(inputs StressInputs, level string, capacityPressure, trafficPressure, queuePressure float64, horizonHours int) ([]string, []string) {
	reasons := []string{}
	recommendations := []string{}

	switch {
	case capacityPressure >= criticalCapacityThreshold*100:
		reasons = append(reasons, fmt.Sprintf("Capacity almost full (%.0f%% utilized)", inputs.Utilization*100))
		recommendations = append(recommendations, "Consider opening additional time slots or gates")
	case capacityPressure >= highCapacityThreshold*100:
		reasons = append(reasons, fmt.Sprintf("High capacity utilization (%.0f%%)", inputs.Utilization*100))
		recommendations = append(recommendations, "Monitor slot availability closely")
	case capacityPressure < 30:
		reasons = append(reasons, fmt.Sprintf("Low capacity utilization (%.0f%%)", inputs.Utilization*100))
	}

	switch {
	case trafficPressure >= 75:
		reasons = append(reasons, fmt.Sprintf("High traffic intensity expected (%.0f%%)", inputs.TrafficIntensity*100))
		recommendations = append(recommendations, "Prepare for peak traffic periods")
	case trafficPressure >= 50:
		reasons = append(reasons, fmt.Sprintf("Moderate traffic forecast (%.0f%%)", inputs.TrafficIntensity*100))
	}

	if inputs.AnomalyCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d anomaly event(s) detected in last %dh", inputs.AnomalyCount, horizonHours))
		if inputs.AnomalySeverity > anomalySeverityHigh {
			recommendations = append(recommendations, "Investigate high-severity anomalies immediately")
		} else if inputs.AnomalyCount >= 3 {
			recommendations = append(recommendations, "Review recent anomaly patterns")
		}
	}

	if inputs.PendingBookings > 0 {
		reasons = append(reasons, fmt.Sprintf("%d pending booking(s)", inputs.PendingBookings))
		if queuePressure > 50 {
			recommendations = append(recommendations, "Expedite pending booking confirmations")
		}
	}

	switch level {
	case LevelCritical:
		recommendations = append([]string{"URGENT: Implement congestion mitigation measures"}, recommendations...)
	case LevelHigh:
		recommendations = append([]string{"Consider proactive load balancing"}, recommendations...)
	case LevelLow:
		recommendations = append(recommendations, "Continue normal operations")
	}

	return reasons, recommendations
}

// dataQuality classifies how much of the report rests on live sources.
func dataQuality(inputs StressInputs) DataQuality {
	sources := inputs.Sources
	if sources == nil {
		sources = []string{}
	}
	missing := inputs.Missing
	if missing == nil {
		missing = []string{}
	}

	mode := "real"
	switch {
	case len(missing) >= 3:
		mode = "degraded"
	case len(missing) > 0:
		mode = "hybrid"
	}

	return DataQuality{Mode: mode, Missing: missing, Sources: sources}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
