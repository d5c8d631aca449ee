// internal/capabilities/analytics-report/alerts.go
package analyticsreport

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// severityRank orders severities for threshold filtering.
var severityRank = map[string]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// GenerateAlerts derives proactive operational alerts from a stress report
// and the conditions behind it. Alerts below minSeverity are dropped.
func GenerateAlerts(report StressReport, inputs StressInputs, terminal string, horizonHours int, now time.Time, minSeverity string) []Alert {
	createdAt := now.UTC().Format(time.RFC3339)
	alerts := make([]Alert, 0, 4)

	if report.Index > stressMediumMax {
		severity := SeverityHigh
		if report.Index > stressHighMax {
			severity = SeverityCritical
		}
		firstReason := ""
		if len(report.Reasons) > 0 {
			firstReason = report.Reasons[0]
		}
		alerts = append(alerts, Alert{
			ID:       newAlertID(),
			Type:     "stress",
			Severity: severity,
			Title:    fmt.Sprintf("High Stress Level at Terminal %s", terminal),
			Message: fmt.Sprintf("Terminal %s is experiencing %s stress (index: %.1f/100). %s",
				terminal, report.Level, report.Index, firstReason),
			RecommendedActions: report.Recommendations,
			Evidence: map[string]interface{}{
				"stress_index": report.Index,
				"drivers":      report.Drivers,
				"terminal":     terminal,
			},
			CreatedAt: createdAt,
		})
	}

	switch {
	case inputs.Utilization >= criticalCapacityThreshold:
		alerts = append(alerts, Alert{
			ID:       newAlertID(),
			Type:     "capacity",
			Severity: SeverityCritical,
			Title:    fmt.Sprintf("Critical Capacity at Terminal %s", terminal),
			Message: fmt.Sprintf("Terminal %s is at %.0f%% capacity with only %d slot(s) remaining. Immediate action required.",
				terminal, inputs.Utilization*100, inputs.TotalRemaining),
			RecommendedActions: []string{
				"Open additional time slots immediately",
				"Redirect new bookings to alternative terminals",
				"Contact operations team for capacity expansion",
			},
			Evidence: map[string]interface{}{
				"utilization":     round3(inputs.Utilization),
				"remaining_slots": inputs.TotalRemaining,
				"threshold":       criticalCapacityThreshold,
				"terminal":        terminal,
			},
			CreatedAt: createdAt,
		})
	case inputs.Utilization >= highCapacityThreshold:
		alerts = append(alerts, Alert{
			ID:       newAlertID(),
			Type:     "capacity",
			Severity: SeverityHigh,
			Title:    fmt.Sprintf("High Capacity Utilization at Terminal %s", terminal),
			Message: fmt.Sprintf("Terminal %s is at %.0f%% capacity. %d slot(s) remaining.",
				terminal, inputs.Utilization*100, inputs.TotalRemaining),
			RecommendedActions: []string{
				"Monitor slot availability closely",
				"Consider opening additional slots",
				"Prepare backup terminals if needed",
			},
			Evidence: map[string]interface{}{
				"utilization":     round3(inputs.Utilization),
				"remaining_slots": inputs.TotalRemaining,
				"threshold":       highCapacityThreshold,
				"terminal":        terminal,
			},
			CreatedAt: createdAt,
		})
	case inputs.Utilization >= mediumCapacityThreshold:
		alerts = append(alerts, Alert{
			ID:       newAlertID(),
			Type:     "capacity",
			Severity: SeverityMedium,
			Title:    fmt.Sprintf("Moderate Capacity at Terminal %s", terminal),
			Message:  fmt.Sprintf("Terminal %s is at %.0f%% capacity.", terminal, inputs.Utilization*100),
			RecommendedActions: []string{
				"Continue normal operations",
				"Watch for capacity trends",
			},
			Evidence: map[string]interface{}{
				"utilization":     round3(inputs.Utilization),
				"remaining_slots": inputs.TotalRemaining,
				"terminal":        terminal,
			},
			CreatedAt: createdAt,
		})
	}

	if inputs.TrafficIntensity >= highTrafficThreshold {
		peak := inputs.PeakHour
		if peak == "" {
			peak = "unknown"
		}
		alerts = append(alerts, Alert{
			ID:       newAlertID(),
			Type:     "traffic",
			Severity: SeverityHigh,
			Title:    fmt.Sprintf("High Traffic Expected at Terminal %s", terminal),
			Message: fmt.Sprintf("Traffic forecast shows %.0f%% intensity. Peak expected around %s.",
				inputs.TrafficIntensity*100, peak),
			RecommendedActions: []string{
				"Allocate additional staff for peak periods",
				"Prepare for increased processing times",
				"Ensure all gates are operational",
			},
			Evidence: map[string]interface{}{
				"intensity": round3(inputs.TrafficIntensity),
				"peak_hour": peak,
				"terminal":  terminal,
			},
			CreatedAt: createdAt,
		})
	}

	if inputs.AnomalyCount >= anomalySpikeThreshold {
		severity := SeverityHigh
		if inputs.AnomalySeverity >= anomalySeverityHigh {
			severity = SeverityCritical
		}
		alerts = append(alerts, Alert{
			ID:       newAlertID(),
			Type:     "anomaly",
			Severity: severity,
			Title:    fmt.Sprintf("Anomaly Spike Detected at Terminal %s", terminal),
			Message: fmt.Sprintf("%d anomaly event(s) detected in the last %d hours. Average severity: %.0f%%.",
				inputs.AnomalyCount, horizonHours, inputs.AnomalySeverity*100),
			RecommendedActions: []string{
				"Investigate anomaly root causes immediately",
				"Review system logs and sensor data",
				"Check for equipment malfunctions",
				"Notify technical support team",
			},
			Evidence: map[string]interface{}{
				"anomaly_count": inputs.AnomalyCount,
				"severity_avg":  round3(inputs.AnomalySeverity),
				"threshold":     anomalySpikeThreshold,
				"terminal":      terminal,
			},
			CreatedAt: createdAt,
		})
	}

	return filterBySeverity(alerts, minSeverity)
}

// filterBySeverity keeps alerts at or above the given severity. Unknown
// severities fall back to medium.
func filterBySeverity(alerts []Alert, minSeverity string) []Alert {
	minRank, ok := severityRank[minSeverity]
	if !ok {
		minRank = severityRank[SeverityMedium]
	}
	kept := alerts[:0]
	for _, alert := range alerts {
		if severityRank[alert.Severity] >= minRank {
			kept = append(kept, alert)
		}
	}
	return kept
}

// newAlertID renders a short uppercase alert identifier.
func newAlertID() string {
	id := uuid.New()
	return "ALERT-" + strings.ToUpper(hex.EncodeToString(id[:4]))
}
