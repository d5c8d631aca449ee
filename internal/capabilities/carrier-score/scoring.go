// internal/capabilities/carrier-score/scoring.go
package carrierscore

import (
	"fmt"
	"math"
)

// Scoring weights. Must sum to 1.0.
const (
	weightCompletion = 0.30
	weightOnTime     = 0.25
	weightNoShow     = 0.20
	weightAnomaly    = 0.15
	weightDwell      = 0.10
)

// Tier thresholds on the final weighted score.
const (
	tierAThreshold = 85.0
	tierBThreshold = 70.0
	tierCThreshold = 50.0
)

// Operational targets the component scores are normalized against.
const (
	targetCompletionRate = 0.95
	targetOnTimeRate     = 0.90
	noShowRateCeiling    = 0.05
	anomalyRateCeiling   = 0.10
	targetDwellMinutes   = 45.0
	maxDelayPenalty      = 20.0

	highConfidenceBookings = 50
	lowConfidenceBookings  = 10
	maxReasons             = 6
)

var tierDescriptions = map[string]string{
	"A": "Excellent overall performance",
	"B": "Good performance with room for improvement",
	"C": "Acceptable performance but needs attention",
	"D": "Performance needs significant improvement",
}

// ScoreCarrier computes a deterministic 0-100 reliability score from booking
// statistics. Same stats in, same score out, so results are cacheable and
// explainable to carriers disputing their tier.
func ScoreCarrier(stats CarrierStats) ScoreResult {
	total := stats.TotalBookings
	if total == 0 {
		return ScoreResult{
			Score:      0,
			Tier:       "D",
			Components: map[string]float64{},
			Reasons:    []string{"No booking history available for this carrier"},
			Confidence: 0,
			StatsSummary: map[string]interface{}{
				"total_bookings": 0,
			},
		}
	}

	completionRate := float64(stats.CompletedBookings) / float64(total)
	noShowRate := float64(stats.NoShows) / float64(total)
	lateRate := 0.0
	if stats.CompletedBookings > 0 {
		lateRate = float64(stats.LateArrivals) / float64(total)
	}
	anomalyRate := float64(stats.AnomalyCount) / float64(total)

	completionScore := math.Min(100, completionRate/targetCompletionRate*100)

	onTimeRate := 1.0 - lateRate
	delayPenalty := math.Min(maxDelayPenalty, stats.AvgDelayMinutes/3.0)
	onTimeScore := math.Max(0, math.Min(100, onTimeRate/targetOnTimeRate*100-delayPenalty))

	noShowScore := math.Max(0, 100-noShowRate/noShowRateCeiling*100)
	anomalyScore := math.Max(0, 100-anomalyRate/anomalyRateCeiling*100)

	dwellScore := 50.0
	if stats.AvgDwellMinutes > 0 {
		dwellDeviation := math.Abs(stats.AvgDwellMinutes - targetDwellMinutes)
		dwellScore = math.Max(0, 100-dwellDeviation/targetDwellMinutes*100)
	}

	finalScore := completionScore*weightCompletion +
		onTimeScore*weightOnTime +
		noShowScore*weightNoShow +
		anomalyScore*weightAnomaly +
		dwellScore*weightDwell
	finalScore = math.Max(0, math.Min(100, finalScore))

	tier := tierFor(finalScore)

	return ScoreResult{
		Score: round2(finalScore),
		Tier:  tier,
		Components: map[string]float64{
			"completion":       round2(completionScore),
			"on_time":          round2(onTimeScore),
			"no_show":          round2(noShowScore),
			"anomaly":          round2(anomalyScore),
			"dwell_efficiency": round2(dwellScore),
		},
		Reasons:    scoreReasons(tier, completionRate, noShowRate, lateRate, stats.AvgDelayMinutes, anomalyRate, total),
		Confidence: round2(confidenceFor(total)),
		StatsSummary: map[string]interface{}{
			"total_bookings":    total,
			"completion_rate":   round1(completionRate * 100),
			"on_time_rate":      round1((1.0 - lateRate) * 100),
			"no_show_rate":      round1(noShowRate * 100),
			"avg_delay_minutes": round1(stats.AvgDelayMinutes),
			"anomaly_rate":      round1(anomalyRate * 100),
		},
	}
}

func tierFor(score float64) string {
	switch {
	case score >= tierAThreshold:
		return "A"
	case score >= tierBThreshold:
		return "B"
	case score >= tierCThreshold:
		return "C"
	default:
		return "D"
	}
}

// confidenceFor ramps from 0 to 1 with the volume of booking history.
func confidenceFor(total int) float64 {
	switch {
	case total >= highConfidenceBookings:
		return 1.0
	case total >= lowConfidenceBookings:
		return 0.5 + float64(total-lowConfidenceBookings)/float64(highConfidenceBookings-lowConfidenceBookings)*0.5
	default:
		return float64(total) / float64(lowConfidenceBookings) * 0.5
	}
}

// scoreReasons builds the human-readable justification list, capped at
// maxReasons so the chat response stays readable.
func scoreReasons(tier string, completionRate, noShowRate, lateRate, avgDelay, anomalyRate float64, total int) []string {
	reasons := []string{tierDescriptions[tier]}

	switch {
	case completionRate >= 0.95:
		reasons = append(reasons, fmt.Sprintf("High completion rate (%.1f%%)", completionRate*100))
	case completionRate >= 0.85:
		reasons = append(reasons, fmt.Sprintf("Good completion rate (%.1f%%)", completionRate*100))
	default:
		reasons = append(reasons, fmt.Sprintf("Low completion rate (%.1f%%) - improvement needed", completionRate*100))
	}

	if noShowRate > 0.05 {
		reasons = append(reasons, fmt.Sprintf("High no-show rate (%.1f%%) impacts reliability", noShowRate*100))
	} else if noShowRate < 0.02 {
		reasons = append(reasons, fmt.Sprintf("Excellent reliability with minimal no-shows (%.1f%%)", noShowRate*100))
	}

	if lateRate > 0.15 {
		reasons = append(reasons, fmt.Sprintf("Punctuality issues: %.1f%% late arrivals", lateRate*100))
	} else if lateRate < 0.05 && avgDelay < 5 {
		reasons = append(reasons, "Excellent punctuality record")
	}

	if anomalyRate > 0.10 {
		reasons = append(reasons, fmt.Sprintf("High anomaly rate (%.1f%%) requires investigation", anomalyRate*100))
	}

	if total < lowConfidenceBookings {
		reasons = append(reasons, fmt.Sprintf("Score based on limited data (%d bookings) - more history needed for confidence", total))
	} else if total >= highConfidenceBookings {
		reasons = append(reasons, fmt.Sprintf("Score based on substantial history (%d bookings)", total))
	}

	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
