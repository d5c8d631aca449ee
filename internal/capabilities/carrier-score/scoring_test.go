// internal/capabilities/carrier-score/scoring_test.go
package carrierscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================================================================
// Scoring Algorithm Tests
// ==========================================================================

func TestScoreCarrier_NoHistory(t *testing.T) {
	result := ScoreCarrier(CarrierStats{})

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, "D", result.Tier)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Components)
	assert.Equal(t, []string{"No booking history available for this carrier"}, result.Reasons)
	assert.Equal(t, map[string]interface{}{"total_bookings": 0}, result.StatsSummary)
}

func TestScoreCarrier_PerfectRecord(t *testing.T) {
	result := ScoreCarrier(CarrierStats{
		TotalBookings:     100,
		CompletedBookings: 100,
		AvgDwellMinutes:   45.0,
	})

	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, "A", result.Tier)
	assert.Equal(t, 1.0, result.Confidence)

	for _, component := range []string{"completion", "on_time", "no_show", "anomaly", "dwell_efficiency"} {
		assert.Equal(t, 100.0, result.Components[component], "component %s", component)
	}

	assert.Equal(t, []string{
		"Excellent overall performance",
		"High completion rate (100.0%)",
		"Excellent reliability with minimal no-shows (0.0%)",
		"Excellent punctuality record",
		"Score based on substantial history (100 bookings)",
	}, result.Reasons)
}

func TestScoreCarrier_PoorPerformer(t *testing.T) {
	result := ScoreCarrier(CarrierStats{
		TotalBookings:     20,
		CompletedBookings: 10,
		NoShows:           4,
		LateArrivals:      5,
		AvgDelayMinutes:   30.0,
		AvgDwellMinutes:   120.0,
		AnomalyCount:      5,
	})

	assert.Equal(t, "D", result.Tier)
	assert.InDelta(t, 34.12, result.Score, 0.01)

	assert.InDelta(t, 52.63, result.Components["completion"], 0.01)
	assert.InDelta(t, 73.33, result.Components["on_time"], 0.01)
	assert.Equal(t, 0.0, result.Components["no_show"])
	assert.Equal(t, 0.0, result.Components["anomaly"])
	assert.Equal(t, 0.0, result.Components["dwell_efficiency"])

	assert.Contains(t, result.Reasons, "Performance needs significant improvement")
	assert.Contains(t, result.Reasons, "Low completion rate (50.0%) - improvement needed")
	assert.Contains(t, result.Reasons, "High no-show rate (20.0%) impacts reliability")
	assert.Contains(t, result.Reasons, "Punctuality issues: 25.0% late arrivals")
	assert.Contains(t, result.Reasons, "High anomaly rate (25.0%) requires investigation")
	assert.LessOrEqual(t, len(result.Reasons), maxReasons)
}

func TestScoreCarrier_TierBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		stats     CarrierStats
		wantTier  string
		wantScore float64
	}{
		{
			name: "solid mid-tier carrier lands in B",
			stats: CarrierStats{
				TotalBookings:     60,
				CompletedBookings: 54,
				NoShows:           1,
				LateArrivals:      6,
				AvgDelayMinutes:   6.0,
				AvgDwellMinutes:   50.0,
				AnomalyCount:      3,
			},
			wantTier:  "B",
			wantScore: 82.64,
		},
		{
			name: "struggling carrier lands in C",
			stats: CarrierStats{
				TotalBookings:     40,
				CompletedBookings: 28,
				NoShows:           1,
				LateArrivals:      8,
				AvgDelayMinutes:   15.0,
				AvgDwellMinutes:   90.0,
				AnomalyCount:      3,
			},
			wantTier:  "C",
			wantScore: 56.83,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScoreCarrier(tt.stats)
			assert.Equal(t, tt.wantTier, result.Tier)
			assert.InDelta(t, tt.wantScore, result.Score, 0.01)
		})
	}
}

func TestScoreCarrier_ConfidenceBands(t *testing.T) {
	tests := []struct {
		total          int
		wantConfidence float64
	}{
		{total: 5, wantConfidence: 0.25},
		{total: 10, wantConfidence: 0.5},
		{total: 30, wantConfidence: 0.75},
		{total: 50, wantConfidence: 1.0},
		{total: 200, wantConfidence: 1.0},
	}

	for _, tt := range tests {
		result := ScoreCarrier(CarrierStats{
			TotalBookings:     tt.total,
			CompletedBookings: tt.total,
		})
		assert.InDelta(t, tt.wantConfidence, result.Confidence, 0.001, "total=%d", tt.total)
	}
}

func TestScoreCarrier_LimitedDataReason(t *testing.T) {
	result := ScoreCarrier(CarrierStats{
		TotalBookings:     5,
		CompletedBookings: 5,
	})

	assert.Contains(t, result.Reasons, "Score based on limited data (5 bookings) - more history needed for confidence")
}

func TestScoreCarrier_DwellDefaultsWithoutData(t *testing.T) {
	result := ScoreCarrier(CarrierStats{
		TotalBookings:     50,
		CompletedBookings: 50,
	})

	// No dwell telemetry reads as neutral, not as a penalty.
	assert.Equal(t, 50.0, result.Components["dwell_efficiency"])
}

func TestScoreCarrier_LateRateIgnoredWithoutCompletions(t *testing.T) {
	result := ScoreCarrier(CarrierStats{
		TotalBookings: 10,
		NoShows:       5,
		LateArrivals:  7,
	})

	// Late arrivals only count against carriers that completed bookings.
	assert.Equal(t, 100.0, result.Components["on_time"])
	assert.Equal(t, 0.0, result.Components["completion"])
	assert.Equal(t, 0.0, result.Components["no_show"])
}

func TestScoreCarrier_StatsSummary(t *testing.T) {
	result := ScoreCarrier(CarrierStats{
		TotalBookings:     80,
		CompletedBookings: 72,
		NoShows:           2,
		LateArrivals:      8,
		AvgDelayMinutes:   4.67,
		AvgDwellMinutes:   40.0,
		AnomalyCount:      4,
	})

	summary := result.StatsSummary
	require.NotNil(t, summary)
	assert.Equal(t, 80, summary["total_bookings"])
	assert.Equal(t, 90.0, summary["completion_rate"])
	assert.Equal(t, 90.0, summary["on_time_rate"])
	assert.Equal(t, 2.5, summary["no_show_rate"])
	assert.Equal(t, 4.7, summary["avg_delay_minutes"])
	assert.Equal(t, 5.0, summary["anomaly_rate"])
}

// ==========================================================================
// Benchmarks
// ==========================================================================

func BenchmarkScoreCarrier(b *testing.B) {
	stats := CarrierStats{
		TotalBookings:     250,
		CompletedBookings: 230,
		NoShows:           5,
		LateArrivals:      20,
		AvgDelayMinutes:   8.5,
		AvgDwellMinutes:   52.0,
		AnomalyCount:      12,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ScoreCarrier(stats)
	}
}
