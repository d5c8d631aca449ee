// internal/capabilities/traffic-forecast/forecast.go
package trafficforecast

import (
	"fmt"
	"math"
)

// Congestion levels keyed off the peak intensity of the window.
const (
	severeThreshold   = 0.90
	highThreshold     = 0.75
	moderateThreshold = 0.50
)

// Forecast is the aggregated view over the traffic observations of a window.
type Forecast struct {
	PeakHour        string
	PeakIntensity   float64
	AvgIntensity    float64
	CongestionLevel string
	Recommendations []string
	Observations    int
}

// BuildForecast reduces hourly traffic points to a peak window, a congestion
// level and deterministic recommendations. Ties on intensity keep the
// earliest hour.
func BuildForecast(points []TrafficPoint) Forecast {
	if len(points) == 0 {
		return Forecast{}
	}

	peak := points[0]
	quiet := points[0]
	sum := 0.0
	for _, point := range points {
		sum += point.Intensity
		if point.Intensity > peak.Intensity {
			peak = point
		}
		if point.Intensity < quiet.Intensity {
			quiet = point
		}
	}

	level := congestionLevel(peak.Intensity)
	return Forecast{
		PeakHour:        hourLabel(peak.Hour),
		PeakIntensity:   round2(peak.Intensity),
		AvgIntensity:    round2(sum / float64(len(points))),
		CongestionLevel: level,
		Recommendations: recommendationsFor(level, hourLabel(peak.Hour), hourLabel(quiet.Hour)),
		Observations:    len(points),
	}
}

func congestionLevel(peakIntensity float64) string {
	switch {
	case peakIntensity >= severeThreshold:
		return "severe"
	case peakIntensity >= highThreshold:
		return "high"
	case peakIntensity >= moderateThreshold:
		return "moderate"
	default:
		return "low"
	}
}

func recommendationsFor(level, peakHour, quietHour string) []string {
	switch level {
	case "severe":
		return []string{
			fmt.Sprintf("Avoid arrivals around %s if possible", peakHour),
			fmt.Sprintf("Quietest window expected around %s", quietHour),
			"Prepare for peak traffic periods",
		}
	case "high":
		return []string{
			fmt.Sprintf("Quietest window expected around %s", quietHour),
			"Prepare for peak traffic periods",
		}
	case "moderate":
		return []string{
			fmt.Sprintf("Allow extra transit time around the %s peak", peakHour),
		}
	default:
		return []string{"Continue normal operations"}
	}
}

func hourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
