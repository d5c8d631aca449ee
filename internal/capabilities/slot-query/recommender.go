// internal/capabilities/slot-query/recommender.go
package slotquery

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Deterministic slot ranking. No randomness: the same inputs always produce
// the same ordering.
const (
	weightAvailability  = 0.40
	weightTimeDistance  = 0.30
	weightCarrierBuffer = 0.20
	weightGatePref      = 0.10

	minRemainingCapacity     = 1
	lowCarrierScoreThreshold = 60.0
	earlyBufferMinutes       = 60.0
)

const (
	strategyNoCandidates      = "no_candidates"
	strategyNoCapacity        = "no_capacity"
	strategyBufferRecommended = "buffer_recommended"
	strategyStandard          = "standard"
)

// RecommendSlots ranks candidate slots against the requested window. A
// carrier scoring below lowCarrierScoreThreshold flips the strategy to
// buffer_recommended, which favors earlier slots. carrierScore is nil when
// no score is known.
func RecommendSlots(requested RequestedSlot, candidates []Slot, carrierScore *float64, limit int) Recommendation {
	if limit <= 0 {
		limit = 5
	}
	if len(candidates) == 0 {
		return Recommendation{
			Recommended: []RankedSlot{},
			Ranked:      []RankedSlot{},
			Strategy:    strategyNoCandidates,
			Reasons:     []string{"No available slots match your criteria"},
		}
	}

	var requestedTime *time.Time
	if t, ok := parseSlotTime(requested.Start); ok {
		requestedTime = &t
	}

	available := make([]Slot, 0, len(candidates))
	for _, s := range candidates {
		if s.Remaining >= minRemainingCapacity {
			available = append(available, s)
		}
	}
	if len(available) == 0 {
		return Recommendation{
			Recommended: []RankedSlot{},
			Ranked:      []RankedSlot{},
			Strategy:    strategyNoCapacity,
			Reasons:     []string{"All slots are fully booked"},
		}
	}

	strategy := strategyStandard
	preferEarlier := false
	if carrierScore != nil && *carrierScore < lowCarrierScoreThreshold {
		strategy = strategyBufferRecommended
		preferEarlier = true
	}

	ranked := make([]RankedSlot, 0, len(available))
	for _, slot := range available {
		score, reasons := scoreSlot(slot, requestedTime, requested.Gate, carrierScore, preferEarlier)
		ranked = append(ranked, RankedSlot{
			Slot:        slot,
			RankScore:   math.Round(score*100) / 100,
			RankReasons: reasons,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RankScore > ranked[j].RankScore })

	top := ranked
	if len(top) > limit {
		top = top[:limit]
	}

	return Recommendation{
		Recommended: top,
		Ranked:      ranked,
		Strategy:    strategy,
		Reasons:     overallReasons(strategy, carrierScore, top),
	}
}

// scoreSlot rates one slot 0-100: availability 40%, time distance 30%,
// carrier buffer 20%, gate preference 10%.
func scoreSlot(slot Slot, requestedTime *time.Time, requestedGate string, carrierScore *float64, preferEarlier bool) (float64, []string) {
	score := 0.0
	var reasons []string

	remaining := slot.Remaining
	capacity := slot.Capacity
	ratio := 0.0
	if capacity > 0 {
		ratio = float64(remaining) / float64(capacity)
	}
	score += ratio * 100 * weightAvailability

	switch {
	case float64(remaining) > float64(capacity)*0.5:
		reasons = append(reasons, fmt.Sprintf("High availability (%d/%d spots)", remaining, capacity))
	case float64(remaining) > float64(capacity)*0.2:
		reasons = append(reasons, fmt.Sprintf("Moderate availability (%d/%d spots)", remaining, capacity))
	default:
		reasons = append(reasons, fmt.Sprintf("Limited availability (%d/%d spots)", remaining, capacity))
	}

	slotTime, hasSlotTime := parseSlotTime(slot.Start)
	if requestedTime != nil && hasSlotTime {
		diffMin := math.Abs(slotTime.Sub(*requestedTime).Minutes())
		var timeScore float64
		if diffMin == 0 {
			timeScore = 100
			reasons = append(reasons, "Exact time match")
		} else {
			base := math.Max(0, 100-diffMin/3)
			switch {
			case preferEarlier && slotTime.After(*requestedTime):
				// Later slots cost low-score carriers half their time score.
				timeScore = math.Max(0, base*0.5)
				if diffMin > earlyBufferMinutes {
					reasons = append(reasons, fmt.Sprintf("Later than requested (+%dmin) - consider earlier", int(diffMin)))
				} else {
					reasons = append(reasons, fmt.Sprintf("Later by %dmin", int(diffMin)))
				}
			case slotTime.Before(*requestedTime):
				timeScore = base
				if diffMin <= earlyBufferMinutes {
					reasons = append(reasons, fmt.Sprintf("Earlier by %dmin - good buffer", int(diffMin)))
				} else {
					reasons = append(reasons, fmt.Sprintf("Earlier by %dmin", int(diffMin)))
				}
			default:
				timeScore = base
				if diffMin <= 30 {
					reasons = append(reasons, fmt.Sprintf("Close to requested time (+/-%dmin)", int(diffMin)))
				} else {
					reasons = append(reasons, fmt.Sprintf("Time difference: %dmin", int(diffMin)))
				}
			}
		}
		timeScore = math.Max(0, math.Min(100, timeScore))
		score += timeScore * weightTimeDistance
	} else {
		score += 50 * weightTimeDistance
	}

	if carrierScore != nil && *carrierScore < lowCarrierScoreThreshold {
		var bufferScore float64
		switch {
		case hasSlotTime && requestedTime != nil && slotTime.Before(*requestedTime):
			bufferScore = 100
			reasons = append(reasons, "Early slot recommended for reliability buffer")
		case float64(remaining) > float64(capacity)*0.5:
			bufferScore = 80
		default:
			bufferScore = 50
		}
		score += bufferScore * weightCarrierBuffer
	} else {
		score += 70 * weightCarrierBuffer
	}

	if requestedGate != "" && slot.Gate == requestedGate {
		score += 100 * weightGatePref
		reasons = append(reasons, fmt.Sprintf("Matches requested gate %s", requestedGate))
	} else {
		score += 50 * weightGatePref
	}

	return math.Max(0, math.Min(100, score)), reasons
}

func overallReasons(strategy string, carrierScore *float64, recommended []RankedSlot) []string {
	var reasons []string

	if strategy == strategyBufferRecommended && carrierScore != nil {
		reasons = append(reasons, fmt.Sprintf(
			"Carrier score is %.0f/100 - recommending earlier slots for reliability buffer", *carrierScore))
	}
	if len(recommended) > 0 {
		top := recommended[0]
		reasons = append(reasons, fmt.Sprintf("Top recommendation: %s at %s/%s (%d/%d available)",
			top.Start, top.Terminal, top.Gate, top.Remaining, top.Capacity))
	}
	if len(recommended) > 1 {
		reasons = append(reasons, fmt.Sprintf("Showing top %d alternatives", len(recommended)))
	}

	if len(reasons) == 0 {
		return []string{"Slots ranked by availability and time preference"}
	}
	return reasons
}

const slotTimeLayout = "2006-01-02 15:04:05"

var slotTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	slotTimeLayout,
	"15:04",
}

func parseSlotTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range slotTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
