// internal/capabilities/slot-query/models.go
package slotquery

// Slot is one bookable time window at a terminal gate. Start and End use
// "2006-01-02 15:04:05" so cached values survive a JSON round trip unchanged.
type Slot struct {
	SlotID    string `json:"slot_id"`
	Terminal  string `json:"terminal"`
	Gate      string `json:"gate"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
}

// RankedSlot is a slot annotated by the recommender.
type RankedSlot struct {
	Slot
	RankScore   float64  `json:"rank_score"`
	RankReasons []string `json:"rank_reasons"`
}

func (r RankedSlot) asPayload() map[string]interface{} {
	return map[string]interface{}{
		"slot_id":      r.SlotID,
		"terminal":     r.Terminal,
		"gate":         r.Gate,
		"start":        r.Start,
		"end":          r.End,
		"capacity":     r.Capacity,
		"remaining":    r.Remaining,
		"rank_score":   r.RankScore,
		"rank_reasons": r.RankReasons,
	}
}

// RequestedSlot anchors the ranking: time distance is measured against Start.
type RequestedSlot struct {
	Start    string
	Terminal string
	Gate     string
}

// Recommendation is the recommender's full output. Recommended is the
// truncated head of Ranked.
type Recommendation struct {
	Recommended []RankedSlot
	Ranked      []RankedSlot
	Strategy    string
	Reasons     []string
}
