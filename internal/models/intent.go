package models

import "strings"

// Intent names the business capability a message requests. Intent strings
// are STABLE identifiers - the classifier, policy tables, registry and
// decision-trail tokens all depend on them.
type Intent string

const (
	// Core operational intents
	IntentBookingStatus      Intent = "booking_status"
	IntentCarrierScore       Intent = "carrier_score"
	IntentSlotAvailability   Intent = "slot_availability"
	IntentSlotRecommendation Intent = "slot_recommendation"
	IntentDriverNoshowRisk   Intent = "driver_noshow_risk"
	IntentPassageHistory     Intent = "passage_history"
	IntentTrafficForecast    Intent = "traffic_forecast"
	IntentAnomalyDetection   Intent = "anomaly_detection"
	IntentBlockchainAudit    Intent = "blockchain_audit"

	// Analytics intents
	IntentAnalyticsStress Intent = "analytics_stress_index"
	IntentAnalyticsAlerts Intent = "analytics_alerts"
	IntentAnalyticsWhatIf Intent = "analytics_what_if"

	// Meta intents, handled by the orchestrator directly
	IntentHelp        Intent = "help"
	IntentHealthCheck Intent = "health_check"
	IntentSmalltalk   Intent = "smalltalk"
	IntentUnknown     Intent = "unknown"
)

// DefaultIntent is returned for unrecognized or missing input.
const DefaultIntent = IntentUnknown

// AllIntents is the closed intent vocabulary.
var AllIntents = map[Intent]bool{
	IntentBookingStatus:      true,
	IntentCarrierScore:       true,
	IntentSlotAvailability:   true,
	IntentSlotRecommendation: true,
	IntentDriverNoshowRisk:   true,
	IntentPassageHistory:     true,
	IntentTrafficForecast:    true,
	IntentAnomalyDetection:   true,
	IntentBlockchainAudit:    true,
	IntentAnalyticsStress:    true,
	IntentAnalyticsAlerts:    true,
	IntentAnalyticsWhatIf:    true,
	IntentHelp:               true,
	IntentHealthCheck:        true,
	IntentSmalltalk:          true,
	IntentUnknown:            true,
}

// NormalizeIntent lowercases and validates a raw intent string, falling back
// to DefaultIntent for anything outside the vocabulary.
func NormalizeIntent(raw string) Intent {
	i := Intent(strings.ToLower(strings.TrimSpace(raw)))
	if AllIntents[i] {
		return i
	}
	return DefaultIntent
}

// IsValid reports whether the intent belongs to the closed vocabulary.
func (i Intent) IsValid() bool {
	return AllIntents[i]
}

// IsMeta reports whether the intent is resolved by the orchestrator itself,
// short-circuiting before policy evaluation and dispatch.
func (i Intent) IsMeta() bool {
	switch i {
	case IntentHelp, IntentHealthCheck, IntentSmalltalk, IntentUnknown:
		return true
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}

// EntityHints tells downstream consumers which entity fields an intent
// usually needs. Advisory only - extraction never depends on them.
type EntityHints struct {
	Expected []string `json:"expected"`
	Optional []string `json:"optional"`
}

// IntentDecision is the classifier's output for one turn. Confidence is the
// declared strength of the single winning rule, not a calibrated
// probability. Immutable once produced.
type IntentDecision struct {
	Intent       Intent      `json:"intent"`
	Confidence   float64     `json:"confidence"`
	MatchedRules []string    `json:"matched_rules"`
	EntityHints  EntityHints `json:"entity_hints"`
}

// IsFollowUp reports whether the decision was produced by the follow-up
// resolver rather than a direct pattern match.
func (d IntentDecision) IsFollowUp() bool {
	for _, r := range d.MatchedRules {
		if r == "follow_up_pattern" {
			return true
		}
	}
	return false
}
