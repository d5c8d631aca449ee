// internal/orchestrator/respond/meta.go
package respond

import (
	"fmt"
	"strings"

	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator/policy"
)

// helpDescriptions maps each operational intent to the one-line feature
// description shown in help responses. Intents outside this map are silently
// skipped in the feature list.
var helpDescriptions = map[models.Intent]string{
	models.IntentBookingStatus:      "Check the status of your bookings (e.g., 'What's the status of REF123?')",
	models.IntentSlotAvailability:   "Find available time slots (e.g., 'Is there availability tomorrow at Terminal A?')",
	models.IntentSlotRecommendation: "Get slot recommendations (e.g., 'Suggest a better slot for tomorrow')",
	models.IntentPassageHistory:     "View past truck passages (e.g., 'Show me yesterday's entries')",
	models.IntentTrafficForecast:    "Get traffic predictions (e.g., 'What's tomorrow's traffic forecast?')",
	models.IntentAnomalyDetection:   "Detect unusual patterns (e.g., 'Show me recurrent no-shows')",
	models.IntentCarrierScore:       "Check carrier reliability (e.g., 'What's the score for carrier X?')",
	models.IntentDriverNoshowRisk:   "Assess driver no-show risk (e.g., 'Will driver 42 show up tomorrow?')",
	models.IntentBlockchainAudit:    "Verify blockchain proofs (e.g., 'Prove booking REF123')",
	models.IntentAnalyticsStress:    "Check the port stress index (e.g., 'What's the stress index for tomorrow?')",
	models.IntentAnalyticsAlerts:    "Review operational alerts (e.g., 'Show me current alerts')",
	models.IntentAnalyticsWhatIf:    "Run what-if simulations (e.g., 'What if 30% more trucks arrive tomorrow?')",
}

// unknownSuggestions are the example requests offered when no intent
// matched.
var unknownSuggestions = []string{
	"Check booking status: 'What's the status of REF123?'",
	"Find available slots: 'Is there availability tomorrow?'",
	"View passage history: 'Show yesterday's truck entries'",
}

// meta renders the short-circuit intents that never reach a capability
// handler: help, smalltalk, health_check and unknown.
func (n *Normalizer) meta(intent models.Intent, role models.Role) *models.NormalizedResponse {
	switch intent {
	case models.IntentHelp:
		return n.help(role)
	case models.IntentSmalltalk:
		return n.smalltalk()
	case models.IntentHealthCheck:
		return n.health()
	default:
		return n.unknown()
	}
}

// help lists the features the caller's role may use, one bullet per intent.
func (n *Normalizer) help(role models.Role) *models.NormalizedResponse {
	features := policy.GrantedIntents(role)

	bullets := make([]string, 0, len(features))
	for _, f := range features {
		if desc, ok := helpDescriptions[models.Intent(f)]; ok {
			bullets = append(bullets, "• "+desc)
		}
	}

	return &models.NormalizedResponse{
		Message: fmt.Sprintf(
			"Hello! I'm your Smart Port AI assistant. Here's what I can help you with:\n\n%s\n\nJust ask me in natural language!",
			strings.Join(bullets, "\n"),
		),
		Data: map[string]interface{}{
			"user_role":          role.String(),
			"available_features": features,
		},
	}
}

func (n *Normalizer) smalltalk() *models.NormalizedResponse {
	return &models.NormalizedResponse{
		Message: "Hello! I'm your Smart Port AI assistant. Ask me about bookings, slots, traffic or carrier scores, or say 'help' to see everything I can do.",
		Data: map[string]interface{}{
			"suggestion": "Say 'help' to list available features.",
		},
	}
}

// health reports pipeline liveness plus capability coverage when a catalog
// is wired.
func (n *Normalizer) health() *models.NormalizedResponse {
	message := "All systems are up and running."
	data := map[string]interface{}{"status": "healthy"}

	if n.catalog != nil {
		cat := n.catalog.Catalog()
		message = fmt.Sprintf("All systems are up and running. %d features are live, %d more are planned.", cat.Implemented, cat.Planned)
		data["implemented_features"] = cat.Implemented
		data["planned_features"] = cat.Planned
	}

	return &models.NormalizedResponse{Message: message, Data: data}
}

func (n *Normalizer) unknown() *models.NormalizedResponse {
	var b strings.Builder
	b.WriteString("I'm not sure I understood your request. Here are some things you can ask me:\n\n")
	for i, s := range unknownSuggestions {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• " + s)
	}

	return &models.NormalizedResponse{
		Message: b.String(),
		Data: map[string]interface{}{
			"suggestions": unknownSuggestions,
		},
	}
}
