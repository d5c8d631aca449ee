// internal/orchestrator/policy/tables.go
package policy

import (
	"sort"

	"smartport-assistant/internal/models"
)

// Permission tables are immutable runtime configuration: editing them is the
// only way access rules change. Meta intents (help, health_check, smalltalk,
// unknown) bypass the tables entirely and never appear in them.

// roleGrants maps each role to the intents it may invoke.
var roleGrants = map[models.Role]map[models.Intent]bool{
	models.RoleAdmin: intentSet(
		models.IntentBookingStatus,
		models.IntentSlotAvailability,
		models.IntentSlotRecommendation,
		models.IntentPassageHistory,
		models.IntentTrafficForecast,
		models.IntentAnomalyDetection,
		models.IntentCarrierScore,
		models.IntentDriverNoshowRisk,
		models.IntentBlockchainAudit,
		models.IntentAnalyticsStress,
		models.IntentAnalyticsAlerts,
		models.IntentAnalyticsWhatIf,
	),
	models.RoleOperator: intentSet(
		models.IntentBookingStatus,
		models.IntentSlotAvailability,
		models.IntentSlotRecommendation,
		models.IntentPassageHistory,
		models.IntentTrafficForecast,
		models.IntentAnomalyDetection,
		models.IntentCarrierScore,
		models.IntentDriverNoshowRisk,
		models.IntentBlockchainAudit,
		models.IntentAnalyticsStress,
		models.IntentAnalyticsAlerts,
		models.IntentAnalyticsWhatIf,
	),
	// CARRIER sees its own data only; ownership rules below narrow these
	// grants further.
	models.RoleCarrier: intentSet(
		models.IntentBookingStatus,
		models.IntentSlotAvailability,
		models.IntentSlotRecommendation,
		models.IntentPassageHistory,
		models.IntentCarrierScore,
	),
	// Public availability only.
	models.RoleAnon: intentSet(
		models.IntentSlotAvailability,
	),
}

// requireAuth lists the intents an unauthenticated caller is refused
// outright, before role grants are even consulted.
var requireAuth = intentSet(
	models.IntentBookingStatus,
	models.IntentCarrierScore,
	models.IntentSlotRecommendation,
	models.IntentDriverNoshowRisk,
	models.IntentPassageHistory,
	models.IntentTrafficForecast,
	models.IntentAnomalyDetection,
	models.IntentBlockchainAudit,
	models.IntentAnalyticsStress,
	models.IntentAnalyticsAlerts,
	models.IntentAnalyticsWhatIf,
)

// requireOwnership lists the intents that touch per-carrier data. For the
// CARRIER role these get a local ownership check; anything that cannot be
// settled from the request alone is deferred to the capability handler.
var requireOwnership = intentSet(
	models.IntentBookingStatus,
	models.IntentCarrierScore,
	models.IntentPassageHistory,
)

// roleLadder orders roles from least to most privileged. MinimumRoleFor
// walks it bottom-up.
var roleLadder = []models.Role{
	models.RoleAnon,
	models.RoleCarrier,
	models.RoleOperator,
	models.RoleAdmin,
}

func intentSet(intents ...models.Intent) map[models.Intent]bool {
	s := make(map[models.Intent]bool, len(intents))
	for _, i := range intents {
		s[i] = true
	}
	return s
}

// RequiresAuth reports whether the intent refuses unauthenticated callers.
func RequiresAuth(intent models.Intent) bool {
	return requireAuth[intent]
}

// OwnershipSensitive reports whether the intent touches per-carrier data.
func OwnershipSensitive(intent models.Intent) bool {
	return requireOwnership[intent]
}

// IsGranted reports whether the role's grant table contains the intent. Meta
// intents are always granted.
func IsGranted(role models.Role, intent models.Intent) bool {
	if intent.IsMeta() {
		return true
	}
	return roleGrants[role][intent]
}

// MinimumRoleFor returns the least-privileged role whose grant table
// contains the intent. Falls back to ADMIN for intents no table lists, so a
// denial never advertises a role that would not actually help.
func MinimumRoleFor(intent models.Intent) models.Role {
	for _, role := range roleLadder {
		if roleGrants[role][intent] {
			return role
		}
	}
	return models.RoleAdmin
}

// AllowedIntents returns the sorted intent names a role may invoke,
// including the meta intents every caller gets. Used for denial messages
// and the help capability.
func AllowedIntents(role models.Role) []string {
	names := []string{
		models.IntentHelp.String(),
		models.IntentSmalltalk.String(),
	}
	for intent := range roleGrants[role] {
		names = append(names, intent.String())
	}
	sort.Strings(names)
	return names
}

// GrantedIntents returns the sorted operational intent names in the role's
// grant table, without the meta intents. The help response builds its
// feature list from this.
func GrantedIntents(role models.Role) []string {
	names := make([]string, 0, len(roleGrants[role]))
	for intent := range roleGrants[role] {
		names = append(names, intent.String())
	}
	sort.Strings(names)
	return names
}
