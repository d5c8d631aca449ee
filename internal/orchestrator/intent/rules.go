// internal/orchestrator/intent/rules.go
package intent

import (
	"regexp"

	"smartport-assistant/internal/models"
)

// rule is one weighted pattern. Rule names are stable diagnostic tokens:
// they travel verbatim in IntentDecision.MatchedRules and end up in
// proofs.decision_path, so renaming one breaks dashboards.
type rule struct {
	name       string
	confidence float64
	re         *regexp.Regexp
}

// ruleFamily groups the rules of one intent. Families are evaluated in
// slice order, which encodes priority: specific intents (blockchain_audit,
// anomaly_detection) come before generic ones (booking_status), so "verify
// booking REF456 on blockchain" resolves to the audit intent even though it
// also carries a booking reference. A confidence tie between two families
// goes to the earlier one.
type ruleFamily struct {
	intent models.Intent
	rules  []rule
}

// Patterns are matched against folded, lowercased text (see textnorm.Fold),
// so they are written unaccented: "fiabilite" matches "fiabilité". Most
// leading groups deliberately omit a trailing \b so that inflected forms
// match by prefix ("carriers", "prévisions"); groups that do end in \b
// carry explicit plural variants instead.
var rulebook = []ruleFamily{
	{intent: models.IntentHelp, rules: []rule{
		{"help_keyword", 0.95, regexp.MustCompile(`\b(help|assist|what can|how to|guide|aide|comment)\b`)},
		{"greeting", 0.95, regexp.MustCompile(`^(hi|hello|hey|bonjour|salam|salut)([\s!]|$)`)},
		{"capability_query", 0.90, regexp.MustCompile(`\b(what (can|do) you|qu'est-ce que tu|que peux-tu)\b`)},
	}},

	{intent: models.IntentHealthCheck, rules: []rule{
		{"health_keyword", 0.90, regexp.MustCompile(`\b(healthcheck|health check|health status|system (status|health)|service (status|health)|are you (up|alive|ok|running)|is the (system|service) (up|down|running|ok|healthy)|ping)\b`)},
		{"french_health", 0.90, regexp.MustCompile(`\b(etat du (systeme|service)|sante du (systeme|service)|tout fonctionne|ca marche)\b`)},
	}},

	{intent: models.IntentBlockchainAudit, rules: []rule{
		{"blockchain_booking", 0.90, regexp.MustCompile(`\b(blockchain|proof|verify|audit|trace|prouv|verif)\b.*\b(booking|reservation|ref|transaction)\b`)},
		{"audit_keyword", 0.85, regexp.MustCompile(`\b(prove|verify|audit|trace|prouv|verif)\b`)},
	}},

	{intent: models.IntentAnomalyDetection, rules: []rule{
		{"anomaly_keyword", 0.92, regexp.MustCompile(`\b(anomaly|anomalies|unusual|suspicious|suspects?|anormale?s?|inhabituelle?s?)\b`)},
		{"recurrent_issue", 0.90, regexp.MustCompile(`\b(no-show|delay|retard|absence).*\b(recurrente?s?|frequente?s?)\b`)},
		{"detect_anomaly", 0.88, regexp.MustCompile(`\b(detect|find|show|detecter|trouver|afficher).*\b(anomaly|anomalies|issues?|problemes?)\b`)},
	}},

	{intent: models.IntentAnalyticsStress, rules: []rule{
		{"stress_index_explicit", 0.92, regexp.MustCompile(`\b(stress|saturation|congestion).*\b(index|indices?|levels?|niveaux?)\b`)},
		{"index_stress_reversed", 0.92, regexp.MustCompile(`\b(index|indice|niveau).*\b(stress|saturation|congestion)\b`)},
		{"port_stress", 0.88, regexp.MustCompile(`\b(port|terminal)\b.*\b(stress|saturation|surcharge)\b`)},
	}},

	{intent: models.IntentAnalyticsWhatIf, rules: []rule{
		{"what_if_question", 0.92, regexp.MustCompile(`\b(what if|what happens if|et si|que se passe)\b`)},
		{"simulation_keyword", 0.90, regexp.MustCompile(`\bsimul\w*`)},
		{"gate_closure_scenario", 0.85, regexp.MustCompile(`\b(clos|ferm)\w*.*\b(gates?|terminal|portes?|lanes?)\b`)},
	}},

	{intent: models.IntentAnalyticsAlerts, rules: []rule{
		{"active_alerts", 0.90, regexp.MustCompile(`\b(active|current|ongoing|actives?|en cours).*\b(alerts?|alertes?|warnings?)\b`)},
		{"alerts_keyword", 0.88, regexp.MustCompile(`\b(alerts?|alertes?|warnings?|avertissements?)\b`)},
	}},

	{intent: models.IntentCarrierScore, rules: []rule{
		{"carrier_score_explicit", 0.95, regexp.MustCompile(`\b(carrier|driver|company|transporteur|chauffeur|societe).*\b(scores?|ratings?|reliability|notes?|fiabilite|performances?)\b`)},
		{"score_carrier_reversed", 0.95, regexp.MustCompile(`\b(score|rating|note|fiabilite).*\b(carriers?|drivers?|transporteurs?|chauffeurs?)\b`)},
		{"reliability_query", 0.88, regexp.MustCompile(`\b(how reliable|quelle fiabilite|performance of|performance de)\b`)},
		{"rate_carrier", 0.85, regexp.MustCompile(`\b(rate|noter|evaluer).*\b(carriers?|transporteurs?)\b`)},
	}},

	{intent: models.IntentDriverNoshowRisk, rules: []rule{
		{"noshow_risk_explicit", 0.92, regexp.MustCompile(`\b(no-show|noshow).*\b(risks?|predictions?|probabilites?|risques?)\b`)},
		{"risk_noshow_reversed", 0.92, regexp.MustCompile(`\b(risk|risque).*\b(no-shows?|noshows?|absences?)\b`)},
		{"predict_noshow", 0.90, regexp.MustCompile(`\b(predict|predire|prevoir).*\b(no-shows?|noshows?|absences?)\b`)},
	}},

	{intent: models.IntentTrafficForecast, rules: []rule{
		{"traffic_forecast_explicit", 0.90, regexp.MustCompile(`\b(traffic|congestion|trafic).*\b(forecasts?|predict|tomorrow|future|previsions?|demain|futur)\b`)},
		{"future_traffic", 0.88, regexp.MustCompile(`\b(tomorrow|next|demain|prochain).*\b(traffic|congestion|busy|trafic|affluence)\b`)},
		{"predict_traffic", 0.85, regexp.MustCompile(`\b(predict|forecast|prevoir|predire).*\b(traffic|loads?|trafic|charges?)\b`)},
	}},

	{intent: models.IntentPassageHistory, rules: []rule{
		{"passage_history_explicit", 0.90, regexp.MustCompile(`\b(passage|entry|entries|truck|vehicle|camion|vehicule).*\b(history|yesterday|past|previous|historique|hier|passe|precedents?)\b`)},
		{"show_passage", 0.85, regexp.MustCompile(`\b(show|list|get|afficher|lister).*\b(passages?|entry|entries|trucks?|camions?)\b`)},
		{"yesterday_passage", 0.88, regexp.MustCompile(`\byesterday.*\b(passages?|trucks?|entry|entries|camions?)\b`)},
		{"french_yesterday_passage", 0.88, regexp.MustCompile(`\b(hier|yesterday).*\b(passages?|entrees?|camions?)\b`)},
	}},

	{intent: models.IntentSlotRecommendation, rules: []rule{
		{"recommend_slot_explicit", 0.92, regexp.MustCompile(`\b(recommend\w*|recommand\w*|suggest\w*|sugger\w*|best|optimal|conseill\w*|meilleurs?)\b.*\b(slots?|time|creneaux?|heures?)\b`)},
		{"which_best_slot", 0.90, regexp.MustCompile(`\b(which|what|quel).*\b(slot|time|creneau).*\b(best|better|recommended?|meilleurs?|conseille)\b`)},
		{"alternative_slot", 0.85, regexp.MustCompile(`\b(alternative|other|autre).*\b(slots?|time|creneaux?)\b`)},
	}},

	{intent: models.IntentSlotAvailability, rules: []rule{
		{"slot_availability_explicit", 0.90, regexp.MustCompile(`\b(available|availability|free|open|disponible|disponibilite|libre|ouvert).*\b(slots?|time|appointments?|creneaux?|heures?|rendez-vous|terminal)\b`)},
		{"slot_available_reversed", 0.90, regexp.MustCompile(`\b(slot|time|appointment|creneau|heure).*\b(available|free|open|disponibles?|libres?|ouverts?)\b`)},
		{"book_slot", 0.85, regexp.MustCompile(`\b(book|reserve|schedule|reserver|planifier).*\b(slots?|time|creneaux?|heures?)\b`)},
		{"check_availability", 0.82, regexp.MustCompile(`\b(check|voir|verifier).*\b(availability|disponibilites?)\b`)},
	}},

	{intent: models.IntentBookingStatus, rules: []rule{
		{"status_booking_explicit", 0.90, regexp.MustCompile(`\b(status|track|where|check|find|locate|statut|suivre|ou est|verifier|trouver|localiser).*\b(bookings?|reservations?|refs?|references?)\b`)},
		{"booking_status_reversed", 0.90, regexp.MustCompile(`\b(booking|reservation|ref|reference).*\b(status|track|where|check|statut|suivre|ou est)\b`)},
		{"booking_ref_pattern", 0.85, regexp.MustCompile(`\bref[-\s]?\d{3,}\b`)},
		{"where_booking", 0.82, regexp.MustCompile(`\b(where is|ou est|quand|when).*\b(booking|reservation|my|ma|mon)\b`)},
	}},

	{intent: models.IntentSmalltalk, rules: []rule{
		{"acknowledgment", 0.70, regexp.MustCompile(`^(ok|okay|d'accord|merci|thanks|thank you|oui|yes|non|no)([\s!.]|$)`)},
		{"positive_short", 0.65, regexp.MustCompile(`^(good|bien|bon)([\s!.]|$)`)},
		{"how_are_you", 0.75, regexp.MustCompile(`\b(how are you|comment ca va|ca va)\b`)},
	}},
}

// followUpCue marks continuation phrasing: conjunctions, temporal deictics
// and "same/also" equivalents in both languages.
var followUpCue = regexp.MustCompile(`\b(and|what about|then|also|too|same|yesterday|tomorrow|today|next|previous|et|puis|aussi|meme|hier|demain|aujourd'hui)\b`)

// followUpSkip lists intents the follow-up resolver never carries over: a
// short "merci" after a help answer must not resurrect help as the topic.
var followUpSkip = map[models.Intent]bool{
	models.IntentUnknown:     true,
	models.IntentHelp:        true,
	models.IntentSmalltalk:   true,
	models.IntentHealthCheck: true,
}

// entityHints declares which entity fields each intent usually needs.
// Advisory only: extraction runs unconditionally and never consults them.
var entityHints = map[models.Intent]models.EntityHints{
	models.IntentBookingStatus:      {Expected: []string{models.EntityBookingRef}, Optional: []string{models.EntityDate}},
	models.IntentCarrierScore:       {Expected: []string{models.EntityCarrierID}, Optional: []string{}},
	models.IntentSlotAvailability:   {Expected: []string{models.EntityTerminal, models.EntityDate}, Optional: []string{models.EntityGate}},
	models.IntentSlotRecommendation: {Expected: []string{models.EntityTerminal, models.EntityDate}, Optional: []string{models.EntityGate, models.EntityCarrierID, models.EntityRequestedTime}},
	models.IntentDriverNoshowRisk:   {Expected: []string{}, Optional: []string{models.EntityCarrierID, models.EntityBookingRef, "booking_status"}},
	models.IntentPassageHistory:     {Expected: []string{models.EntityDate}, Optional: []string{models.EntityTerminal, models.EntityGate}},
	models.IntentTrafficForecast:    {Expected: []string{models.EntityDate}, Optional: []string{models.EntityTerminal}},
	models.IntentAnomalyDetection:   {Expected: []string{}, Optional: []string{models.EntityDate, models.EntityTerminal, models.EntityCarrierID}},
	models.IntentBlockchainAudit:    {Expected: []string{models.EntityBookingRef}, Optional: []string{}},
	models.IntentAnalyticsStress:    {Expected: []string{}, Optional: []string{models.EntityTerminal, models.EntityDate}},
	models.IntentAnalyticsAlerts:    {Expected: []string{}, Optional: []string{models.EntityTerminal}},
	models.IntentAnalyticsWhatIf:    {Expected: []string{}, Optional: []string{models.EntityTerminal, models.EntityGate}},
}

// HintsFor returns the advisory entity hints for an intent. Intents without
// an entry, the meta intents included, get empty hints.
func HintsFor(in models.Intent) models.EntityHints {
	if h, ok := entityHints[in]; ok {
		return h
	}
	return models.EntityHints{Expected: []string{}, Optional: []string{}}
}
