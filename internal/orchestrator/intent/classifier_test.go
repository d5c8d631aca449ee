// internal/orchestrator/intent/classifier_test.go
package intent

import (
	"testing"

	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

func newTestClassifier(t *testing.T) *Classifier {
	return NewClassifier(LoadConfig(), newTestLogger(t))
}

// ==========================
// Direct Match Tests
// ==========================

func TestClassifier_Classify_English(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		intent     models.Intent
		confidence float64
		rules      []string
	}{
		{
			name:       "booking status via reference",
			message:    "What's the status of REF123?",
			intent:     models.IntentBookingStatus,
			confidence: 0.85,
			rules:      []string{"booking_ref_pattern"},
		},
		{
			name:       "slot availability",
			message:    "Show me available slots for terminal A tomorrow",
			intent:     models.IntentSlotAvailability,
			confidence: 0.90,
			rules:      []string{"slot_availability_explicit"},
		},
		{
			name:       "slot recommendation",
			message:    "Recommend a slot for terminal B",
			intent:     models.IntentSlotRecommendation,
			confidence: 0.92,
			rules:      []string{"recommend_slot_explicit"},
		},
		{
			name:       "carrier score",
			message:    "What's the carrier score for company 456?",
			intent:     models.IntentCarrierScore,
			confidence: 0.95,
			rules:      []string{"carrier_score_explicit"},
		},
		{
			name:       "no-show risk",
			message:    "Predict no-show risk for carrier 123",
			intent:     models.IntentDriverNoshowRisk,
			confidence: 0.92,
			rules:      []string{"noshow_risk_explicit", "predict_noshow"},
		},
		{
			name:       "passage history",
			message:    "Show yesterday's truck passages",
			intent:     models.IntentPassageHistory,
			confidence: 0.88,
			rules:      []string{"show_passage", "yesterday_passage", "french_yesterday_passage"},
		},
		{
			name:       "traffic forecast",
			message:    "What's tomorrow's traffic forecast?",
			intent:     models.IntentTrafficForecast,
			confidence: 0.90,
			rules:      []string{"traffic_forecast_explicit", "future_traffic"},
		},
		{
			name:       "anomaly detection",
			message:    "Detect anomalies in terminal A",
			intent:     models.IntentAnomalyDetection,
			confidence: 0.92,
			rules:      []string{"anomaly_keyword", "detect_anomaly"},
		},
		{
			name:       "blockchain audit outranks booking reference",
			message:    "Verify booking REF456 on blockchain",
			intent:     models.IntentBlockchainAudit,
			confidence: 0.90,
			rules:      []string{"blockchain_booking", "audit_keyword"},
		},
		{
			name:       "help request",
			message:    "Help me",
			intent:     models.IntentHelp,
			confidence: 0.95,
			rules:      []string{"help_keyword"},
		},
		{
			name:       "greeting",
			message:    "Hello",
			intent:     models.IntentHelp,
			confidence: 0.95,
			rules:      []string{"greeting"},
		},
		{
			name:       "stress index",
			message:    "What is the stress index for terminal A?",
			intent:     models.IntentAnalyticsStress,
			confidence: 0.92,
			rules:      []string{"stress_index_explicit"},
		},
		{
			name:       "active alerts",
			message:    "Show me active alerts",
			intent:     models.IntentAnalyticsAlerts,
			confidence: 0.90,
			rules:      []string{"active_alerts", "alerts_keyword"},
		},
		{
			name:       "what-if simulation",
			message:    "What if we close gate 3 tomorrow?",
			intent:     models.IntentAnalyticsWhatIf,
			confidence: 0.92,
			rules:      []string{"what_if_question", "gate_closure_scenario"},
		},
		{
			name:       "health probe",
			message:    "Are you up?",
			intent:     models.IntentHealthCheck,
			confidence: 0.90,
			rules:      []string{"health_keyword"},
		},
	}

	c := newTestClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Classify(models.Utterance{Text: tt.message})
			assert.Equal(t, tt.intent, d.Intent)
			assert.InDelta(t, tt.confidence, d.Confidence, 0.001)
			assert.Equal(t, tt.rules, d.MatchedRules)
		})
	}
}

func TestClassifier_Classify_French(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		intent     models.Intent
		confidence float64
	}{
		{
			name:       "statut de reservation",
			message:    "Quel est le statut de REF789?",
			intent:     models.IntentBookingStatus,
			confidence: 0.85,
		},
		{
			name:       "disponibilite au terminal",
			message:    "Disponibilité au terminal A demain",
			intent:     models.IntentSlotAvailability,
			confidence: 0.90,
		},
		{
			name:       "suggestion de creneau",
			message:    "Suggère-moi un créneau pour terminal B",
			intent:     models.IntentSlotRecommendation,
			confidence: 0.92,
		},
		{
			name:       "fiabilite du transporteur",
			message:    "Quelle est la fiabilité du transporteur 456?",
			intent:     models.IntentCarrierScore,
			confidence: 0.95,
		},
		{
			name:       "historique des passages",
			message:    "Historique des passages hier",
			intent:     models.IntentPassageHistory,
			confidence: 0.90,
		},
		{
			name:       "prevision trafic",
			message:    "Prévision trafic demain",
			intent:     models.IntentTrafficForecast,
			confidence: 0.90,
		},
		{
			name:       "detection anomalies",
			message:    "Détecter les anomalies",
			intent:     models.IntentAnomalyDetection,
			confidence: 0.92,
		},
		{
			name:       "salutation",
			message:    "Bonjour",
			intent:     models.IntentHelp,
			confidence: 0.95,
		},
		{
			name:       "remerciement",
			message:    "Merci",
			intent:     models.IntentSmalltalk,
			confidence: 0.70,
		},
		{
			name:       "scenario et si",
			message:    "Et si on ferme la porte 3 demain ?",
			intent:     models.IntentAnalyticsWhatIf,
			confidence: 0.92,
		},
		{
			name:       "sante du systeme",
			message:    "Est-ce que tout fonctionne ?",
			intent:     models.IntentHealthCheck,
			confidence: 0.90,
		},
	}

	c := newTestClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Classify(models.Utterance{Text: tt.message})
			assert.Equal(t, tt.intent, d.Intent)
			assert.InDelta(t, tt.confidence, d.Confidence, 0.001)
		})
	}
}

func TestClassifier_Classify_AccentInsensitive(t *testing.T) {
	c := newTestClassifier(t)

	accented := c.Classify(models.Utterance{Text: "Quelle est la fiabilité du transporteur 456?"})
	plain := c.Classify(models.Utterance{Text: "Quelle est la fiabilite du transporteur 456?"})

	assert.Equal(t, accented.Intent, plain.Intent)
	assert.Equal(t, accented.Confidence, plain.Confidence)
	assert.Equal(t, accented.MatchedRules, plain.MatchedRules)
}

// ==========================
// Edge Case Tests
// ==========================

func TestClassifier_Classify_EdgeCases(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("empty message", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: ""})
		assert.Equal(t, models.IntentUnknown, d.Intent)
		assert.Equal(t, ConfidenceEmpty, d.Confidence)
		assert.Equal(t, []string{"empty_message"}, d.MatchedRules)
	})

	t.Run("whitespace only", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "   \t  "})
		assert.Equal(t, models.IntentUnknown, d.Intent)
		assert.Equal(t, []string{"empty_message"}, d.MatchedRules)
	})

	t.Run("gibberish", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "asdfghjkl"})
		assert.Equal(t, models.IntentUnknown, d.Intent)
		assert.Equal(t, ConfidenceNoMatch, d.Confidence)
		assert.Equal(t, []string{"no_pattern_matched"}, d.MatchedRules)
	})

	t.Run("no match is never confidence zero", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "zzz qqq www"})
		assert.Greater(t, d.Confidence, 0.0)
	})
}

// ==========================
// Priority and Tie-Break Tests
// ==========================

func TestClassifier_PriorityOrder(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("equal confidence goes to earlier family", func(t *testing.T) {
		// slot_availability_explicit and status_booking_explicit both match
		// at 0.90; slot_availability sits earlier in the rulebook.
		d := c.Classify(models.Utterance{Text: "Check available slots for my reservation"})
		assert.Equal(t, models.IntentSlotAvailability, d.Intent)
		assert.InDelta(t, 0.90, d.Confidence, 0.001)
	})

	t.Run("higher confidence beats earlier family", func(t *testing.T) {
		// audit_keyword matches at 0.85 but carrier_score_explicit at 0.95.
		d := c.Classify(models.Utterance{Text: "Audit the carrier reliability score"})
		assert.Equal(t, models.IntentCarrierScore, d.Intent)
		assert.InDelta(t, 0.95, d.Confidence, 0.001)
	})

	t.Run("anomaly outranks generic booking reference", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "Anomalies around REF123?"})
		assert.Equal(t, models.IntentAnomalyDetection, d.Intent)
	})
}

// ==========================
// Follow-Up Resolver Tests
// ==========================

func TestClassifier_FollowUp(t *testing.T) {
	c := newTestClassifier(t)

	history := []models.Turn{
		{Role: models.TurnRoleUser, Content: "Quelle est la fiabilité du transporteur 456?", Intent: models.IntentCarrierScore},
		{Role: models.TurnRoleAssistant, Content: "Le transporteur 456 a un score de 87."},
	}

	t.Run("continuation cue carries last intent", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "and yesterday?", History: history})
		assert.Equal(t, models.IntentCarrierScore, d.Intent)
		assert.InDelta(t, ConfidenceFollowUp, d.Confidence, 0.001)
		assert.Equal(t, []string{"follow_up_pattern", "last_intent:carrier_score"}, d.MatchedRules)
		assert.True(t, d.IsFollowUp())
	})

	t.Run("short message carries last intent without cue", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "encore une fois", History: history})
		assert.Equal(t, models.IntentCarrierScore, d.Intent)
		assert.InDelta(t, ConfidenceFollowUp, d.Confidence, 0.001)
	})

	t.Run("meta intents are skipped when scanning history", func(t *testing.T) {
		withMeta := append([]models.Turn{}, history...)
		withMeta = append(withMeta,
			models.Turn{Role: models.TurnRoleUser, Content: "merci", Intent: models.IntentSmalltalk},
			models.Turn{Role: models.TurnRoleUser, Content: "help", Intent: models.IntentHelp},
		)
		d := c.Classify(models.Utterance{Text: "et demain?", History: withMeta})
		assert.Equal(t, models.IntentCarrierScore, d.Intent)
	})

	t.Run("no usable history yields unknown", func(t *testing.T) {
		metaOnly := []models.Turn{
			{Role: models.TurnRoleUser, Content: "hello", Intent: models.IntentHelp},
		}
		d := c.Classify(models.Utterance{Text: "et demain?", History: metaOnly})
		assert.Equal(t, models.IntentUnknown, d.Intent)
		assert.Equal(t, ConfidenceNoMatch, d.Confidence)
	})

	t.Run("long message without cue is not a follow-up", func(t *testing.T) {
		d := c.Classify(models.Utterance{
			Text:    "the quick brown fox jumps over the lazy dog",
			History: history,
		})
		assert.Equal(t, models.IntentUnknown, d.Intent)
	})

	t.Run("direct match wins over follow-up", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "Merci", History: history})
		assert.Equal(t, models.IntentSmalltalk, d.Intent)
	})

	t.Run("no history means no follow-up", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "et demain?"})
		assert.Equal(t, models.IntentUnknown, d.Intent)
	})
}

// ==========================
// Entity Hint Tests
// ==========================

func TestClassifier_EntityHints(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("booking status hints", func(t *testing.T) {
		d := c.Classify(models.Utterance{Text: "What's the status of REF123?"})
		assert.Equal(t, []string{models.EntityBookingRef}, d.EntityHints.Expected)
		assert.Equal(t, []string{models.EntityDate}, d.EntityHints.Optional)
	})

	t.Run("slot recommendation hints", func(t *testing.T) {
		h := HintsFor(models.IntentSlotRecommendation)
		assert.Equal(t, []string{models.EntityTerminal, models.EntityDate}, h.Expected)
		assert.Contains(t, h.Optional, models.EntityRequestedTime)
	})

	t.Run("unknown intent has empty hints", func(t *testing.T) {
		h := HintsFor(models.IntentUnknown)
		assert.Empty(t, h.Expected)
		assert.Empty(t, h.Optional)
	})

	t.Run("follow-up inherits hints of carried intent", func(t *testing.T) {
		history := []models.Turn{
			{Role: models.TurnRoleUser, Content: "status of REF123", Intent: models.IntentBookingStatus},
		}
		d := c.Classify(models.Utterance{Text: "et demain?", History: history})
		assert.Equal(t, []string{models.EntityBookingRef}, d.EntityHints.Expected)
	})
}
