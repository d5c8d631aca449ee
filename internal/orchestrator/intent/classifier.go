// internal/orchestrator/intent/classifier.go
package intent

import (
	"strings"

	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator/textnorm"
)

const (
	// ConfidenceFollowUp is deliberately below every rulebook confidence so
	// a weak but real direct match always beats stale context.
	ConfidenceFollowUp = 0.70

	// ConfidenceNoMatch is nonzero: "nothing matched" is itself information,
	// distinguishable from a low-confidence match.
	ConfidenceNoMatch = 0.5

	// ConfidenceEmpty tags empty or whitespace-only input.
	ConfidenceEmpty = 1.0
)

// Classifier resolves one utterance to an IntentDecision. Classification is
// a pure function of the text and the history's resolved intents: no I/O,
// no clock, safe for concurrent use.
type Classifier struct {
	config *Config
	logger logger.Logger
}

func NewClassifier(config *Config, log logger.Logger) *Classifier {
	if config == nil {
		config = LoadConfig()
	}
	if config.FollowUpMaxWords <= 0 {
		config.FollowUpMaxWords = LoadConfig().FollowUpMaxWords
	}
	return &Classifier{
		config: config,
		logger: log.WithFields(map[string]interface{}{"component": "intent_classifier"}),
	}
}

// Classify matches the utterance against the rulebook. Every rule of every
// family is evaluated; the family with the highest single rule confidence
// wins and reports all of its matched rule names. When nothing matches
// directly, the follow-up resolver may carry over the previous topic, and
// failing that the decision is unknown at ConfidenceNoMatch.
func (c *Classifier) Classify(utt models.Utterance) models.IntentDecision {
	if strings.TrimSpace(utt.Text) == "" {
		return models.IntentDecision{
			Intent:       models.IntentUnknown,
			Confidence:   ConfidenceEmpty,
			MatchedRules: []string{"empty_message"},
			EntityHints:  HintsFor(models.IntentUnknown),
		}
	}

	folded := textnorm.FoldLower(strings.TrimSpace(utt.Text))

	var best models.IntentDecision
	found := false
	for _, family := range rulebook {
		var matched []string
		confidence := 0.0
		for _, r := range family.rules {
			if r.re.MatchString(folded) {
				matched = append(matched, r.name)
				if r.confidence > confidence {
					confidence = r.confidence
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		// Strictly-greater keeps ties with the earlier, more specific family.
		if !found || confidence > best.Confidence {
			found = true
			best = models.IntentDecision{
				Intent:       family.intent,
				Confidence:   confidence,
				MatchedRules: matched,
				EntityHints:  HintsFor(family.intent),
			}
		}
	}
	if found {
		c.logger.Debug("intent matched", map[string]interface{}{
			"intent":     best.Intent.String(),
			"confidence": best.Confidence,
			"rules":      strings.Join(best.MatchedRules, ","),
		})
		return best
	}

	if d, ok := c.resolveFollowUp(utt, folded); ok {
		return d
	}

	return models.IntentDecision{
		Intent:       models.IntentUnknown,
		Confidence:   ConfidenceNoMatch,
		MatchedRules: []string{"no_pattern_matched"},
		EntityHints:  HintsFor(models.IntentUnknown),
	}
}

// resolveFollowUp fires only after direct matching failed. A short message
// or a continuation cue pulls the latest carry-over-worthy intent from
// history at ConfidenceFollowUp.
func (c *Classifier) resolveFollowUp(utt models.Utterance, folded string) (models.IntentDecision, bool) {
	if len(utt.History) == 0 {
		return models.IntentDecision{}, false
	}
	short := len(strings.Fields(folded)) <= c.config.FollowUpMaxWords
	if !short && !followUpCue.MatchString(folded) {
		return models.IntentDecision{}, false
	}
	last := utt.LastIntent(followUpSkip)
	if last == models.IntentUnknown {
		return models.IntentDecision{}, false
	}

	c.logger.Debug("follow-up resolved", map[string]interface{}{
		"intent": last.String(),
	})
	return models.IntentDecision{
		Intent:       last,
		Confidence:   ConfidenceFollowUp,
		MatchedRules: []string{"follow_up_pattern", "last_intent:" + last.String()},
		EntityHints:  HintsFor(last),
	}, true
}
