package models

// Turn role tags for conversation history.
const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// Turn is one prior message in a conversation, with the intent resolved for
// it at the time (empty for assistant turns and unresolved user turns).
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Intent    Intent `json:"intent,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Utterance is the immutable input of one pipeline turn: the raw text plus
// prior turns, newest last. Created per request and discarded after the turn
// completes.
type Utterance struct {
	Text    string
	History []Turn
}

// LastIntent walks history newest-first and returns the most recent resolved
// intent not in the skip set, or DefaultIntent when none qualifies.
func (u Utterance) LastIntent(skip map[Intent]bool) Intent {
	for i := len(u.History) - 1; i >= 0; i-- {
		it := u.History[i].Intent
		if it == "" || !it.IsValid() {
			continue
		}
		if skip[it] {
			continue
		}
		return it
	}
	return DefaultIntent
}
