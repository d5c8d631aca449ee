// internal/orchestrator/intent/config.go
package intent

type Config struct {
	// FollowUpMaxWords is the word-count ceiling under which an unmatched
	// message is treated as a candidate follow-up to the previous topic.
	FollowUpMaxWords int
}

func LoadConfig() *Config {
	return &Config{
		FollowUpMaxWords: 4,
	}
}
