// internal/orchestrator/config.go
package orchestrator

import "time"

// Config carries the tunables of one pipeline instance. Component-level
// defaults apply wherever a field is zero.
type Config struct {
	// FollowUpMaxWords is forwarded to the intent classifier's follow-up
	// resolver.
	FollowUpMaxWords int

	// HandlerTimeout bounds a single capability invocation.
	HandlerTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		FollowUpMaxWords: 4,
		HandlerTimeout:   10 * time.Second,
	}
}
