// internal/orchestrator/dispatch/config.go
package dispatch

import "time"

type Config struct {
	// HandlerTimeout bounds a single capability invocation. The turn
	// completes with a timeout failure instead of hanging.
	HandlerTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		HandlerTimeout: 10 * time.Second,
	}
}
