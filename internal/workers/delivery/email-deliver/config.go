// internal/workers/delivery/email-deliver/config.go
package emaildeliver

import "time"

type Config struct {
	Timeout      time.Duration
	RetryBackoff time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		RetryBackoff: 5 * time.Second,
	}
}
