// internal/workers/delivery/push-deliver/config.go
package pushdeliver

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
