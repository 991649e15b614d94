// internal/workers/watchdog/check-overdue/config.go
package checkoverdue

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
	}
}
