// internal/workers/admissions/lookup-university/config.go
package lookupuniversity

import (
	"time"

	"admissions-portal/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// DefaultCountry scopes queries that name no country.
	DefaultCountry string
}

func LoadConfig(w config.WorkerConfig, app config.AppConfig) *Config {
	timeout := config.GetDuration(w.Timeout)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Config{
		Timeout:        timeout,
		DefaultCountry: app.HomeCountry,
	}
}
