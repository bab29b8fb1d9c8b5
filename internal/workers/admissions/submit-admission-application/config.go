// internal/workers/admissions/submit-admission-application/config.go
package submitadmissionapplication

import (
	"time"

	"admissions-portal/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// OpenPayment controls whether an unpaid final submission opens the fee
	// checkout before the job completes.
	OpenPayment bool
}

func LoadConfig(w config.WorkerConfig) *Config {
	timeout := config.GetDuration(w.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		Timeout:     timeout,
		OpenPayment: true,
	}
}
