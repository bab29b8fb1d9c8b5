package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
api:
  base_url: https://api.admissions.test/v1
camunda:
  broker_address: localhost:26500
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "admissions-portal", cfg.App.Name)
	assert.Equal(t, "Nigeria", cfg.App.HomeCountry)
	assert.Equal(t, time.Second, cfg.Autosave.Delay())
	assert.Equal(t, 300*time.Millisecond, cfg.Lookup.Debounce())
	assert.Equal(t, 3, cfg.Lookup.MinQuery)
	assert.Equal(t, int64(2_500_000), cfg.Fees.DomesticMinor)
	assert.Equal(t, "NGN", cfg.Fees.DomesticCurrency)
	assert.Equal(t, "USD", cfg.Fees.InternationalCurrency)
	assert.Equal(t, DefaultAllowedRefereeDomains, cfg.Referee.AllowedDomains)
	assert.Equal(t, "memory", cfg.Snapshot.Backend)
	assert.Equal(t, "recording", cfg.Payment.Provider)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_ADMISSIONS_BASE", "https://env.admissions.test")

	cfg, err := LoadFromFile(writeConfig(t, `
api:
  base_url: ${TEST_ADMISSIONS_BASE}
camunda:
  broker_address: localhost:26500
`))
	require.NoError(t, err)
	assert.Equal(t, "https://env.admissions.test", cfg.API.BaseURL)
}

func TestLoadFromFile_TokenFromEnvironment(t *testing.T) {
	t.Setenv("ADMISSIONS_API_TOKEN", "secret-token")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.API.Token)
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
workers:
  submit-admission-application:
    enabled: true
`))
	require.NoError(t, err)

	w := GetWorkerConfig(cfg, "submit-admission-application")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)

	assert.True(t, IsWorkerEnabled(cfg, "lookup-university"))
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing api base url",
			body: "camunda:\n  broker_address: localhost:26500\n",
		},
		{
			name: "missing broker",
			body: "api:\n  base_url: https://api.admissions.test\n",
		},
		{
			name: "redis backend without address",
			body: minimalConfig + "snapshot:\n  backend: redis\n",
		},
		{
			name: "unknown lookup source",
			body: minimalConfig + "lookup:\n  source: carrier-pigeon\n",
		},
		{
			name: "elasticsearch lookup without addresses",
			body: minimalConfig + "lookup:\n  source: elasticsearch\n",
		},
		{
			name: "midtrans without key",
			body: minimalConfig + "payment:\n  provider: midtrans\n",
		},
		{
			name: "bad currency code",
			body: minimalConfig + "fees:\n  domestic_currency: NAIRA\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MIDTRANS_SERVER_KEY", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "admissions", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=admissions sslmode=disable", p.GetDSN())
}
