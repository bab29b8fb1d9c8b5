package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	API      APIConfig               `mapstructure:"api"`
	Autosave AutosaveConfig          `mapstructure:"autosave"`
	Lookup   LookupConfig            `mapstructure:"lookup"`
	Fees     FeesConfig              `mapstructure:"fees"`
	Referee  RefereeConfig           `mapstructure:"referee"`
	Payment  PaymentConfig           `mapstructure:"payment"`
	Snapshot SnapshotConfig          `mapstructure:"snapshot"`
	Database DatabaseConfig          `mapstructure:"database"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HomeCountry string `mapstructure:"home_country"`
}

// APIConfig points at the admissions REST backend.
type APIConfig struct {
	BaseURL  string `mapstructure:"base_url" validate:"required,url"`
	FilesURL string `mapstructure:"files_url"` // prefix for relative document paths
	Token    string `mapstructure:"token"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

type AutosaveConfig struct {
	Enabled bool `mapstructure:"enabled"`
	DelayMS int  `mapstructure:"delay_ms" validate:"gte=0"`
}

type LookupConfig struct {
	Source     string `mapstructure:"source" validate:"oneof=http elasticsearch"`
	URL        string `mapstructure:"url"`
	Index      string `mapstructure:"index"`
	DebounceMS int    `mapstructure:"debounce_ms" validate:"gte=0"`
	MinQuery   int    `mapstructure:"min_query" validate:"gte=1"`
	MaxResults int    `mapstructure:"max_results" validate:"gte=1"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
}

// FeesConfig holds the fixed application fees in minor currency units.
type FeesConfig struct {
	DomesticMinor         int64  `mapstructure:"domestic_minor" validate:"gt=0"`
	DomesticCurrency      string `mapstructure:"domestic_currency" validate:"len=3"`
	InternationalMinor    int64  `mapstructure:"international_minor" validate:"gt=0"`
	InternationalCurrency string `mapstructure:"international_currency" validate:"len=3"`
}

type RefereeConfig struct {
	AllowedDomains []string `mapstructure:"allowed_domains"`
}

type PaymentConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=midtrans recording"`
	Midtrans struct {
		ServerKey  string `mapstructure:"server_key"`
		Production bool   `mapstructure:"production"`
	} `mapstructure:"midtrans"`
}

type SnapshotConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory redis postgres"`
	TTL     int    `mapstructure:"ttl"` // seconds, 0 keeps forever
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address" validate:"required"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

func (a AutosaveConfig) Delay() time.Duration {
	return GetDuration(a.DelayMS)
}

func (l LookupConfig) Debounce() time.Duration {
	return GetDuration(l.DebounceMS)
}
