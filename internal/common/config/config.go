// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Audit         AuditConfig             `mapstructure:"audit"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Watchdog      WatchdogConfig          `mapstructure:"watchdog"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
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
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// RedisConfig is optional. An empty Address disables the profile cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuditConfig controls indexing of run reports into Elasticsearch.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// WatchdogConfig tunes the overdue run.
type WatchdogConfig struct {
	WorkerPoolSize      int    `mapstructure:"worker_pool_size"`
	ContactConcurrency  int    `mapstructure:"contact_concurrency"`
	SendTimeout         int    `mapstructure:"send_timeout"`      // milliseconds
	ProfileCacheTTL     int    `mapstructure:"profile_cache_ttl"` // milliseconds
	ScheduleInterval    int    `mapstructure:"schedule_interval"` // milliseconds, 0 disables
	FallbackDisplayName string `mapstructure:"fallback_display_name"`
}

// NotificationConfig holds settings for the outbound SMS transport.
type NotificationConfig struct {
	SMS SMSConfig `mapstructure:"sms"`
}

const (
	ProviderSNS    = "sns"
	ProviderTwilio = "twilio"
)

type SMSConfig struct {
	Provider string       `mapstructure:"provider"`
	Twilio   TwilioConfig `mapstructure:"twilio"`
	SNS      SNSConfig    `mapstructure:"sns"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	BaseURL    string `mapstructure:"base_url"`
}

// Configured reports whether every credential needed to send is present.
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

type SNSConfig struct {
	Region   string `mapstructure:"region"`
	SenderID string `mapstructure:"sender_id"`
}

func (s SNSConfig) Configured() bool {
	return s.Region != ""
}

// DeliveryMode resolves which transport a run uses: "sns", "twilio" or "dry_run".
func (s SMSConfig) DeliveryMode() string {
	switch s.Provider {
	case ProviderSNS:
		if s.SNS.Configured() {
			return ProviderSNS
		}
	case ProviderTwilio:
		if s.Twilio.Configured() {
			return ProviderTwilio
		}
	case "":
		if s.Twilio.Configured() {
			return ProviderTwilio
		}
	}
	return "dry_run"
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
