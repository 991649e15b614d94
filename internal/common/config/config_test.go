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

func clearTwilioEnv(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_PHONE_NUMBER", "")
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: watchdog
    user: watchdog
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	clearTwilioEnv(t)

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, DefaultServerAddress, cfg.Server.Address)
	assert.Equal(t, DefaultAuditIndex, cfg.Audit.Index)
	assert.Equal(t, 4, cfg.Watchdog.WorkerPoolSize)
	assert.Equal(t, 1, cfg.Watchdog.ContactConcurrency)
	assert.Equal(t, 10*time.Second, GetDuration(cfg.Watchdog.SendTimeout))
	assert.Equal(t, DefaultFallbackDisplayName, cfg.Watchdog.FallbackDisplayName)
	assert.Equal(t, "dry_run", cfg.Notifications.SMS.DeliveryMode())
}

func TestLoadFromFile_TwilioFromEnvironment(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15550000000")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "AC123", cfg.Notifications.SMS.Twilio.AccountSID)
	assert.Equal(t, ProviderTwilio, cfg.Notifications.SMS.DeliveryMode())
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	clearTwilioEnv(t)
	t.Setenv("WATCHDOG_TEST_DB_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`    password: ${WATCHDOG_TEST_DB_PASSWORD}
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_Validation(t *testing.T) {
	clearTwilioEnv(t)
	t.Setenv("DB_USER", "")

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing postgres host",
			body:    "database:\n  postgres:\n    database: watchdog\n    user: watchdog\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "audit without elasticsearch",
			body:    minimalConfig + "audit:\n  enabled: true\n",
			wantErr: "database.elasticsearch",
		},
		{
			name:    "camunda without broker",
			body:    minimalConfig + "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "unknown provider",
			body:    minimalConfig + "notifications:\n  sms:\n    provider: pigeon\n",
			wantErr: "not supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSMSConfig_DeliveryMode(t *testing.T) {
	twilio := TwilioConfig{AccountSID: "AC", AuthToken: "tok", FromNumber: "+1"}

	tests := []struct {
		name string
		cfg  SMSConfig
		want string
	}{
		{"nothing configured", SMSConfig{}, "dry_run"},
		{"implicit twilio", SMSConfig{Twilio: twilio}, ProviderTwilio},
		{"partial twilio", SMSConfig{Twilio: TwilioConfig{AccountSID: "AC"}}, "dry_run"},
		{"explicit sns", SMSConfig{Provider: ProviderSNS, SNS: SNSConfig{Region: "eu-central-1"}}, ProviderSNS},
		{"sns without region", SMSConfig{Provider: ProviderSNS, Twilio: twilio}, "dry_run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DeliveryMode())
		})
	}
}
