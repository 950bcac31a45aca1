package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("DATA_SOURCE", "fixtures")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DataSourceFixtures, cfg.DataSource)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "usd", cfg.StripeCurrency)
	assert.False(t, cfg.PaymentsEnabled())
	assert.False(t, cfg.AIEnabled())
	assert.False(t, cfg.ObjectStorageEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("DATA_SOURCE", "postgres")
	t.Setenv("DB_DSN", "host=db")
	t.Setenv("LLM_BASE_URL", "http://llm.local/v1")
	t.Setenv("LLM_TIMEOUT", "15")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")
	t.Setenv("STRIPE_CURRENCY", "EUR")
	t.Setenv("DEFAULT_TAX_RATE", "0.08")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")
	t.Setenv("PUBLIC_BASE_URL", "https://firm.example/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, "eur", cfg.StripeCurrency)
	assert.Equal(t, 0.08, cfg.DefaultTaxRate)
	assert.Equal(t, "https://firm.example", cfg.PublicBaseURL)
	assert.True(t, cfg.AIEnabled())
	assert.True(t, cfg.PaymentsEnabled())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":  {"DATA_SOURCE": "fixtures"},
		"missing dsn":     {"SESSION_SECRET": "s", "DATA_SOURCE": "postgres"},
		"bad data source": {"SESSION_SECRET": "s", "DATA_SOURCE": "mongo"},
		"bad tax rate":    {"SESSION_SECRET": "s", "DATA_SOURCE": "fixtures", "DEFAULT_TAX_RATE": "1.5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SESSION_SECRET", "")
			t.Setenv("DB_DSN", "")
			t.Setenv("DEFAULT_TAX_RATE", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
