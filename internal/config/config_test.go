package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Email.Enabled())
	assert.Contains(t, cfg.Database.ConnectionString(), "dbname=")
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	t.Setenv("APP_ENV", "staging")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseURLWins(t *testing.T) {
	c := DatabaseConfig{URL: "postgres://u:p@db:5432/x", Host: "ignored"}
	assert.Equal(t, "postgres://u:p@db:5432/x", c.ConnectionString())
}

func TestEmailEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  EmailConfig
		want bool
	}{
		{"all set", EmailConfig{SMTPHost: "smtp", SMTPUser: "u", SMTPPassword: "p"}, true},
		{"missing password", EmailConfig{SMTPHost: "smtp", SMTPUser: "u"}, false},
		{"missing host", EmailConfig{SMTPUser: "u", SMTPPassword: "p"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Enabled())
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "30")
	t.Setenv("X_SLICE", " a, ,b ")

	assert.Equal(t, 7, getIntEnv("X_INT", 7))
	assert.Equal(t, 30*time.Second, getDurationEnv("X_DUR", time.Minute))
	assert.Equal(t, []string{"a", "b"}, getSliceEnv("X_SLICE", nil))
}
