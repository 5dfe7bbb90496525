package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"
  base_url: "https://track.example.com/"

database:
  host: "db.internal"
  port: 5433
  user: "mailer"
  password: "secret"
  name: "campaigns"

jwt:
  secret: "test-secret"
  expires_hours: 48

smtp:
  host: "smtp.example.com"
  port: 587
  username: "sender@example.com"
  password: "smtp-pass"
  starttls: true

imap:
  host: "imap.example.com"
  username: "sender@example.com"
  password: "imap-pass"
  interval_seconds: 120
  enabled: true
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Test server config
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "https://track.example.com/", cfg.Server.BaseURL)

	// Test database config
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Contains(t, cfg.Database.DSN(), "dbname=campaigns")
	assert.Contains(t, cfg.Database.DSN(), "sslmode=disable")

	// Test JWT config
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 48, cfg.JWT.ExpiresHours)

	// Test SMTP config
	assert.Equal(t, "smtp.example.com:587", cfg.SMTP.Addr())
	assert.True(t, cfg.SMTP.StartTLS)

	// Test IMAP config
	assert.Equal(t, "imap.example.com:993", cfg.IMAP.Addr())
	assert.Equal(t, 120, cfg.IMAP.IntervalSeconds)
	assert.True(t, cfg.IMAP.Enabled)
}

func TestLoadDefaults(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
jwt:
  secret: "test-key"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Verify defaults are applied
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "http://localhost:8080/", cfg.Server.BaseURL)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 24, cfg.JWT.ExpiresHours)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.Equal(t, 60, cfg.IMAP.IntervalSeconds)
	assert.Equal(t, 60, cfg.Redis.StatsTTLSeconds)
	assert.Equal(t, 3600, cfg.Feed.IntervalSeconds)
}

func TestLoadFromEnv(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
jwt:
  secret: "file-secret"

smtp:
  host: "file-host"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Set environment variables
	os.Setenv("JWT_SECRET", "env-secret")
	os.Setenv("SMTP_HOST", "env-host")
	os.Setenv("PORT", "9999")
	defer func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("SMTP_HOST")
		os.Unsetenv("PORT")
	}()

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "env-host", cfg.SMTP.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestExpiry(t *testing.T) {
	cfg := JWTConfig{ExpiresHours: 48}
	assert.Equal(t, 48*3600*1000000000, int(cfg.Expiry().Nanoseconds()))
}

func TestInterval(t *testing.T) {
	cfg := IMAPConfig{IntervalSeconds: 120}
	assert.Equal(t, 120*1000000000, int(cfg.Interval().Nanoseconds()))
}

func TestLoadShippedDefaultConfig(t *testing.T) {
	// The binaries load config/config.yaml relative to the repo root.
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "email_tracker", cfg.Database.Name)
	assert.False(t, cfg.SES.Enabled)
	assert.False(t, cfg.IMAP.Enabled)
}
