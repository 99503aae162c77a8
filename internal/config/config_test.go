package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, "memory", cfg.OTP.Store)
	assert.Equal(t, "sandbox", cfg.WhatsApp.Mode)
	assert.Equal(t, "Asia/Jerusalem", cfg.Scheduling.Timezone)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := writeConfig(t, `
jwt:
  secret: from-file
otp:
  ttl: 2m
whatsapp:
  mode: sandbox
scheduling:
  timezone: Europe/London
`)
	t.Setenv("OTP_TTL_MINUTES", "10")
	t.Setenv("WHATSAPP_MODE", " PRODUCTION ")
	t.Setenv("CLIENT_ORIGIN", "http://localhost:3000/,https://clinic.example.com")
	t.Setenv("DOCTOR_PHONE", "0501234567")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, "production", cfg.WhatsApp.Mode)
	assert.Equal(t, []string{"http://localhost:3000", "https://clinic.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "0501234567", cfg.Auth.DoctorPhone)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load(t.TempDir())
		assert.ErrorContains(t, err, "jwt secret")
	})

	t.Run("bad timezone", func(t *testing.T) {
		dir := writeConfig(t, "jwt:\n  secret: x\nscheduling:\n  timezone: Mars/Olympus\n")
		_, err := Load(dir)
		assert.ErrorContains(t, err, "scheduling.timezone")
	})

	t.Run("redis store without url", func(t *testing.T) {
		dir := writeConfig(t, "jwt:\n  secret: x\notp:\n  store: redis\n")
		_, err := Load(dir)
		assert.ErrorContains(t, err, "redis.url")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "clinic", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=clinic sslmode=disable", d.DSN())
}

func TestConversions(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	w := cfg.Outbox.ToWorkerConfig()
	assert.Equal(t, 100, w.BatchSize)
	assert.Equal(t, 5*time.Second, w.PollInterval)
	assert.Equal(t, 5, w.MaxRetries)
	assert.Equal(t, 7*24*time.Hour, w.Retention)

	cfg.Redis.URL = "redis://localhost:6379/0"
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.ToBrokerConfig().URL)
}
