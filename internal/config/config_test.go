package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"flight_surety/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv(EnvConfigPath, path)
}

func TestLoad_Defaults(t *testing.T) {
	writeConfig(t, "owner: 0xOwner\n")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, models.Address("0xowner"), cfg.Owner)
	assert.Equal(t, "Genesis Air", cfg.GenesisName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.FeedAddr)
	assert.Equal(t, 30*time.Second, cfg.SnapshotInterval)
	assert.Equal(t, 100, cfg.Journal.BatchSize)
	assert.Equal(t, time.Second, cfg.Journal.FlushInterval)
	assert.Equal(t, 20, cfg.Oracles.Count)
	assert.Equal(t, models.StatusUnknown, cfg.Oracles.FallbackStatus)
	assert.Equal(t, "10", cfg.Limits.MinimumFunds.String())
	assert.Equal(t, "1", cfg.Limits.RegistrationFee.String())
	assert.Equal(t, "1", cfg.Limits.MaxInsurance.String())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_FileAndEnv(t *testing.T) {
	writeConfig(t, `
owner: 0xowner
feed_addr: localhost:30010
snapshot_interval: 1m
journal:
  batch_size: 10
oracles:
  count: 5
  fallback_status: 30
limits:
  max_insurance: "0.5"
log:
  level: DEBUG
  format: json
`)
	t.Setenv("FLIGHT_SURETY_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("FLIGHT_SURETY_LIMITS_MINIMUM_FUNDS", "25.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:30010", cfg.FeedAddr)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, time.Minute, cfg.SnapshotInterval)
	assert.Equal(t, 10, cfg.Journal.BatchSize)
	assert.Equal(t, 5, cfg.Oracles.Count)
	assert.Equal(t, models.StatusLateWeather, cfg.Oracles.FallbackStatus)
	assert.Equal(t, "0.5", cfg.Limits.MaxInsurance.String())
	assert.Equal(t, "25.5", cfg.Limits.MinimumFunds.String())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing owner", body: "db_path: x.db\n"},
		{name: "bad amount", body: "owner: 0xowner\nlimits:\n  minimum_funds: lots\n"},
		{name: "zero minimum funds", body: "owner: 0xowner\nlimits:\n  minimum_funds: \"0\"\n"},
		{name: "bad fallback status", body: "owner: 0xowner\noracles:\n  fallback_status: 25\n"},
		{name: "negative oracle count", body: "owner: 0xowner\noracles:\n  count: -1\n"},
		{name: "bad log level", body: "owner: 0xowner\nlog:\n  level: verbose\n"},
		{name: "bad log format", body: "owner: 0xowner\nlog:\n  format: xml\n"},
		{name: "zero batch size", body: "owner: 0xowner\njournal:\n  batch_size: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.body)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
