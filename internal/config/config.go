package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvConfigPath names the environment variable holding an explicit config file path
const EnvConfigPath = "FLIGHT_SURETY_CONFIG_PATH"

// Config holds all configuration for the daemon
type Config struct {
	Owner            models.Address
	GenesisName      string
	DBPath           string
	HTTPAddr         string
	FeedAddr         string // empty disables the status feed
	SnapshotInterval time.Duration
	Journal          JournalConfig
	Oracles          OraclesConfig
	Limits           LimitsConfig
	Log              LogConfig
}

// JournalConfig controls event batching into the database
type JournalConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// OraclesConfig controls the simulated oracle responder
type OraclesConfig struct {
	Count int // 0 disables the responder
	// FallbackStatus answers requests for flights the feed has not reported.
	// Unknown makes the oracles abstain; anything else is for demos only.
	FallbackStatus models.FlightStatus
}

// LimitsConfig holds the monetary limits fixed at initialization
type LimitsConfig struct {
	MinimumFunds    decimal.Decimal
	RegistrationFee decimal.Decimal
	MaxInsurance    decimal.Decimal
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("genesis_name", "Genesis Air")
	v.SetDefault("db_path", "flight_surety.db")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("feed_addr", "")
	v.SetDefault("snapshot_interval", "30s")
	v.SetDefault("journal.batch_size", 100)
	v.SetDefault("journal.flush_interval", "1s")
	v.SetDefault("oracles.count", 20)
	v.SetDefault("oracles.fallback_status", int(models.StatusUnknown))
	v.SetDefault("limits.minimum_funds", "10")
	v.SetDefault("limits.registration_fee", "1")
	v.SetDefault("limits.max_insurance", "1")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/flight_surety")
	v.AddConfigPath(".")

	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - defaults + env vars
	}

	v.SetEnvPrefix("FLIGHT_SURETY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := build(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Owner:            models.NormalizeAddress(v.GetString("owner")),
		GenesisName:      v.GetString("genesis_name"),
		DBPath:           v.GetString("db_path"),
		HTTPAddr:         v.GetString("http_addr"),
		FeedAddr:         v.GetString("feed_addr"),
		SnapshotInterval: v.GetDuration("snapshot_interval"),
		Journal: JournalConfig{
			BatchSize:     v.GetInt("journal.batch_size"),
			FlushInterval: v.GetDuration("journal.flush_interval"),
		},
		Oracles: OraclesConfig{
			Count: v.GetInt("oracles.count"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	status, err := models.ParseFlightStatus(v.GetInt("oracles.fallback_status"))
	if err != nil {
		return nil, fmt.Errorf("oracles.fallback_status: %w", err)
	}
	cfg.Oracles.FallbackStatus = status

	amounts := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"limits.minimum_funds", &cfg.Limits.MinimumFunds},
		{"limits.registration_fee", &cfg.Limits.RegistrationFee},
		{"limits.max_insurance", &cfg.Limits.MaxInsurance},
	}
	for _, a := range amounts {
		d, err := decimal.NewFromString(v.GetString(a.key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.key, err)
		}
		*a.dst = d
	}

	return cfg, nil
}

// validate validates the configuration values
func validate(cfg *Config) error {
	if cfg.Owner.IsZero() {
		return fmt.Errorf("owner is required")
	}

	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if cfg.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}

	if cfg.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot_interval must be greater than 0")
	}

	if cfg.Journal.BatchSize <= 0 {
		return fmt.Errorf("journal.batch_size must be greater than 0")
	}

	if cfg.Journal.FlushInterval <= 0 {
		return fmt.Errorf("journal.flush_interval must be greater than 0")
	}

	if cfg.Oracles.Count < 0 {
		return fmt.Errorf("oracles.count must not be negative")
	}

	if !cfg.Limits.MinimumFunds.IsPositive() {
		return fmt.Errorf("limits.minimum_funds must be positive")
	}

	if cfg.Limits.RegistrationFee.IsNegative() {
		return fmt.Errorf("limits.registration_fee must not be negative")
	}

	if !cfg.Limits.MaxInsurance.IsPositive() {
		return fmt.Errorf("limits.max_insurance must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[cfg.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
