package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Vault    VaultConfig    `yaml:"vault"`
	Hedge    HedgeConfig    `yaml:"hedge"`
	Admin    AdminConfig    `yaml:"admin"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message bus configuration. An empty URL disables the
// NATS publisher; the engine still runs with the in-process observers.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// VaultConfig deploy-time vault policy.
type VaultConfig struct {
	// Deployer receives the genesis Admin capability token.
	Deployer          string `yaml:"deployer"`
	TimeLockThreshold uint64 `yaml:"time_lock_threshold"`
	TimeLockDuration  uint64 `yaml:"time_lock_duration_ms"`
}

// HedgeConfig hedge registry scheduling knobs. The batch interval and cap
// themselves are protocol constants; this only controls how often the
// scheduler attempts a batch.
type HedgeConfig struct {
	SchedulerTickMs uint64 `yaml:"scheduler_tick_ms"`
}

// AdminConfig admin API access control configuration. Secrets are read
// from the environment, never from the YAML file.
type AdminConfig struct {
	Username string `yaml:"username"`
}

// AppConfig global application configuration
var AppConfig *Config

// defaultConfig returns the built-in defaults applied before the YAML file
// and env overrides.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		NATS: NATSConfig{
			SubjectPrefix: "hedgevault.events",
		},
		Vault: VaultConfig{
			TimeLockThreshold: 100_000_000_000, // base units
			TimeLockDuration:  86_400_000,      // 24h
		},
		Hedge: HedgeConfig{
			SchedulerTickMs: 3_600_000, // one hour, matching the batch interval
		},
		Admin: AdminConfig{
			Username: "admin",
		},
	}
}

// LoadConfig loads configuration: defaults, then the YAML file (if any),
// then environment overrides.
func LoadConfig(path string) error {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("HEDGEVAULT_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		log.Printf("⚠️ Config file %s not found, using defaults and environment", path)
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Printf("✅ Loaded configuration from %s", path)
	}

	applyEnvOverrides(cfg)

	if cfg.Vault.TimeLockDuration == 0 {
		return fmt.Errorf("vault time_lock_duration_ms must be greater than zero")
	}

	AppConfig = cfg
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEDGEVAULT_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("HEDGEVAULT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HEDGEVAULT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("⚠️ Ignoring invalid HEDGEVAULT_SERVER_PORT=%q", v)
		}
	}
	if v := os.Getenv("HEDGEVAULT_DEPLOYER"); v != "" {
		cfg.Vault.Deployer = v
	}
	if v := os.Getenv("HEDGEVAULT_TIMELOCK_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Vault.TimeLockThreshold = threshold
		} else {
			log.Printf("⚠️ Ignoring invalid HEDGEVAULT_TIMELOCK_THRESHOLD=%q", v)
		}
	}
	if v := os.Getenv("HEDGEVAULT_TIMELOCK_DURATION_MS"); v != "" {
		if duration, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Vault.TimeLockDuration = duration
		} else {
			log.Printf("⚠️ Ignoring invalid HEDGEVAULT_TIMELOCK_DURATION_MS=%q", v)
		}
	}
}
