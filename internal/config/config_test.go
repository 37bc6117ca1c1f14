package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("LoadConfig with missing file: %v", err)
	}
	if AppConfig.Server.Port != 8080 {
		t.Fatalf("default port = %d, want 8080", AppConfig.Server.Port)
	}
	if AppConfig.Vault.TimeLockDuration != 86_400_000 {
		t.Fatalf("default timelock duration = %d", AppConfig.Vault.TimeLockDuration)
	}
	if AppConfig.Hedge.SchedulerTickMs != 3_600_000 {
		t.Fatalf("default scheduler tick = %d", AppConfig.Hedge.SchedulerTickMs)
	}
}

func TestLoadConfigYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
vault:
  time_lock_threshold: 100
  time_lock_duration_ms: 1000
  deployer: "0x00000000000000000000000000000000000000aa"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HEDGEVAULT_SERVER_PORT", "9100") // env wins over YAML
	t.Setenv("HEDGEVAULT_DB_DSN", "postgres://test")

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if AppConfig.Server.Port != 9100 {
		t.Fatalf("port = %d, want env override 9100", AppConfig.Server.Port)
	}
	if AppConfig.Vault.TimeLockThreshold != 100 {
		t.Fatalf("threshold = %d, want 100", AppConfig.Vault.TimeLockThreshold)
	}
	if AppConfig.Database.DSN != "postgres://test" {
		t.Fatalf("dsn = %q", AppConfig.Database.DSN)
	}
}

func TestLoadConfigRejectsZeroDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
vault:
  time_lock_duration_ms: 0
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadConfig(path); err == nil {
		t.Fatal("zero timelock duration should be rejected")
	}
}
