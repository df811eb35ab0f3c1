package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		NotionAPIKey:     "secret_notion",
		NotionDatabaseID: "14d206acf37d80388c24fb4cd9c6b8e3",
		NotionBaseURL:    "https://api.notion.com",
		FlexgeAPIKey:     "flexge-key",
		FlexgeAPIBase:    "https://partner-api.flexge.com/external/students",
		SyncPolicy:       PolicyUpdate,
		SyncConcurrency:  4,
		FlexgeRPS:        5,
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SYNC_INTERVAL", "SYNC_CONCURRENCY", "SYNC_POLICY", "RESET_SCHEDULE", "FLEXGE_RPS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want 10m", cfg.SyncInterval)
	}
	if cfg.SyncConcurrency != 8 {
		t.Errorf("SyncConcurrency = %d, want 8", cfg.SyncConcurrency)
	}
	if cfg.SyncPolicy != PolicyUpdate {
		t.Errorf("SyncPolicy = %q, want %q", cfg.SyncPolicy, PolicyUpdate)
	}
	if cfg.ResetSchedule != "0 0 * * 1" {
		t.Errorf("ResetSchedule = %q", cfg.ResetSchedule)
	}
	if cfg.FlexgeRPS != 5 {
		t.Errorf("FlexgeRPS = %v, want 5", cfg.FlexgeRPS)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "90s")
	t.Setenv("SYNC_CONCURRENCY", "3")
	t.Setenv("SYNC_POLICY", "SKIP")
	t.Setenv("FLEXGE_RPS", "2.5")

	cfg := Load()
	if cfg.SyncInterval != 90*time.Second {
		t.Errorf("SyncInterval = %v, want 90s", cfg.SyncInterval)
	}
	if cfg.SyncConcurrency != 3 {
		t.Errorf("SyncConcurrency = %d, want 3", cfg.SyncConcurrency)
	}
	if cfg.SyncPolicy != PolicySkip {
		t.Errorf("SyncPolicy = %q, want %q", cfg.SyncPolicy, PolicySkip)
	}
	if cfg.FlexgeRPS != 2.5 {
		t.Errorf("FlexgeRPS = %v, want 2.5", cfg.FlexgeRPS)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "soon")
	t.Setenv("SYNC_CONCURRENCY", "many")

	cfg := Load()
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want fallback 10m", cfg.SyncInterval)
	}
	if cfg.SyncConcurrency != 8 {
		t.Errorf("SyncConcurrency = %d, want fallback 8", cfg.SyncConcurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		wantMissing bool
		contains    string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:        "missing notion key",
			mutate:      func(c *Config) { c.NotionAPIKey = "" },
			wantErr:     true,
			wantMissing: true,
			contains:    "NOTION_API_KEY",
		},
		{
			name: "missing every credential",
			mutate: func(c *Config) {
				c.NotionAPIKey = ""
				c.NotionDatabaseID = ""
				c.FlexgeAPIKey = ""
			},
			wantErr:     true,
			wantMissing: true,
			contains:    "NOTION_API_KEY, NOTION_DATABASE_ID, FLEXGE_API_KEY",
		},
		{
			name:     "malformed database id",
			mutate:   func(c *Config) { c.NotionDatabaseID = "not-an-id" },
			wantErr:  true,
			contains: "NOTION_DATABASE_ID",
		},
		{
			name:     "bad source url",
			mutate:   func(c *Config) { c.FlexgeAPIBase = "ftp://flexge" },
			wantErr:  true,
			contains: "FLEXGE_API_BASE",
		},
		{
			name:     "unknown policy",
			mutate:   func(c *Config) { c.SyncPolicy = "merge" },
			wantErr:  true,
			contains: "SYNC_POLICY",
		},
		{
			name:     "zero concurrency",
			mutate:   func(c *Config) { c.SyncConcurrency = 0 },
			wantErr:  true,
			contains: "SYNC_CONCURRENCY",
		},
		{
			name:     "zero source rate",
			mutate:   func(c *Config) { c.FlexgeRPS = 0 },
			wantErr:  true,
			contains: "FLEXGE_RPS",
		},
		{
			name:     "negative source rate",
			mutate:   func(c *Config) { c.FlexgeRPS = -1 },
			wantErr:  true,
			contains: "FLEXGE_RPS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if errors.Is(err, ErrMissingConfig) != tt.wantMissing {
				t.Errorf("errors.Is(err, ErrMissingConfig) = %v, want %v", !tt.wantMissing, tt.wantMissing)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestLoadYAMLConfigFile_Missing(t *testing.T) {
	cfg, err := LoadYAMLConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadYAMLConfigFile() error = %v", err)
	}
	if cfg.Schema.Name != "Student Name" || cfg.Schema.Key != "Student Key" {
		t.Errorf("unexpected default schema: %+v", cfg.Schema)
	}
	if cfg.Defaults.Status != "Pending Review" {
		t.Errorf("Defaults.Status = %q, want Pending Review", cfg.Defaults.Status)
	}
}

func TestLoadYAMLConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
schema:
  name: Aluno
  duration: Horas
  week: Semana
  status: Status
  teacher: Teacher
defaults:
  teacher: Teacher Karina
level_aliases:
  Travel: A2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadYAMLConfigFile(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfigFile() error = %v", err)
	}
	if cfg.Schema.Name != "Aluno" || cfg.Schema.Duration != "Horas" || cfg.Schema.Week != "Semana" {
		t.Errorf("schema not loaded: %+v", cfg.Schema)
	}
	if cfg.Schema.Key != "Student Key" || cfg.Schema.Level != "Level" {
		t.Errorf("defaults not applied: %+v", cfg.Schema)
	}
	if cfg.Defaults.Teacher != "Teacher Karina" || cfg.Defaults.Status != "Pending Review" {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if cfg.LevelAliases["Travel"] != "A2" {
		t.Errorf("LevelAliases = %v", cfg.LevelAliases)
	}
}

func TestLoadYAMLConfigFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("schema: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadYAMLConfigFile(path); err == nil {
		t.Error("expected parse error")
	}
}
