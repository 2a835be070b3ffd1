package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tamperscan/internal/patterns"
	"tamperscan/internal/timeline"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "tamperscan.toml", `
version = 1

[logging]
level = "debug"
format = "json"

[storage]
database_path = "/var/lib/tamperscan/scan.db"

[risk]
moderate_multiplier = 1.4

[timeline]
rapid_window = "3m"
rapid_count = 4

[patterns]
disabled = ["template_fraud"]
tamper_window = "20m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.DatabasePath != "/var/lib/tamperscan/scan.db" {
		t.Errorf("database_path = %q", cfg.Storage.DatabasePath)
	}
	if cfg.Risk.ModerateMultiplier != 1.4 {
		t.Errorf("moderate_multiplier = %v", cfg.Risk.ModerateMultiplier)
	}
	tl := cfg.Timeline.Component()
	if tl.RapidWindow != 3*time.Minute || tl.RapidCount != 4 {
		t.Errorf("timeline = %+v", tl)
	}
	// Untouched sections keep their defaults.
	if tl.SealGrace != 15*time.Minute {
		t.Errorf("seal_grace = %v, want default 15m", tl.SealGrace)
	}
	pt := cfg.Patterns.Component()
	if pt.TamperWindow != 20*time.Minute {
		t.Errorf("tamper_window = %v", pt.TamperWindow)
	}
	if len(pt.Disabled) != 1 || pt.Disabled[0] != patterns.TypeTemplateFraud {
		t.Errorf("disabled = %v", pt.Disabled)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"bad level", "[logging]\nlevel = \"verbose\"\n"},
		{"bad format", "[logging]\nformat = \"xml\"\n"},
		{"bad version", "version = 99\n"},
		{"empty db path", "[storage]\ndatabase_path = \"\"\n"},
		{"bad threshold order", "[risk]\nmedium_threshold = 0.9\nhigh_threshold = 0.6\n"},
		{"bad rapid window", "[timeline]\nrapid_window = \"0s\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.toml", tt.toml)
			if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TAMPERSCAN_LOG_LEVEL", "warn")
	t.Setenv("TAMPERSCAN_DB_PATH", "/tmp/override.db")

	path := writeFile(t, "tamperscan.toml", "[logging]\nlevel = \"info\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Storage.DatabasePath != "/tmp/override.db" {
		t.Errorf("database_path = %q", cfg.Storage.DatabasePath)
	}
}

func TestLoaderReloadKeepsLastGoodConfig(t *testing.T) {
	path := writeFile(t, "tamperscan.toml", "[logging]\nlevel = \"debug\"\n")
	l := NewLoader(path)
	defer l.Close()

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}

	// A broken rewrite must not replace the loaded config.
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"verbose\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l.reload()
	if got := l.Config().Logging.Level; got != "debug" {
		t.Errorf("level after bad reload = %q, want debug", got)
	}
}

func TestLoadActorRegistry(t *testing.T) {
	path := writeFile(t, "actors.yaml", `
artifacts:
  doc-001: [alice, bob]
  doc-002: [carol]
`)
	lookup, err := LoadActorRegistry(path)
	if err != nil {
		t.Fatalf("LoadActorRegistry: %v", err)
	}
	if set := lookup("doc-001"); !set["alice"] || !set["bob"] || set["carol"] {
		t.Errorf("doc-001 actors = %v", set)
	}
	if set := lookup("doc-404"); set != nil {
		t.Errorf("unknown artifact = %v, want nil", set)
	}

	var _ timeline.AuthorizedActors = lookup
}

func TestLoadTemplateAllowList(t *testing.T) {
	path := writeFile(t, "templates.yaml", "templates:\n  - aaa111\n  - bbb222\n")
	got, err := LoadTemplateAllowList(path)
	if err != nil {
		t.Fatalf("LoadTemplateAllowList: %v", err)
	}
	if len(got) != 2 || got[0] != "aaa111" || got[1] != "bbb222" {
		t.Errorf("templates = %v", got)
	}
}
