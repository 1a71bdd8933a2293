package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default config should be valid", mutate: func(c *Config) {}},
		{name: "invalid http port", mutate: func(c *Config) { c.Server.HTTPPort = 0 }, wantErr: true},
		{name: "invalid logging level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "unknown default timezone", mutate: func(c *Config) { c.Engine.DefaultTimezone = "Mars/Olympus" }, wantErr: true},
		{name: "offset default timezone", mutate: func(c *Config) { c.Engine.DefaultTimezone = "+08:00" }},
		{name: "target below low level", mutate: func(c *Config) { c.Engine.TargetLevelPct = 15 }, wantErr: true},
		{name: "spike multiplier not above one", mutate: func(c *Config) { c.Engine.SpikeMultiplier = 1 }, wantErr: true},
		{name: "negative lead time", mutate: func(c *Config) { c.Engine.LeadTimeDays = -1 }, wantErr: true},
		{name: "zero lead time allowed", mutate: func(c *Config) { c.Engine.LeadTimeDays = 0 }},
		{name: "unknown strategy", mutate: func(c *Config) { c.Engine.DefaultStrategy = "weather" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Source.Type = "postgres" }, wantErr: true},
		{name: "postgres with dsn", mutate: func(c *Config) {
			c.Source.Type = "postgres"
			c.Source.DSN = "postgres://tankwatch@localhost/tankwatch"
		}},
		{name: "etcd context without endpoints", mutate: func(c *Config) {
			c.Context.Type = "etcd"
			c.Etcd.Endpoints = nil
		}, wantErr: true},
		{name: "cache disabled ignores ttl", mutate: func(c *Config) {
			c.Cache.Type = "none"
			c.Cache.TTL = 0
		}},
		{name: "unknown cache type", mutate: func(c *Config) { c.Cache.Type = "memcached" }, wantErr: true},
		{name: "same worker subjects", mutate: func(c *Config) {
			c.Worker.RecommendationsSubject = c.Worker.ReadingsSubject
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engine.LeadTimeDays != 3 {
		t.Errorf("expected lead time 3, got %d", cfg.Engine.LeadTimeDays)
	}
	if cfg.Engine.TargetLevelPct != 70 || cfg.Engine.LowLevelPct != 20 {
		t.Errorf("expected target 70 / low 20, got %v / %v", cfg.Engine.TargetLevelPct, cfg.Engine.LowLevelPct)
	}
	if cfg.Engine.SpikeMultiplier != 2.0 {
		t.Errorf("expected spike multiplier 2.0, got %v", cfg.Engine.SpikeMultiplier)
	}
	if cfg.Engine.WindowDays != 90 || cfg.Engine.LookbackDays != 7 {
		t.Errorf("expected window 90 / lookback 7, got %d / %d", cfg.Engine.WindowDays, cfg.Engine.LookbackDays)
	}
	if cfg.Worker.ReadingsSubject != "tank.readings.updated" {
		t.Errorf("unexpected readings subject %s", cfg.Worker.ReadingsSubject)
	}
	if cfg.Server.Address() != "0.0.0.0:5555" {
		t.Errorf("expected address 0.0.0.0:5555, got %s", cfg.Server.Address())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigVersion(t *testing.T) {
	a := DefaultConfig().Engine
	b := DefaultConfig().Engine

	if a.ConfigVersion() != b.ConfigVersion() {
		t.Error("identical engine configs should share a version")
	}
	if len(a.ConfigVersion()) != 12 {
		t.Errorf("expected 12 hex chars, got %q", a.ConfigVersion())
	}

	b.LeadTimeDays = 5
	if a.ConfigVersion() == b.ConfigVersion() {
		t.Error("changing a tunable should change the version")
	}
}

func TestResolveTimezone(t *testing.T) {
	loc, err := ResolveTimezone("Australia/Perth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	noon := time.Date(2026, 1, 1, 12, 0, 0, 0, loc)
	if _, offset := noon.Zone(); offset != 8*3600 {
		t.Errorf("expected +08:00 for Perth, got %d", offset)
	}

	loc, err = ResolveTimezone("-05:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone(); offset != -(5*3600 + 30*60) {
		t.Errorf("expected -05:30, got %d", offset)
	}

	for _, bad := range []string{"", "Nowhere/City", "+8:00", "+25:00"} {
		if _, err := ResolveTimezone(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  http_port: 7070
engine:
  default_timezone: Australia/Perth
  lead_time_days: 5
worker:
  publish_all: true
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TANKWATCH_ENGINE_TARGET_LEVEL_PCT", "80")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.HTTPPort != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Engine.LeadTimeDays != 5 {
		t.Errorf("expected lead time 5, got %d", cfg.Engine.LeadTimeDays)
	}
	if cfg.Engine.TargetLevelPct != 80 {
		t.Errorf("expected env override 80, got %v", cfg.Engine.TargetLevelPct)
	}
	if cfg.Engine.LowLevelPct != 20 {
		t.Errorf("expected default low level 20, got %v", cfg.Engine.LowLevelPct)
	}
	if !cfg.Worker.PublishAll {
		t.Error("expected publish_all true")
	}
	if cfg.Cache.TTL != 15*time.Minute {
		t.Errorf("expected default cache ttl, got %v", cfg.Cache.TTL)
	}
}

func TestLoadInvalidFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  spike_multiplier: 0.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
	cfg := LoadOrDefault(path)
	if cfg.Engine.SpikeMultiplier != 2.0 {
		t.Errorf("expected default config, got spike %v", cfg.Engine.SpikeMultiplier)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TANKWATCH_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TANKWATCH_TEST_DOTENV") })

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if os.Getenv("TANKWATCH_TEST_DOTENV") != "loaded" {
		t.Error("expected variable from .env file")
	}
}
