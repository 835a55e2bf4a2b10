package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analytics.PatternStore != PatternStoreDatabase {
		t.Errorf("PatternStore = %q, expected %q", cfg.Analytics.PatternStore, PatternStoreDatabase)
	}
	if cfg.Analytics.TrendWindow != 7*24*time.Hour {
		t.Errorf("TrendWindow = %v, expected 168h", cfg.Analytics.TrendWindow)
	}
	if GlobalConfig != cfg {
		t.Error("Load should set GlobalConfig")
	}
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
analytics:
  pattern_store: memory
  trend_window: 72h
  timezone: Europe/Berlin
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, expected default 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Analytics.TrendWindow != 72*time.Hour {
		t.Errorf("TrendWindow = %v, expected 72h", cfg.Analytics.TrendWindow)
	}
	if cfg.Analytics.TopPatterns != 10 {
		t.Errorf("TopPatterns = %d, expected default 10", cfg.Analytics.TopPatterns)
	}
	loc, err := cfg.Analytics.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://:s3cret@cache:6380/2")
	t.Setenv("PATTERN_STORE", "redis")
	t.Setenv("ANALYTICS_TOP_PATTERNS", "5")
	t.Setenv("EXPORT_FORMATS", "csv,json")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache:6380" || cfg.Redis.Password != "s3cret" || cfg.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Analytics.PatternStore != PatternStoreRedis {
		t.Errorf("PatternStore = %q", cfg.Analytics.PatternStore)
	}
	if cfg.Analytics.TopPatterns != 5 {
		t.Errorf("TopPatterns = %d, expected 5", cfg.Analytics.TopPatterns)
	}
	if len(cfg.Analytics.ExportFormats) != 2 {
		t.Errorf("ExportFormats = %v", cfg.Analytics.ExportFormats)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown store", func(c *Config) { c.Analytics.PatternStore = "etcd" }, true},
		{"redis store without redis", func(c *Config) { c.Analytics.PatternStore = PatternStoreRedis }, true},
		{"redis store with redis", func(c *Config) {
			c.Analytics.PatternStore = PatternStoreRedis
			c.Redis.Enabled = true
		}, false},
		{"zero window", func(c *Config) { c.Analytics.TrendWindow = 0 }, true},
		{"bad timezone", func(c *Config) { c.Analytics.Timezone = "Mars/Olympus" }, true},
		{"bad export format", func(c *Config) { c.Analytics.ExportFormats = []string{"pdf"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Analytics.TrendWindow = 48 * time.Hour

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Analytics.TrendWindow != 48*time.Hour {
		t.Errorf("TrendWindow = %v, expected 48h", loaded.Analytics.TrendWindow)
	}
}
