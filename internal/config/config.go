package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
	// CORSOrigins lists allowed browser origins; empty allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig backs the async task queue and the redis pattern store.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// Pattern store backends.
const (
	PatternStoreMemory   = "memory"
	PatternStoreDatabase = "database"
	PatternStoreRedis    = "redis"
)

type AnalyticsConfig struct {
	PatternStore          string        `yaml:"pattern_store"`
	TrendWindow           time.Duration `yaml:"trend_window"`
	TopPatterns           int           `yaml:"top_patterns"`
	DefaultProjectionDays int           `yaml:"default_projection_days"`
	Timezone              string        `yaml:"timezone"`
	ScanSchedule          string        `yaml:"scan_schedule"` // cron spec, empty disables the scanner
	ScanBatchSize         int           `yaml:"scan_batch_size"`
	ExportFormats         []string      `yaml:"export_formats"`
	ExportRatePerMinute   int           `yaml:"export_rate_per_minute"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "issuepulse.db",
		},
		JWT: JWTConfig{
			Secret:     "issuepulse-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Analytics: AnalyticsConfig{
			PatternStore:          PatternStoreDatabase,
			TrendWindow:           7 * 24 * time.Hour,
			TopPatterns:           10,
			DefaultProjectionDays: 7,
			Timezone:              "UTC",
			ScanSchedule:          "*/5 * * * *",
			ScanBatchSize:         500,
			ExportFormats:         []string{"json", "csv", "xlsx"},
			ExportRatePerMinute:   30,
		},
	}
}

// Validate rejects settings the analytics engine cannot run with.
func (c *Config) Validate() error {
	switch c.Analytics.PatternStore {
	case PatternStoreMemory, PatternStoreDatabase:
	case PatternStoreRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("analytics.pattern_store=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown analytics.pattern_store %q", c.Analytics.PatternStore)
	}
	if c.Analytics.TrendWindow <= 0 {
		return fmt.Errorf("analytics.trend_window must be positive")
	}
	if c.Analytics.TopPatterns <= 0 {
		return fmt.Errorf("analytics.top_patterns must be positive")
	}
	if _, err := c.Analytics.Location(); err != nil {
		return err
	}
	for _, f := range c.Analytics.ExportFormats {
		switch f {
		case "json", "csv", "xlsx":
		default:
			return fmt.Errorf("unknown export format %q", f)
		}
	}
	return nil
}

// Location resolves the configured timezone used for day and hour buckets.
func (a AnalyticsConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("analytics.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) overrideFromEnv() error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if store := os.Getenv("PATTERN_STORE"); store != "" {
		c.Analytics.PatternStore = store
	}
	if tz := os.Getenv("ANALYTICS_TIMEZONE"); tz != "" {
		c.Analytics.Timezone = tz
	}
	if top := os.Getenv("ANALYTICS_TOP_PATTERNS"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil {
			return fmt.Errorf("ANALYTICS_TOP_PATTERNS: %w", err)
		}
		c.Analytics.TopPatterns = n
	}
	if formats := os.Getenv("EXPORT_FORMATS"); formats != "" {
		c.Analytics.ExportFormats = strings.Split(formats, ",")
	}
	// redis://:password@host:port/db
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		c.Redis.Enabled = true
		c.Redis.Addr = opt.Addr
		c.Redis.Password = opt.Password
		c.Redis.DB = opt.DB
	}
	return nil
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}
