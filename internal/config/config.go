package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Workers  int     `yaml:"workers"` // concurrent update handlers
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type SheetsConfig struct {
	SpreadsheetID   string        `yaml:"spreadsheet_id"`
	CredentialsFile string        `yaml:"credentials_file"`
	RetryAttempts   int           `yaml:"retry_attempts"` // total attempts incl. the first
	RetryBackoff    time.Duration `yaml:"retry_backoff"`  // base delay, doubled per attempt
}

type DriveConfig struct {
	Folder string `yaml:"folder"` // receipts folder name
}

type StateConfig struct {
	Backend string        `yaml:"backend"` // memory | redis
	TTL     time.Duration `yaml:"ttl"`     // redis backend only
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type OpsConfig struct {
	Port int `yaml:"port"` // /healthz and /metrics
}

type Config struct {
	Bot    BotConfig    `yaml:"bot"`
	Log    LogConfig    `yaml:"log"`
	Sheets SheetsConfig `yaml:"sheets"`
	Drive  DriveConfig  `yaml:"drive"`
	State  StateConfig  `yaml:"state"`
	Redis  RedisConfig  `yaml:"redis"`
	Ops    OpsConfig    `yaml:"ops"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load reads and validates the YAML config at path.
func Load(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Sheets.CredentialsFile == "" {
		cfg.Sheets.CredentialsFile = "credentials.json"
	}
	if cfg.Sheets.RetryAttempts <= 0 {
		cfg.Sheets.RetryAttempts = 3
	}
	if cfg.Sheets.RetryBackoff <= 0 {
		cfg.Sheets.RetryBackoff = time.Second
	}
	if cfg.Drive.Folder == "" {
		cfg.Drive.Folder = "Receipts"
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = "memory"
	}
	if cfg.State.TTL <= 0 {
		cfg.State.TTL = 24 * time.Hour
	}
	if cfg.Ops.Port == 0 {
		cfg.Ops.Port = 8081
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if len(cfg.Bot.AdminIDs) == 0 {
		return nil, errors.New("bot.admin_ids is required")
	}
	if cfg.Sheets.SpreadsheetID == "" {
		return nil, errors.New("sheets.spreadsheet_id is required")
	}
	if cfg.State.Backend != "memory" && cfg.State.Backend != "redis" {
		return nil, fmt.Errorf("state.backend must be memory or redis, got %q", cfg.State.Backend)
	}
	if cfg.State.Backend == "redis" && cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is required when state.backend=redis")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
