package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of operational knobs mutgosd reads at
// startup. Field coverage matches spec.md §6.3 exactly for the db.*
// knobs, plus the ambient knobs every teacher binary exposes (log,
// metrics bind address, Update Manager flush interval).
type Config struct {
	Log           LogConfig           `yaml:"log"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	DB            DBConfig            `yaml:"db"`
	UpdateManager UpdateManagerConfig `yaml:"updateManager"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type MetricsConfig struct {
	BindAddr string `yaml:"bindAddr"`
}

// DBConfig covers spec.md §6.3's operational knobs verbatim:
// db.db_file, db.limits.entity_name, db.limits.player_puppet_name,
// db.limits.string_size.
type DBConfig struct {
	DbFile string   `yaml:"dbFile"`
	Limits DBLimits `yaml:"limits"`
}

type DBLimits struct {
	EntityName       int `yaml:"entityName"`
	PlayerPuppetName int `yaml:"playerPuppetName"`
	StringSize       int `yaml:"stringSize"`
}

type UpdateManagerConfig struct {
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// Default returns the baseline configuration used when no file is
// supplied and as the fallback for any zero-valued field a supplied
// file leaves unset.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", JSON: true},
		Metrics: MetricsConfig{BindAddr: "127.0.0.1:9090"},
		DB: DBConfig{
			DbFile: "mutgos.db",
			Limits: DBLimits{
				EntityName:       255,
				PlayerPuppetName: 32,
				StringSize:       64 * 1024,
			},
		},
		UpdateManager: UpdateManagerConfig{FlushInterval: 5 * time.Second},
	}
}

// Load reads and parses path, filling any field the file leaves at its
// zero value from Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return cfg, cfg.Validate()
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Metrics.BindAddr == "" {
		cfg.Metrics.BindAddr = def.Metrics.BindAddr
	}
	if cfg.DB.DbFile == "" {
		cfg.DB.DbFile = def.DB.DbFile
	}
	if cfg.DB.Limits.EntityName == 0 {
		cfg.DB.Limits.EntityName = def.DB.Limits.EntityName
	}
	if cfg.DB.Limits.PlayerPuppetName == 0 {
		cfg.DB.Limits.PlayerPuppetName = def.DB.Limits.PlayerPuppetName
	}
	if cfg.DB.Limits.StringSize == 0 {
		cfg.DB.Limits.StringSize = def.DB.Limits.StringSize
	}
	if cfg.UpdateManager.FlushInterval == 0 {
		cfg.UpdateManager.FlushInterval = def.UpdateManager.FlushInterval
	}
}

// Validate reports a config that cannot be used to start mutgosd.
func (c Config) Validate() error {
	if c.DB.DbFile == "" {
		return fmt.Errorf("config: db.dbFile is required")
	}
	if c.DB.Limits.EntityName <= 0 {
		return fmt.Errorf("config: db.limits.entityName must be positive")
	}
	if c.DB.Limits.PlayerPuppetName <= 0 {
		return fmt.Errorf("config: db.limits.playerPuppetName must be positive")
	}
	if c.DB.Limits.StringSize <= 0 {
		return fmt.Errorf("config: db.limits.stringSize must be positive")
	}
	if c.UpdateManager.FlushInterval <= 0 {
		return fmt.Errorf("config: updateManager.flushInterval must be positive")
	}
	return nil
}
