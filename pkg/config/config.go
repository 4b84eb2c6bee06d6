package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Table   TableConfig   `yaml:"table"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`     // HTTP Listen Address (e.g. :8080)
	TCPAddr string `yaml:"tcp_addr"` // TCP Listen Address (e.g. :9090)
}

type StorageConfig struct {
	DSN           string `yaml:"dsn"` // SQLite file path, file: URI or :memory:
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
}

// TableConfig holds the construction switches of a container.
type TableConfig struct {
	Name                string `yaml:"name"` // empty: auto-generated, dropped on start
	DropExistingOnStart bool   `yaml:"drop_existing_on_start"`
	DebugMirrorColumns  bool   `yaml:"debug_mirror_columns"`
	CacheSize           bool   `yaml:"cache_size"`
	AccessCacheSize     int    `yaml:"access_cache_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			TCPAddr: ":9090",
		},
		Storage: StorageConfig{
			DSN:           "dbc_data/dbc.db",
			BusyTimeoutMs: 5000,
		},
		Table: TableConfig{
			Name:            "DBC_KV",
			CacheSize:       true,
			AccessCacheSize: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}

	if configPath == "" {
		for _, p := range []string{"configs/dbc.yaml", "dbc.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "dbc_data/dbc.db"
	}
	if cfg.Storage.BusyTimeoutMs <= 0 {
		cfg.Storage.BusyTimeoutMs = 5000
	}
	if cfg.Table.AccessCacheSize <= 0 {
		cfg.Table.AccessCacheSize = 64
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
