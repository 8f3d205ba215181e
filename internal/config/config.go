package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Garmin GarminConfig `yaml:"garmin"`
	Sync   SyncConfig   `yaml:"sync"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// GarminConfig holds credentials for the external service. Both fields may be
// empty, in which case syncs only work while a stored session remains valid.
type GarminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SyncConfig controls the sync engine. An Interval of 0 disables automatic
// syncs; manual triggers still work.
type SyncConfig struct {
	Interval      time.Duration `yaml:"interval"`
	ActivityLimit int           `yaml:"activity_limit"`
	DayWindow     int           `yaml:"day_window"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "healthsync.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Sync: SyncConfig{
			Interval:      0,
			ActivityLimit: 50,
			DayWindow:     30,
		},
	}

	if path := os.Getenv("HEALTHSYNC_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("HEALTHSYNC_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("HEALTHSYNC_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEALTHSYNC_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("HEALTHSYNC_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("HEALTHSYNC_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if username := os.Getenv("GARMIN_USERNAME"); username != "" {
		cfg.Garmin.Username = username
	}
	if password := os.Getenv("GARMIN_PASSWORD"); password != "" {
		cfg.Garmin.Password = password
	}
	if intervalStr := os.Getenv("HEALTHSYNC_SYNC_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEALTHSYNC_SYNC_INTERVAL: %w", err)
		}
		cfg.Sync.Interval = interval
	}
	if limitStr := os.Getenv("HEALTHSYNC_ACTIVITY_LIMIT"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEALTHSYNC_ACTIVITY_LIMIT: %w", err)
		}
		cfg.Sync.ActivityLimit = limit
	}
	if windowStr := os.Getenv("HEALTHSYNC_DAY_WINDOW"); windowStr != "" {
		window, err := strconv.Atoi(windowStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEALTHSYNC_DAY_WINDOW: %w", err)
		}
		cfg.Sync.DayWindow = window
	}

	if cfg.Sync.Interval < 0 {
		return Config{}, fmt.Errorf("sync interval must not be negative")
	}
	if cfg.Sync.ActivityLimit <= 0 {
		cfg.Sync.ActivityLimit = 50
	}
	if cfg.Sync.DayWindow <= 0 {
		cfg.Sync.DayWindow = 30
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
