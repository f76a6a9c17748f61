package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Discord struct {
		Token string `yaml:"token"`
		AppID string `yaml:"app_id"`
		// GuildID registers commands on one guild instead of globally.
		GuildID string `yaml:"guild_id"`
	} `yaml:"discord"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Content struct {
		// Dataset is a JSON dataset served from memory when Postgres is not configured.
		Dataset  string `yaml:"dataset"`
		CacheTTL string `yaml:"cache_ttl"`
		FontDir  string `yaml:"font_dir"`
	} `yaml:"content"`
	Quiz struct {
		NoneProbability float64 `yaml:"none_probability"`
		QueuePenalty    int     `yaml:"queue_penalty"`
		SweepInterval   string  `yaml:"sweep_interval"`
		QueueMaxAge     string  `yaml:"queue_max_age"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path, then applies .env and environment
// overrides. A missing file is not an error when the environment carries
// the settings.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("config file not found, using environment", "path", path)
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Discord.Token, "DISCORD_TOKEN")
	override(&cfg.Discord.AppID, "DISCORD_APP_ID")
	override(&cfg.Discord.GuildID, "DISCORD_GUILD_ID")
	override(&cfg.Postgres.URL, "DATABASE_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Log.Level, "LOG_LEVEL")
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// LogLevel maps the configured level name, defaulting to info.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
