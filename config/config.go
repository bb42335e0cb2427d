package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ftahirops/sensetop/engine"
)

// Config holds user-configurable defaults and integrations.
type Config struct {
	APIURL          string `json:"api_url"`
	Token           string `json:"token,omitempty"`
	IntervalSec     int    `json:"interval_sec"`
	AlertDurationMs int    `json:"alert_duration_ms"`
	FetchTimeoutSec int    `json:"fetch_timeout_sec"`
	HistorySize     int    `json:"history_size"`
	NotificationCap int    `json:"notification_cap"`
	DataDir         string `json:"data_dir,omitempty"`
	ExportDir       string `json:"export_dir,omitempty"`
	Bell            bool   `json:"bell"`

	Log    LogConfig    `json:"log"`
	Redis  RedisConfig  `json:"redis"`
	MQTT   MQTTConfig   `json:"mqtt"`
	Server ServerConfig `json:"server"`
	Alerts AlertConfig  `json:"alerts"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// RedisConfig enables the latest-reading cache when Addr is set.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

type MQTTConfig struct {
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// ServerConfig sets the HTTP address -daemon serves on when -serve is not
// given. Empty disables the server.
type ServerConfig struct {
	Addr string `json:"addr"`
}

type AlertConfig struct {
	Webhook string `json:"webhook"`
	Command string `json:"command"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		APIURL:          "http://localhost:3000",
		IntervalSec:     engine.RefreshIntervals[0],
		AlertDurationMs: int(engine.DefaultAlertDuration / time.Millisecond),
		FetchTimeoutSec: 10,
		HistorySize:     engine.DefaultHistoryCap,
		NotificationCap: engine.DefaultNotificationCap,
		Bell:            true,
		Log:             LogConfig{Level: "info", Format: "json"},
		MQTT:            MQTTConfig{Topic: "sensors/+/reading"},
	}
}

// Path returns ~/.config/sensetop/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // refuse to fall back to /tmp (security risk)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "sensetop", "config.json")
}

// DefaultDataDir returns ~/.sensetop.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".sensetop")
}

// Load reads the config file, then .env, then the environment. A missing
// file yields defaults; a malformed one yields defaults plus the error.
func Load() (Config, error) {
	cfg, err := LoadFile(Path())
	_ = godotenv.Load() // .env is optional
	ApplyEnv(&cfg)
	return cfg, err
}

// LoadFile reads one JSON config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config parse error: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with environment variables that are set.
func ApplyEnv(cfg *Config) {
	cfg.APIURL = getEnv("SENSETOP_API_URL", cfg.APIURL)
	cfg.Token = getEnv("SENSETOP_TOKEN", cfg.Token)
	cfg.IntervalSec = getEnvInt("SENSETOP_INTERVAL", cfg.IntervalSec)
	cfg.AlertDurationMs = getEnvInt("SENSETOP_ALERT_DURATION_MS", cfg.AlertDurationMs)
	cfg.DataDir = getEnv("SENSETOP_DATA_DIR", cfg.DataDir)
	cfg.Bell = getEnvBool("SENSETOP_BELL", cfg.Bell)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.Server.Addr = getEnv("SENSETOP_SERVE_ADDR", cfg.Server.Addr)
	cfg.Alerts.Webhook = getEnv("SENSETOP_WEBHOOK", cfg.Alerts.Webhook)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// Validate checks values the engine would reject.
func (c Config) Validate() error {
	if !engine.ValidInterval(c.IntervalSec) {
		return fmt.Errorf("interval_sec: %w: %d (want one of %v)", engine.ErrInvalidInterval, c.IntervalSec, engine.RefreshIntervals)
	}
	if c.APIURL == "" {
		return errors.New("api_url is empty")
	}
	if c.AlertDurationMs < 0 {
		return fmt.Errorf("alert_duration_ms must not be negative: %d", c.AlertDurationMs)
	}
	return nil
}

// AlertDuration returns AlertDurationMs as a duration.
func (c Config) AlertDuration() time.Duration {
	return time.Duration(c.AlertDurationMs) * time.Millisecond
}

// FetchTimeout returns FetchTimeoutSec as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
