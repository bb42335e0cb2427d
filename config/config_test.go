package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/sensetop/engine"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.IntervalSec)
	assert.Equal(t, engine.DefaultAlertDuration, cfg.AlertDuration())
}

func TestValidateInterval(t *testing.T) {
	for _, sec := range []int{10, 30, 60, 300} {
		cfg := Default()
		cfg.IntervalSec = sec
		assert.NoError(t, cfg.Validate(), "interval %d", sec)
	}
	for _, sec := range []int{0, 1, 20, 600} {
		cfg := Default()
		cfg.IntervalSec = sec
		assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidInterval, "interval %d", sec)
	}
}

func TestValidateRejectsEmptyURL(t *testing.T) {
	cfg := Default()
	cfg.APIURL = ""
	assert.Error(t, cfg.Validate())
}

func TestPathUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "sensetop", "config.json"), Path())
}

func TestLoadFileRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := Default()
	cfg.APIURL = "https://dev-suhu.example.org"
	cfg.IntervalSec = 60
	cfg.Redis.Addr = "localhost:6379"
	cfg.Server.Addr = "127.0.0.1:8080"
	data, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(Path()), 0700))
	require.NoError(t, os.WriteFile(Path(), data, 0600))

	got, err := LoadFile(Path())
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadFileMissingGivesDefaults(t *testing.T) {
	got, err := LoadFile(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0600))
	got, err := LoadFile(path)
	assert.Error(t, err)
	assert.Equal(t, Default(), got)
}

func TestLoadFilePartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"interval_sec": 30}`), 0600))
	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 30, got.IntervalSec)
	assert.Equal(t, Default().APIURL, got.APIURL)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SENSETOP_API_URL", "http://backend:9000")
	t.Setenv("SENSETOP_TOKEN", "tok")
	t.Setenv("SENSETOP_INTERVAL", "300")
	t.Setenv("SENSETOP_ALERT_DURATION_MS", "2500")
	t.Setenv("SENSETOP_BELL", "false")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("MQTT_BROKER", "tcp://mqtt:1883")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SENSETOP_SERVE_ADDR", ":9090")

	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, "http://backend:9000", cfg.APIURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 300, cfg.IntervalSec)
	assert.Equal(t, 2500, cfg.AlertDurationMs)
	assert.False(t, cfg.Bell)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "tcp://mqtt:1883", cfg.MQTT.Broker)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestApplyEnvBadNumberKeepsValue(t *testing.T) {
	t.Setenv("SENSETOP_INTERVAL", "often")
	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, 10, cfg.IntervalSec)
}
