package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/model"
)

// summaryRotateBytes is the size at which current.jsonl is rotated.
const summaryRotateBytes = 10 * 1024 * 1024

// DaemonConfig holds daemon-specific configuration.
type DaemonConfig struct {
	DataDir string
	Metrics *MetricsStore
	Logger  *zap.Logger
}

// compactSummary is a minimal per-fetch record for the rolling log.
type compactSummary struct {
	Timestamp time.Time          `json:"ts"`
	Worst     string             `json:"worst"`
	Online    int                `json:"online"`
	Offline   int                `json:"offline"`
	Alert     string             `json:"alert,omitempty"`
	Values    map[string]float64 `json:"values"`
}

// RunDaemon runs the engine headless until ctx is done or SIGINT/SIGTERM
// arrives. Alert activations and closes go to <DataDir>/alerts.jsonl and a
// compact line per applied fetch goes to <DataDir>/current.jsonl.
func RunDaemon(ctx context.Context, eng *Engine, cfg DaemonConfig) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath := filepath.Join(cfg.DataDir, "daemon.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	alerts := NewAlertLogWriter(filepath.Join(cfg.DataDir, "alerts.jsonl"))
	summaryPath := filepath.Join(cfg.DataDir, "current.jsonl")

	eng.OnAlert(func(ev model.AlertEvent) {
		if err := alerts.Write(ev); err != nil {
			log.Error("write alert log", zap.Error(err))
			return
		}
		if ev.Active {
			log.Warn("ALERT", zap.String("id", ev.ID), zap.String("message", ev.Message))
		} else {
			log.Info("alert closed", zap.String("id", ev.ID), zap.String("reason", string(ev.Reason)))
		}
	})
	eng.OnTransition(func(t Transition) {
		log.Info("liveness transition", zap.String("sensor", t.SensorID), zap.Bool("online", t.Online))
	})

	var (
		summaryMu   sync.Mutex
		lastWritten time.Time
	)
	unsubscribe := eng.Subscribe(func(v model.View) {
		if cfg.Metrics != nil {
			cfg.Metrics.Update(v)
		}
		summaryMu.Lock()
		defer summaryMu.Unlock()
		if v.LastUpdate.IsZero() || v.LastUpdate.Equal(lastWritten) {
			return
		}
		lastWritten = v.LastUpdate
		if err := writeSummaryLine(summaryPath, summarize(v)); err != nil {
			log.Warn("write summary", zap.Error(err))
		}
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	log.Info("sensetop daemon started",
		zap.Int("pid", os.Getpid()),
		zap.Int("interval_sec", eng.Interval()),
		zap.String("datadir", cfg.DataDir),
	)
	<-ctx.Done()
	log.Info("sensetop daemon shutting down")
	return nil
}

func summarize(v model.View) compactSummary {
	s := compactSummary{
		Timestamp: v.LastUpdate,
		Worst:     v.Worst().String(),
		Values:    make(map[string]float64, len(v.Sensors)),
	}
	for _, sv := range v.Sensors {
		if sv.Online {
			s.Online++
		} else {
			s.Offline++
		}
		if sv.HasReading {
			s.Values[sv.Sensor.ID] = sv.Reading.Value
		}
	}
	if v.Alert != nil {
		s.Alert = v.Alert.Message
	}
	return s
}

// writeSummaryLine appends a compact JSON line to the summary file.
// Rotates at summaryRotateBytes.
func writeSummaryLine(path string, s compactSummary) error {
	if info, err := os.Stat(path); err == nil && info.Size() > summaryRotateBytes {
		_ = os.Rename(path, path+".old")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(s)
}
