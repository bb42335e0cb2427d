package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ftahirops/sensetop/cache"
	"github.com/ftahirops/sensetop/collector"
	"github.com/ftahirops/sensetop/config"
	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/export"
	"github.com/ftahirops/sensetop/model"
	"github.com/ftahirops/sensetop/server"
	"github.com/ftahirops/sensetop/ui"
)

// app is the wired engine plus everything hanging off it.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	eng     *engine.Engine
	metrics *engine.MetricsStore
	closers []func()
}

func (a *app) close() {
	a.eng.Stop()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds the source chain and the engine. The engine is not started.
func newApp(ctx context.Context, opts Options, cfg config.Config, log *zap.Logger, stdout io.Writer) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: engine.NewMetricsStore()}

	src, err := a.buildSource(ctx, opts)
	if err != nil {
		a.runClosers()
		return nil, err
	}

	var tone engine.Tone = engine.NopTone{}
	if cfg.Bell && (opts.tui() || opts.Watch) {
		tone = &engine.BellTone{W: stdout}
	}

	var notifier *engine.Notifier
	if cfg.Alerts.Webhook != "" || cfg.Alerts.Command != "" {
		notifier = engine.NewNotifier(engine.NotifierConfig{
			Webhook: cfg.Alerts.Webhook,
			Command: cfg.Alerts.Command,
		}, log)
		a.closers = append(a.closers, notifier.Wait)
	}

	eng, err := engine.New(engine.Options{
		Sensors:         collector.DefaultSensors(),
		Fetch:           src.Fetch,
		IntervalSeconds: cfg.IntervalSec,
		AlertDuration:   cfg.AlertDuration(),
		FetchTimeout:    cfg.FetchTimeout(),
		HistorySize:     cfg.HistorySize,
		NotificationCap: cfg.NotificationCap,
		Logger:          log,
		Tone:            tone,
		Notifier:        notifier,
	})
	if err != nil {
		a.runClosers()
		return nil, err
	}
	a.eng = eng

	if cfg.Redis.Addr != "" {
		a.attachCache(ctx)
	}
	return a, nil
}

func (a *app) runClosers() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildSource picks replay, MQTT or the HTTP backend and wraps it with the
// recorder when asked.
func (a *app) buildSource(ctx context.Context, opts Options) (collector.Source, error) {
	var src collector.Source
	switch {
	case opts.ReplayPath != "":
		f, err := os.Open(opts.ReplayPath)
		if err != nil {
			return nil, fmt.Errorf("cannot open replay file: %w", err)
		}
		defer f.Close()
		player, err := collector.NewPlayer(f)
		if err != nil {
			return nil, fmt.Errorf("cannot parse replay file: %w", err)
		}
		a.log.Info("replaying recording", zap.String("path", opts.ReplayPath), zap.Int("frames", player.Len()))
		src = player
	case opts.MQTT:
		if a.cfg.MQTT.Broker == "" {
			return nil, errors.New("-mqtt needs MQTT_BROKER or mqtt.broker in the config file")
		}
		m := collector.NewMQTTSource(collector.MQTTConfig{
			Broker:   a.cfg.MQTT.Broker,
			ClientID: a.cfg.MQTT.ClientID,
			Username: a.cfg.MQTT.Username,
			Password: a.cfg.MQTT.Password,
			Topic:    a.cfg.MQTT.Topic,
		}, a.log)
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := m.Connect(cctx); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, m.Close)
		src = collector.NewRegistry(a.log, m)
	default:
		src = collector.NewAPISource(collector.APIConfig{
			BaseURL:    a.cfg.APIURL,
			Token:      a.cfg.Token,
			Timeout:    a.cfg.FetchTimeout(),
			RetryCount: 1,
		}, a.log)
	}

	if opts.RecordPath != "" {
		f, err := os.Create(opts.RecordPath)
		if err != nil {
			return nil, fmt.Errorf("cannot create record file: %w", err)
		}
		a.closers = append(a.closers, func() { _ = f.Close() })
		src = collector.NewRecorder(src, f, a.log)
	}
	return src, nil
}

// attachCache mirrors every view into Redis. A Redis that is down at
// startup only costs a warning.
func (a *app) attachCache(ctx context.Context) {
	dctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	kv, err := cache.Dial(dctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		a.log.Warn("redis unavailable, cache disabled", zap.String("addr", a.cfg.Redis.Addr), zap.Error(err))
		return
	}
	pub := cache.NewPublisher(kv, a.log)
	pctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pub.Run(pctx)
		close(done)
	}()
	unsub := a.eng.Subscribe(pub.Update)
	a.closers = append(a.closers, func() {
		unsub()
		stop()
		<-done
		_ = kv.Close()
	})
	a.log.Info("publishing latest readings to redis", zap.String("addr", a.cfg.Redis.Addr))
}

// server builds the HTTP server and forwards engine events to its hub.
// The caller keeps a.metrics current.
func (a *app) server() *server.Server {
	srv := server.New(a.eng, a.metrics.Handler(), a.log)
	a.eng.Subscribe(srv.PushView)
	a.eng.OnAlert(srv.PushAlert)
	return srv
}

func (a *app) runServe(ctx context.Context, addr string) error {
	srv := a.server()
	a.eng.Subscribe(a.metrics.Update)
	if err := a.eng.Start(ctx); err != nil {
		return err
	}
	return srv.Run(ctx, addr)
}

func (a *app) runDaemon(ctx context.Context, opts Options) error {
	daemonCfg := engine.DaemonConfig{DataDir: opts.DataDir, Metrics: a.metrics, Logger: a.log}
	if opts.ServeAddr == "" {
		return engine.RunDaemon(ctx, a.eng, daemonCfg)
	}
	srv := a.server()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.RunDaemon(gctx, a.eng, daemonCfg) })
	g.Go(func() error { return srv.Run(gctx, opts.ServeAddr) })
	return g.Wait()
}

func (a *app) runTUI(ctx context.Context) error {
	alertLog := engine.NewAlertLogWriter(filepath.Join(a.cfg.DataDir, "alerts.jsonl"))
	if events, err := engine.ReadAlertLog(alertLog.Path()); err != nil {
		a.log.Warn("read alert log", zap.Error(err))
	} else {
		for _, n := range engine.AlertNotifications(events) {
			a.eng.PushNotification(n)
		}
	}
	a.eng.OnAlert(func(ev model.AlertEvent) {
		if err := alertLog.Write(ev); err != nil {
			a.log.Warn("write alert log", zap.Error(err))
		}
	})

	if err := a.eng.Start(ctx); err != nil {
		return err
	}
	exp := export.New(export.Config{
		BaseURL: a.cfg.APIURL,
		Token:   a.cfg.Token,
		Dir:     a.cfg.ExportDir,
	}, a.log)
	p := tea.NewProgram(ui.NewModel(a.eng, exp), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func runExport(ctx context.Context, opts Options, cfg config.Config, log *zap.Logger, stdout io.Writer) error {
	kind, err := export.ParseKind(opts.ExportKind)
	if err != nil {
		return err
	}
	exp := export.New(export.Config{BaseURL: cfg.APIURL, Token: cfg.Token, Dir: cfg.ExportDir}, log)
	path, err := exp.Export(ctx, kind)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}
