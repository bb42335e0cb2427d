package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/config"
	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/logger"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// Options holds the parsed command line.
type Options struct {
	IntervalSec int
	Watch       bool
	Count       int
	JSON        bool
	Daemon      bool
	DataDir     string
	ServeAddr   string
	ExportKind  string
	RecordPath  string
	ReplayPath  string
	MQTT        bool
	ShowVersion bool
}

// tui reports whether no headless mode was selected.
func (o Options) tui() bool {
	return !o.Watch && !o.JSON && !o.Daemon && o.ServeAddr == "" && o.ExportKind == ""
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `sensetop v%s - environmental and power monitoring console

Usage:
  sensetop [OPTIONS] [INTERVAL]

Modes:
  (default)         Interactive TUI (bubbletea, fullscreen)
  -watch            Plain terminal output with auto-refresh
  -json             Fetch once, print the view as JSON, then exit
  -daemon           Headless loop, writes alerts to <datadir>/alerts.jsonl
  -serve ADDR       HTTP API, /metrics and /ws on ADDR
                    (-daemon falls back to server.addr / SENSETOP_SERVE_ADDR)
  -export KIND      Download sensor, fire-smoke or electricity data to xlsx
  -version          Print version and exit

Options:
  -interval N       Refresh interval in seconds: 10, 30, 60 or 300 (default: 10)
  -count N          Number of updates for -watch (0 = infinite)
  -datadir PATH     Data directory (default: ~/.sensetop/)
  -record FILE      Record every fetch to FILE (JSON lines)
  -replay FILE      Replay a recording instead of polling the backend
  -mqtt             Read pushed readings from the MQTT broker

Positional:
  INTERVAL          sensetop 30 = sensetop -interval 30

Environment:
  SENSETOP_API_URL, SENSETOP_TOKEN, SENSETOP_INTERVAL, SENSETOP_DATA_DIR,
  SENSETOP_SERVE_ADDR, REDIS_ADDR, MQTT_BROKER, SENSETOP_WEBHOOK,
  LOG_LEVEL, LOG_FORMAT

Examples:
  sensetop                          Interactive TUI, 10s refresh
  sensetop 60                       Interactive TUI, 1m refresh
  sensetop -watch -count 5          Five updates then exit
  sensetop -json | jq '.sensors[].status'
  sensetop -daemon -serve :8080     Headless with HTTP API
  sensetop -export electricity
  sensetop -record /tmp/site.jsonl
  sensetop -replay /tmp/site.jsonl
`, Version)
}

// parseArgs parses args over the defaults in cfg.
func parseArgs(args []string, cfg config.Config, stderr io.Writer) (Options, error) {
	var opts Options
	fs := flag.NewFlagSet("sensetop", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	fs.IntVar(&opts.IntervalSec, "interval", cfg.IntervalSec, "Refresh interval in seconds")
	fs.BoolVar(&opts.Watch, "watch", false, "Plain terminal output mode")
	fs.IntVar(&opts.Count, "count", 0, "Number of updates for -watch (0=infinite)")
	fs.BoolVar(&opts.JSON, "json", false, "Print one view as JSON and exit")
	fs.BoolVar(&opts.Daemon, "daemon", false, "Run headless")
	fs.StringVar(&opts.DataDir, "datadir", cfg.DataDir, "Data directory")
	fs.StringVar(&opts.ServeAddr, "serve", "", "Serve the HTTP API on ADDR")
	fs.StringVar(&opts.ExportKind, "export", "", "Export KIND to xlsx and exit")
	fs.StringVar(&opts.RecordPath, "record", "", "Record fetches to FILE")
	fs.StringVar(&opts.ReplayPath, "replay", "", "Replay fetches from FILE")
	fs.BoolVar(&opts.MQTT, "mqtt", false, "Use the MQTT source")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	// Support positional arg for interval: `sensetop 30` = `sensetop -interval 30`
	if rest := fs.Args(); len(rest) > 0 {
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return opts, fmt.Errorf("unexpected argument %q", rest[0])
		}
		opts.IntervalSec = n
	}
	if !engine.ValidInterval(opts.IntervalSec) {
		return opts, fmt.Errorf("%w: %d (want one of %v)", engine.ErrInvalidInterval, opts.IntervalSec, engine.RefreshIntervals)
	}

	modes := 0
	for _, on := range []bool{opts.Watch, opts.JSON, opts.Daemon, opts.ExportKind != ""} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return opts, errors.New("-watch, -json, -daemon and -export are mutually exclusive")
	}
	if opts.RecordPath != "" && opts.ReplayPath != "" {
		return opts, errors.New("-record and -replay cannot be combined")
	}
	if opts.ReplayPath != "" && opts.MQTT {
		return opts, errors.New("-replay and -mqtt cannot be combined")
	}
	if opts.Daemon && opts.ServeAddr == "" {
		opts.ServeAddr = cfg.Server.Addr
	}
	if opts.Count < 0 {
		return opts, fmt.Errorf("-count must not be negative: %d", opts.Count)
	}
	if opts.DataDir == "" {
		opts.DataDir = config.DefaultDataDir()
	}
	return opts, nil
}

// Run parses flags and starts the application.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", cfgErr)
	}

	opts, err := parseArgs(args, cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.ShowVersion {
		fmt.Fprintf(stdout, "sensetop v%s\n", Version)
		return nil
	}

	cfg.IntervalSec = opts.IntervalSec
	cfg.DataDir = opts.DataDir
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(opts, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if opts.ExportKind != "" {
		return runExport(ctx, opts, cfg, log, stdout)
	}

	app, err := newApp(ctx, opts, cfg, log, stdout)
	if err != nil {
		return err
	}
	defer app.close()

	switch {
	case opts.JSON:
		return runJSON(ctx, app.eng, stdout)
	case opts.Watch:
		return runWatch(ctx, app.eng, opts, stdout)
	case opts.Daemon:
		return app.runDaemon(ctx, opts)
	case opts.ServeAddr != "":
		return app.runServe(ctx, opts.ServeAddr)
	default:
		return app.runTUI(ctx)
	}
}

// newLogger logs to a file in TUI mode so output does not corrupt the
// screen, and to stderr otherwise.
func newLogger(opts Options, cfg config.Config) (*zap.Logger, error) {
	if !opts.tui() {
		return logger.New(cfg.Log.Level, cfg.Log.Format, "sensetop")
	}
	if err := os.MkdirAll(opts.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return logger.NewFile(filepath.Join(opts.DataDir, "sensetop.log"), cfg.Log.Level, cfg.Log.Format, "sensetop")
}
