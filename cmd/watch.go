package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/model"
)

// ── ANSI color/style codes ──────────────────────────────────────────────────

const (
	R = "\033[0m" // reset
	B = "\033[1m" // bold
	D = "\033[2m" // dim

	FCyn  = "\033[36m"
	FBRed = "\033[91m"
	FBGrn = "\033[92m"
	FBYel = "\033[93m"
	FBWht = "\033[97m"

	BRed = "\033[41m"
	BBlu = "\033[44m"
)

const clearScreen = "\033[2J\033[H"

// firstResultTimeout bounds how long -json waits for the initial fetch.
const firstResultTimeout = 30 * time.Second

func statusColor(s model.StatusLevel) string {
	switch s {
	case model.StatusNormal:
		return FBGrn
	case model.StatusWarning:
		return FBYel
	case model.StatusCritical:
		return B + FBRed
	default:
		return D
	}
}

func statusBadge(s model.StatusLevel) string {
	return fmt.Sprintf("%s%-8s%s", statusColor(s), strings.ToUpper(s.String()), R)
}

func hr() string {
	return D + strings.Repeat("─", 72) + R
}

func fmtReading(sv model.SensorView) string {
	if !sv.HasReading {
		return "--"
	}
	if sv.Sensor.Unit == "" {
		return fmt.Sprintf("%.2f", sv.Reading.Value)
	}
	return fmt.Sprintf("%.1f %s", sv.Reading.Value, sv.Sensor.Unit)
}

// renderWatch writes one frame of the plain terminal view.
func renderWatch(w io.Writer, v model.View, iteration, count int) {
	ts := "--:--:--"
	if !v.LastUpdate.IsZero() {
		ts = v.LastUpdate.Local().Format("15:04:05")
	}
	iter := fmt.Sprintf("#%d", iteration)
	if count > 0 {
		iter = fmt.Sprintf("#%d/%d", iteration, count)
	}
	fmt.Fprintf(w, " %s%s sensetop v%s %s  %s  %severy %ds%s  %s\n",
		B, BBlu+FBWht, Version, R,
		B+ts+R,
		D, v.IntervalSeconds, R,
		D+iter+R)
	fmt.Fprintln(w, hr())

	if v.Alert != nil && v.Alert.Active {
		fmt.Fprintf(w, " %s%s ALERT %s %s%s%s\n", B, BRed+FBWht, R, FBRed, v.Alert.Message, R)
		fmt.Fprintln(w, hr())
	}

	for _, sv := range v.Sensors {
		dot := FBGrn + "●" + R
		if !sv.Online {
			dot = D + "○" + R
		}
		fmt.Fprintf(w, " %s %-24s %14s  %s\n", dot, sv.Sensor.Label, fmtReading(sv), statusBadge(sv.Status))
	}

	fmt.Fprintln(w, hr())
	counts := v.Counts()
	fmt.Fprintf(w, " %sworst%s %s  %snormal%s %d  %swarning%s %d  %scritical%s %d  %soffline%s %d\n",
		D, R, statusBadge(v.Worst()),
		D, R, counts[model.StatusNormal],
		D, R, counts[model.StatusWarning],
		D, R, counts[model.StatusCritical],
		D, R, counts[model.StatusOffline])
	if v.LastError != "" {
		fmt.Fprintf(w, " %sfetch failed:%s %s\n", FBYel, R, v.LastError)
	}
}

// viewFeed subscribes to eng and delivers views whose fetch outcome changed.
// Older pending views are replaced by newer ones.
func viewFeed(eng *engine.Engine) (<-chan model.View, func()) {
	ch := make(chan model.View, 1)
	var (
		mu         sync.Mutex
		lastUpdate time.Time
		lastErrs   int
		first      = true
	)
	unsub := eng.Subscribe(func(v model.View) {
		mu.Lock()
		defer mu.Unlock()
		if !first && v.LastUpdate.Equal(lastUpdate) && v.FetchErrors == lastErrs {
			return
		}
		if v.LastUpdate.IsZero() && v.FetchErrors == 0 {
			return
		}
		first = false
		lastUpdate, lastErrs = v.LastUpdate, v.FetchErrors
		for {
			select {
			case ch <- v:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})
	return ch, unsub
}

func runWatch(ctx context.Context, eng *engine.Engine, opts Options, w io.Writer) error {
	feed, unsub := viewFeed(eng)
	defer unsub()
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	iteration := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(w, "\n%sStopped.%s\n", D, R)
			return nil
		case v := <-feed:
			iteration++
			fmt.Fprint(w, clearScreen)
			renderWatch(w, v, iteration, opts.Count)
			fmt.Fprintf(w, "\n %sCtrl+C%s to quit", B, R)
			if opts.Count > 0 {
				fmt.Fprintf(w, "  %s(%d/%d)%s", D, iteration, opts.Count, R)
			}
			fmt.Fprintln(w)
			if opts.Count > 0 && iteration >= opts.Count {
				return nil
			}
		}
	}
}

// runJSON waits for the first fetch outcome and prints the view.
func runJSON(ctx context.Context, eng *engine.Engine, w io.Writer) error {
	feed, unsub := viewFeed(eng)
	defer unsub()
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	timeout := time.NewTimer(firstResultTimeout)
	defer timeout.Stop()

	var v model.View
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return errors.New("timed out waiting for the first fetch")
	case v = <-feed:
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if v.LastError != "" && v.LastUpdate.IsZero() {
		return fmt.Errorf("fetch failed: %s", v.LastError)
	}
	return nil
}
