// Package export downloads backend history and writes it as a spreadsheet.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrUnknownExportKind is returned for a kind outside Kinds.
var ErrUnknownExportKind = errors.New("unknown export kind")

// Kind selects a backend export endpoint.
type Kind string

const (
	KindSensor      Kind = "sensor"
	KindFireSmoke   Kind = "fire-smoke"
	KindElectricity Kind = "electricity"
)

// Kinds lists the exports in menu order.
var Kinds = []Kind{KindSensor, KindFireSmoke, KindElectricity}

// ParseKind validates s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == strings.TrimSpace(s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExportKind, s)
}

// FileName is the workbook name written for k.
func (k Kind) FileName() string { return string(k) + "-data.xlsx" }

const sheetName = "Data"

// leadingColumns are placed before the alphabetical remainder.
var leadingColumns = []string{"id", "timestamp", "created_at", "updated_at"}

// Config configures an Exporter.
type Config struct {
	BaseURL string
	Token   string
	Dir     string
	Timeout time.Duration
}

// Exporter fetches /export/{kind} and stores the rows as xlsx.
type Exporter struct {
	client *resty.Client
	dir    string
	log    *zap.Logger
}

// New creates an exporter writing into cfg.Dir ("." when empty).
func New(cfg Config, log *zap.Logger) *Exporter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &Exporter{client: client, dir: cfg.Dir, log: log}
}

// Export downloads kind and writes it. Returns the written path.
func (e *Exporter) Export(ctx context.Context, kind Kind) (string, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return "", err
	}
	rows, err := e.Fetch(ctx, kind)
	if err != nil {
		return "", err
	}
	data, err := Workbook(rows)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.dir, kind.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	e.log.Info("export written",
		zap.String("kind", string(kind)),
		zap.Int("rows", len(rows)),
		zap.String("path", path))
	return path, nil
}

// Fetch downloads the raw rows for kind.
func (e *Exporter) Fetch(ctx context.Context, kind Kind) ([]map[string]any, error) {
	path := "/export/" + string(kind)
	resp, err := e.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode())
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rows, nil
}

// Columns returns the header order for rows.
func Columns(rows []map[string]any) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for _, k := range leadingColumns {
		if seen[k] {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// Workbook renders rows into an xlsx file with a single "Data" sheet.
func Workbook(rows []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(sheetName); err == nil {
		f.SetActiveSheet(index)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	cols := Columns(rows)
	for i, name := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %s: %w", cell, err)
		}
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, colName, colName, columnWidth(name)); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for r, row := range rows {
		for c, name := range cols {
			v, ok := row[name]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, cellValue(v)); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if len(cols) > 0 {
		if err := f.SetPanes(sheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, fmt.Errorf("freeze panes: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidth(name string) float64 {
	switch name {
	case "timestamp", "created_at", "updated_at":
		return 22
	}
	if w := float64(len(name) + 4); w > 12 {
		return w
	}
	return 12
}

// cellValue keeps numbers numeric; nested values are stored as JSON text.
func cellValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case string, bool, float64, int, int64:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
