package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/franz/crate/internal/util"
)

// table is the tabular rendering of a result
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// render writes v as json or yaml, or the table built by tbl
func render(w io.Writer, format string, v any, tbl func() *table) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()

	case "", "table":
		t := tbl()
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if len(t.header) > 0 {
			fmt.Fprintln(tw, strings.Join(t.header, "\t"))
		}
		for _, row := range t.rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()

	default:
		return fmt.Errorf("%w: unknown output format %q", util.ErrInvalidConfig, format)
	}
}

// formatDuration renders milliseconds as m:ss, or - when unknown
func formatDuration(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// formatTime renders epoch milliseconds relative to now
func formatTime(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return humanize.Time(time.UnixMilli(ms))
}

func formatCount(n int64) string {
	return humanize.Comma(n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
