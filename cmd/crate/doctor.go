package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"

	"github.com/franz/crate/internal/store"
	"github.com/franz/crate/internal/userstore"
	"github.com/franz/crate/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and the stores",
	Long: `Run diagnostic checks to ensure crate can operate correctly.

This command checks:
- SQLite version
- Data directory permissions
- Collection database integrity and orphaned rows
- User database integrity
- Optional tools (ffprobe for track durations)
- Disk space availability and network shares`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

// minFreeBytes is the free space below which the data dir gets a warning
const minFreeBytes = 1 << 30

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== crate doctor ===")

	results := []checkResult{
		checkSQLite(),
		checkDataDir(cfg.DataDir),
		checkCollection(filepath.Join(cfg.DataDir, cfg.Collection+store.FileSuffix)),
		checkUserStore(cfg.UserDB),
		checkFFprobe(),
		checkDiskSpace(cfg.DataDir),
		checkNetwork(cfg),
	}

	color := &colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: !util.ColorsSupported(),
		Reset:   true,
	}

	hasErrors, hasWarnings := false, false
	for _, r := range results {
		symbol := "[green]✓"
		if r.error {
			symbol = "[red]✗"
			hasErrors = true
		} else if r.warning {
			symbol = "[yellow]⚠"
			hasWarnings = true
		}

		line := color.Color(fmt.Sprintf("%s[reset] [bold]%s", symbol, r.name))
		if r.message != "" {
			line += ": " + r.message
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	switch {
	case hasErrors:
		util.ErrorLog("Some checks failed. Resolve the errors above before using crate.")
		return fmt.Errorf("diagnostics failed")
	case hasWarnings:
		util.WarnLog("Some checks produced warnings.")
	default:
		util.SuccessLog("All checks passed.")
	}
	return nil
}

// checkSQLite reports the embedded SQLite version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{name: "SQLite", error: true, message: "unable to determine version"}
	}
	return checkResult{name: "SQLite", message: fmt.Sprintf("version %s (built-in)", version)}
}

// checkDataDir verifies the data directory exists, or can be created, and is writable
func checkDataDir(path string) checkResult {
	const name = "Data directory"

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return checkResult{name: name, error: true, message: fmt.Sprintf("cannot create %s: %v", path, err)}
		}
		return checkResult{name: name, message: fmt.Sprintf("%s (created)", path)}
	}
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot access %s: %v", path, err)}
	}
	if !info.IsDir() {
		return checkResult{name: name, error: true, message: fmt.Sprintf("%s is not a directory", path)}
	}

	f, err := os.CreateTemp(path, ".crate_write_test")
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot write to %s: %v", path, err)}
	}
	f.Close()
	os.Remove(f.Name())

	return checkResult{name: name, message: fmt.Sprintf("%s (writable)", path)}
}

// checkCollection opens the collection database, checks its integrity and
// looks for parent rows left behind by an interrupted ingest
func checkCollection(path string) checkResult {
	const name = "Collection database"

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return checkResult{name: name, message: fmt.Sprintf("%s (will be created on first use)", path)}
	}
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot access %s: %v", path, err)}
	}
	if !info.Mode().IsRegular() {
		return checkResult{name: name, error: true, message: fmt.Sprintf("%s is not a regular file", path)}
	}

	s, err := store.Open(path)
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot open %s: %v", path, err)}
	}
	defer s.Close()

	if err := s.CheckIntegrity(); err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("integrity check failed: %v", err)}
	}

	stats, err := s.Stats()
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot read counts: %v", err)}
	}
	msg := fmt.Sprintf("%s (%s, %s tracks)", path, humanize.Bytes(uint64(info.Size())), humanize.Comma(stats.Tracks))

	orphans, err := s.Orphans()
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot count orphans: %v", err)}
	}
	if orphans.Albums > 0 || orphans.Artists > 0 {
		return checkResult{
			name:    name,
			warning: true,
			message: fmt.Sprintf("%s, %d orphaned albums and %d orphaned artists (rescan to repair)", msg, orphans.Albums, orphans.Artists),
		}
	}
	return checkResult{name: name, message: msg}
}

// checkUserStore opens the user database and checks its integrity
func checkUserStore(path string) checkResult {
	const name = "User database"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return checkResult{name: name, message: fmt.Sprintf("%s (will be created on first use)", path)}
	}

	s, err := userstore.Open(path)
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot open %s: %v", path, err)}
	}
	defer s.Close()

	if err := s.CheckIntegrity(); err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("integrity check failed: %v", err)}
	}

	ops, err := s.LoggedOpCount()
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot count ops: %v", err)}
	}
	return checkResult{name: name, message: fmt.Sprintf("%s (%d pending ops)", path, ops)}
}

// checkFFprobe looks for ffprobe, which is only needed for track durations
func checkFFprobe() checkResult {
	const name = "ffprobe (optional)"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffprobe", "-version").CombinedOutput()
	if err != nil {
		return checkResult{name: name, warning: true, message: "not found (needed only for --probe-durations)"}
	}

	version := "unknown"
	if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
		if parts := strings.Fields(lines[0]); len(parts) >= 3 {
			version = parts[2]
		}
	}
	return checkResult{name: name, message: fmt.Sprintf("version %s", version)}
}

// checkDiskSpace warns when the data dir is low on space
func checkDiskSpace(path string) checkResult {
	const name = "Disk space"

	avail, total, err := util.DiskUsage(path)
	if err != nil {
		return checkResult{name: name, warning: true, message: fmt.Sprintf("cannot determine disk space: %v", err)}
	}

	msg := fmt.Sprintf("%s of %s available", humanize.Bytes(avail), humanize.Bytes(total))
	if avail < minFreeBytes {
		return checkResult{name: name, warning: true, message: msg + " (low space!)"}
	}
	return checkResult{name: name, message: msg}
}

// checkNetwork reports whether the data dir sits on a network share
func checkNetwork(c *Config) checkResult {
	tuning := util.TuneForPaths([]string{c.DataDir}, c.NetworkOptimized, c.Concurrency)
	return checkResult{name: "Storage", message: tuning.Describe()}
}
