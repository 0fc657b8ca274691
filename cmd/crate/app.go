package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/franz/crate/internal/collection"
	"github.com/franz/crate/internal/report"
	"github.com/franz/crate/internal/userstore"
	"github.com/franz/crate/internal/util"
)

// app bundles the stores a command works on
type app struct {
	cfg     *Config
	users   *userstore.Store
	logger  *report.EventLogger
	manager *collection.Manager
	tuning  *util.NetworkTuning
}

// openApp opens the user store, the event log and a collection manager.
// Collections are opened lazily through collection().
func openApp(c *Config) (*app, error) {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: cannot create data dir %s", util.ErrPermission, c.DataDir)
		}
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	users, err := userstore.Open(c.UserDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	logger, err := report.NewEventLogger(c.EventsDir, eventLevel(c))
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}

	tuning := util.TuneForPaths([]string{c.DataDir}, c.NetworkOptimized, c.Concurrency)
	manager := collection.NewManager(&collection.Config{
		DataDir:          c.DataDir,
		Markers:          users,
		Logger:           logger,
		NetworkOptimized: tuning.IsNetwork,
		Now:              time.Now,
	})

	return &app{cfg: c, users: users, logger: logger, manager: manager, tuning: tuning}, nil
}

func eventLevel(c *Config) report.EventLevel {
	switch {
	case c.Quiet:
		return report.LevelWarning
	case c.Verbose:
		return report.LevelDebug
	default:
		return report.LevelInfo
	}
}

// collection opens the configured collection
func (a *app) collection(ctx context.Context) (*collection.Collection, error) {
	return a.manager.Open(ctx, a.cfg.Collection)
}

// logOp records a pending operation, warning instead of failing
func (a *app) logOp(opType string, params map[string]string) {
	if err := a.users.LogOp(&userstore.Op{Type: opType, Params: params}); err != nil {
		util.WarnLog("Failed to log operation %s: %v", opType, err)
	}
}

func (a *app) Close() {
	if err := a.manager.Close(); err != nil {
		util.WarnLog("Failed to close collections: %v", err)
	}
	if err := a.users.Close(); err != nil {
		util.WarnLog("Failed to close user store: %v", err)
	}
	a.logger.Close()
}

// withApp runs fn with an opened app and closes it afterwards
func withApp(fn func(a *app) error) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
